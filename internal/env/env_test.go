package env

import "testing"

func TestMapSeesProcessEnv(t *testing.T) {
	t.Setenv("RDKITWRAP_ENV_TEST", "a=b")

	m := Map()
	if got := m["RDKITWRAP_ENV_TEST"]; got != "a=b" {
		t.Errorf("Map()[RDKITWRAP_ENV_TEST] = %q, want %q", got, "a=b")
	}
}

func TestFromList(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		key  string
		want string
		ok   bool
	}{
		{"simple", []string{"A=1"}, "A", "1", true},
		{"empty value", []string{"A="}, "A", "", true},
		{"value with equals", []string{"A=x=y"}, "A", "x=y", true},
		{"no separator", []string{"BROKEN"}, "BROKEN", "", false},
		{"later wins", []string{"A=1", "A=2"}, "A", "2", true},
		{"windows drive var", []string{"=C:=C:\\"}, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fromList(tt.in)
			got, ok := m[tt.key]
			if ok != tt.ok || got != tt.want {
				t.Errorf("fromList(%q)[%q] = %q, %v; want %q, %v", tt.in, tt.key, got, ok, tt.want, tt.ok)
			}
		})
	}
}
