package gnu

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"
)

type recorder struct {
	dir  string
	args []string
}

func (r *recorder) Run(_ context.Context, dir, name string, args ...string) error {
	r.dir, r.args = dir, append([]string{name}, args...)
	return nil
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.Run()
}

func TestMakeArgs(t *testing.T) {
	tests := []struct {
		targets []string
		want    []string
	}{
		{nil, []string{"make", "-j"}},
		{[]string{"RDKFuncs"}, []string{"make", "-j", "RDKFuncs"}},
	}
	for _, tt := range tests {
		r := &recorder{}
		if err := Make(context.Background(), r, "/b", tt.targets...); err != nil {
			t.Fatal(err)
		}
		if r.dir != "/b" || !slices.Equal(r.args, tt.want) {
			t.Errorf("Make(%q) ran %q in %s", tt.targets, r.args, r.dir)
		}
	}
}

func TestMakeE2E(t *testing.T) {
	if _, err := exec.LookPath("make"); err != nil {
		t.Skip("make not found in PATH")
	}
	dir := t.TempDir()
	mk := "RDKFuncs:\n\ttouch RDKFuncs.so\n"
	if err := os.WriteFile(filepath.Join(dir, "Makefile"), []byte(mk), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Make(context.Background(), execRunner{}, dir, "RDKFuncs"); err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "RDKFuncs.so")); err != nil {
		t.Errorf("target not built: %v", err)
	}
}
