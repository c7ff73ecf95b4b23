package env

import (
	"os"
	"strings"
)

// Map returns a snapshot of the process environment as a key/value map.
// Entries without "=" are ignored; later duplicates win, as with os.Getenv.
func Map() map[string]string {
	return fromList(os.Environ())
}

func fromList(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			m[k] = v
		}
	}
	return m
}
