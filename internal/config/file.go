package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile reads "key=value" lines. Blank lines and lines starting with '#'
// are skipped; every other line must contain exactly one '='.
func ParseFile(r io.Reader) (map[string]string, error) {
	kv := make(map[string]string)
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Count(line, "=") != 1 {
			return nil, &Error{Reason: fmt.Sprintf("line %d: want exactly one '=' in %q", n, line)}
		}
		k, v, _ := strings.Cut(line, "=")
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, &Error{Reason: fmt.Sprintf("line %d: empty key", n)}
		}
		kv[k] = strings.TrimSpace(v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return kv, nil
}

// LoadFile reads the configuration file at path. Files ending in .yaml or
// .yml hold a flat mapping; anything else uses the key=value format. A
// missing file yields an empty map since the file layer is optional.
func LoadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		kv := make(map[string]string)
		if err := yaml.Unmarshal(data, &kv); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return kv, nil
	}
	kv, err := ParseFile(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return kv, nil
}
