package config

import "fmt"

// Error reports a setting that is missing, unknown or invalid.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	if e.Key == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

// ParseError reports a path from which a release could not be derived.
type ParseError struct {
	Path string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("config: cannot derive release from %q: want a final segment like <name>-Release_YYYY_MM_P", e.Path)
}

func missing(key string) error {
	return &Error{Key: key, Reason: "not set"}
}

func invalid(key, value, want string) error {
	return &Error{Key: key, Reason: fmt.Sprintf("invalid value %q, want %s", value, want)}
}
