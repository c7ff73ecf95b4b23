package patch

import (
	"errors"
	"fmt"
)

// TargetMissingError reports a patch target that does not exist.
type TargetMissingError struct {
	Path string
	Err  error
}

func (e *TargetMissingError) Error() string {
	return fmt.Sprintf("patch: target %s does not exist", e.Path)
}

func (e *TargetMissingError) Unwrap() error { return e.Err }

// MalformedError reports a structured file that cannot be parsed.
type MalformedError struct {
	Path string
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("patch: malformed %s: %v", e.Path, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// ErrNoElement is returned by tree edits that require an element which the
// document does not contain.
var ErrNoElement = errors.New("no element matches")
