package patch

import (
	"errors"
	"io/fs"
	"os"
)

// State is the patch state of a file.
type State int

const (
	Untouched State = iota
	Patched
	Created // installed where no upstream version existed
)

func (s State) String() string {
	switch s {
	case Patched:
		return "patched"
	case Created:
		return "created"
	}
	return "untouched"
}

// Status describes a file. Backup is set only when State is Patched.
type Status struct {
	State  State
	Backup string
}

// Inspect returns the status of file. A file whose target is gone but whose
// backup survives is still Patched, since Restore can recover it.
func (e *Engine) Inspect(file string) (Status, error) {
	created, err := exists(CreatedPath(file))
	if err != nil {
		return Status{}, err
	}
	if created {
		return Status{State: Created}, nil
	}
	bak := BackupPath(file)
	ok, err := exists(bak)
	if err != nil {
		return Status{}, err
	}
	if ok {
		return Status{State: Patched, Backup: bak}, nil
	}
	if _, err := os.Stat(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Status{}, &TargetMissingError{Path: file, Err: err}
		}
		return Status{}, err
	}
	return Status{State: Untouched}, nil
}
