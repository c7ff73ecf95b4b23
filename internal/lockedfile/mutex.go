// Package lockedfile provides a cross-process mutex backed by an advisory
// file lock.
package lockedfile

import (
	"io/fs"
	"os"
)

// Mutex is an exclusive lock on the file at Path. The file is created if
// needed and left in place after unlocking.
type Mutex struct {
	Path string
}

// MutexAt returns a Mutex for the file at path.
func MutexAt(path string) *Mutex {
	return &Mutex{Path: path}
}

// Lock blocks until the lock is held and returns the function that
// releases it.
func (mu *Mutex) Lock() (unlock func(), err error) {
	f, err := os.OpenFile(mu.Path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, &fs.PathError{Op: "lock", Path: mu.Path, Err: err}
	}
	return func() {
		unlockFile(f)
		f.Close()
	}, nil
}
