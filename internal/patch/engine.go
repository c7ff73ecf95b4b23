// Package patch applies reversible, re-appliable edits to files owned by a
// third-party source tree.
//
// The first patch of a file can keep a pristine copy next to it (see
// BackupPath). Whenever that copy exists every later patch is computed from
// it rather than from the current content, so repeated runs never compound
// and Restore can always bring the original back.
package patch

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/goplus/rdkitwrap/internal/logging"
)

// BackupSuffix is appended to a target path to form its backup path.
const BackupSuffix = ".bak"

// BackupPath returns the backup location of file.
func BackupPath(file string) string {
	return file + BackupSuffix
}

// CreatedSuffix is appended to a target path to mark a file that had no
// upstream version when it was first installed.
const CreatedSuffix = ".created"

// CreatedPath returns the marker location of file.
func CreatedPath(file string) string {
	return file + CreatedSuffix
}

// Engine applies patches. The zero value is not usable; call New.
type Engine struct {
	log hclog.Logger
}

// New returns an Engine logging to log, which may be nil.
func New(log hclog.Logger) *Engine {
	return &Engine{log: logging.OrNull(log).Named("patch")}
}

// Apply runs rules in order over the pristine text of file and writes the
// result when it differs from the current content. With backup set, a
// backup is created first unless one already exists. It reports whether the
// file was written.
func (e *Engine) Apply(file string, backup bool, rules ...Rule) (bool, error) {
	return e.transform(file, backup, func(src []byte) ([]byte, error) {
		text := string(src)
		for _, r := range rules {
			var n int
			if text, n = r.apply(text); n == 0 {
				e.log.Debug("rule matched nothing", "file", file, "rule", r.String())
			}
		}
		return []byte(text), nil
	})
}

func (e *Engine) transform(file string, backup bool, fn func(src []byte) ([]byte, error)) (bool, error) {
	fi, err := os.Stat(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, &TargetMissingError{Path: file, Err: err}
		}
		return false, err
	}

	bak := BackupPath(file)
	hasBackup, err := exists(bak)
	if err != nil {
		return false, err
	}
	if backup && !hasBackup {
		if err := copyFile(file, bak); err != nil {
			return false, err
		}
		e.log.Debug("backup created", "file", file, "backup", bak)
		hasBackup = true
	}

	cur, err := os.ReadFile(file)
	if err != nil {
		return false, err
	}
	src := cur
	if hasBackup {
		if src, err = os.ReadFile(bak); err != nil {
			return false, err
		}
	}

	out, err := fn(src)
	if err != nil {
		return false, err
	}
	if bytes.Equal(out, cur) {
		e.log.Debug("unchanged", "file", file)
		return false, nil
	}
	if err := os.WriteFile(file, out, fi.Mode().Perm()); err != nil {
		return false, err
	}
	e.log.Info("patched", "file", file)
	return true, nil
}

// Install replaces file with a copy of src. The first install backs up an
// upstream file, or marks file as created when there is none, so that
// Restore brings the tree back to its upstream state either way.
func (e *Engine) Install(src, file string) error {
	created, err := exists(CreatedPath(file))
	if err != nil {
		return err
	}
	hasBackup, err := exists(BackupPath(file))
	if err != nil {
		return err
	}
	if !created && !hasBackup {
		upstream, err := exists(file)
		if err != nil {
			return err
		}
		if upstream {
			if err := copyFile(file, BackupPath(file)); err != nil {
				return err
			}
			e.log.Debug("backup created", "file", file)
		} else {
			if err := os.WriteFile(CreatedPath(file), nil, 0o644); err != nil {
				return err
			}
			e.log.Debug("no upstream version", "file", file)
		}
	}
	if err := copyFile(src, file); err != nil {
		return err
	}
	e.log.Info("installed", "file", file, "template", src)
	return nil
}

// Restore copies the backup of file back over it and removes the backup.
// A file marked as created is removed along with its marker. It is a no-op
// for a file that was never backed up.
func (e *Engine) Restore(file string) (bool, error) {
	created := CreatedPath(file)
	ok, err := exists(created)
	if err != nil {
		return false, err
	}
	if ok {
		if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
		if err := os.Remove(created); err != nil {
			return false, err
		}
		e.log.Info("removed", "file", file)
		return true, nil
	}

	bak := BackupPath(file)
	ok, err = exists(bak)
	if err != nil || !ok {
		return false, err
	}
	if err := copyFile(bak, file); err != nil {
		return false, err
	}
	if err := os.Remove(bak); err != nil {
		return false, err
	}
	e.log.Info("restored", "file", file)
	return true, nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// copyFile copies src to dst keeping the mode and modification time. The
// copy is written next to dst and renamed over it, so dst is never left
// half written.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if _, err = io.Copy(tmp, in); err != nil {
		return err
	}
	if err = tmp.Chmod(fi.Mode().Perm()); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chtimes(tmp.Name(), fi.ModTime(), fi.ModTime()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
