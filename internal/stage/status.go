package stage

import (
	"errors"
	"path/filepath"

	"github.com/goplus/rdkitwrap/internal/config"
	"github.com/goplus/rdkitwrap/internal/patch"
)

// FileStatus is the patch status of one file the tool may modify.
type FileStatus struct {
	Path    string
	Missing bool // neither the file nor a backup exists
	patch.Status
}

// Status inspects every RDKit file the tool may patch and every upstream
// dependency file it may replace.
func (m *Maker) Status() ([]FileStatus, error) {
	var files []string
	for _, rel := range PatchedFiles {
		files = append(files, filepath.Join(m.cfg.RDKitDir(), filepath.FromSlash(rel)))
	}
	if root, err := m.cfg.Root(config.Pixman); err == nil {
		files = append(files, filepath.Join(root, "pixman", "config.h"))
	}
	if root, err := m.cfg.Root(config.Cairo); err == nil {
		files = append(files, filepath.Join(root, "src", "cairo-features.h"))
	}
	if root, err := m.cfg.Root(config.Freetype); err == nil {
		files = append(files, filepath.Join(freetypeProjDir(root), "freetype.vcxproj"))
	}

	out := make([]FileStatus, 0, len(files))
	for _, f := range files {
		st, err := m.patch.Inspect(f)
		var missing *patch.TargetMissingError
		switch {
		case errors.As(err, &missing):
			out = append(out, FileStatus{Path: f, Missing: true})
		case err != nil:
			return nil, err
		default:
			out = append(out, FileStatus{Path: f, Status: st})
		}
	}
	return out, nil
}
