// Package stage implements the build stages: dependency libraries, RDKit
// itself, the C# wrapper and the NuGet package.
//
// Every stage runs external tools through a Runner with an explicit working
// directory and edits third-party files only through the patch engine.
package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/goplus/rdkitwrap/internal/config"
	"github.com/goplus/rdkitwrap/internal/logging"
	"github.com/goplus/rdkitwrap/internal/patch"
)

// Runner runs an external command in dir and waits for it.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// Maker runs the stages of one configuration.
type Maker struct {
	cfg    *config.Config
	run    Runner
	patch  *patch.Engine
	log    hclog.Logger
	dryRun bool
}

// New returns a Maker. A nil logger discards output.
func New(cfg *config.Config, r Runner, eng *patch.Engine, log hclog.Logger) *Maker {
	return &Maker{
		cfg:   cfg,
		run:   r,
		patch: eng,
		log:   logging.OrNull(log).Named("stage"),
	}
}

// ForArch returns a Maker for the same configuration targeting arch a.
func (m *Maker) ForArch(a config.Arch) *Maker {
	cp := *m
	cp.cfg = m.cfg.ForArch(a)
	cp.log = m.log.With("arch", string(a))
	return &cp
}

// DryRun returns a Maker for a runner that only prints commands. Its stages
// still patch and prepare files, but skip the steps that read what the
// printed commands would have produced.
func (m *Maker) DryRun() *Maker {
	cp := *m
	cp.dryRun = true
	return &cp
}

// Config returns the configuration m builds.
func (m *Maker) Config() *config.Config { return m.cfg }

func (m *Maker) root(d config.Dep) (string, error) {
	return m.cfg.Root(d)
}

// template returns a file below the template directory.
func (m *Maker) template(elem ...string) string {
	return filepath.Join(append([]string{m.cfg.FilesDir()}, elem...)...)
}

// installOwned copies the template src over dst through the patch engine,
// which remembers whether dst had an upstream version for clean.
func (m *Maker) installOwned(src, dst string) error {
	return m.patch.Install(src, dst)
}

func removeIfExist(path string) error {
	err := os.RemoveAll(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// copyFile copies src to dst, or into dst when dst is a directory.
func copyFile(src, dst string) error {
	if fi, err := os.Stat(dst); err == nil && fi.IsDir() {
		dst = filepath.Join(dst, filepath.Base(src))
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

// copyTree replaces dst with a copy of the directory src.
func copyTree(src, dst string) error {
	if err := removeIfExist(dst); err != nil {
		return err
	}
	if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}
