package stage

import (
	"path/filepath"

	"github.com/goplus/rdkitwrap/internal/config"
)

// Clean restores every patched file and removes what the stages generated
// in all configured roots. Roots that are not configured are skipped.
func (m *Maker) Clean() error {
	if err := m.CleanRDKit(); err != nil {
		return err
	}
	if err := m.CleanZlib(); err != nil {
		return err
	}
	cfg := m.cfg
	var paths []string
	if root, err := cfg.Root(config.Freetype); err == nil {
		for _, a := range config.AllArches {
			paths = append(paths, filepath.Join(root, "objs", config.MSPlatformFor(a)))
		}
		if err := m.restoreOwned(filepath.Join(freetypeProjDir(root), "freetype.vcxproj")); err != nil {
			return err
		}
	}
	if root, err := cfg.Root(config.Libpng); err == nil {
		for _, a := range config.AllArches {
			paths = append(paths, filepath.Join(root, "build"+string(a)))
		}
	}
	if root, err := cfg.Root(config.Pixman); err == nil {
		paths = append(paths, filepath.Join(root, vcProjDir))
		if err := m.restoreOwned(filepath.Join(root, "pixman", "config.h")); err != nil {
			return err
		}
	}
	if root, err := cfg.Root(config.Cairo); err == nil {
		paths = append(paths, filepath.Join(root, vcProjDir))
		if err := m.restoreOwned(filepath.Join(root, "src", "cairo-features.h")); err != nil {
			return err
		}
	}
	return m.removeAll(paths)
}

// CleanZlib removes the zlib build directories and the copied zconf.h.
func (m *Maker) CleanZlib() error {
	root, err := m.cfg.Root(config.Zlib)
	if err != nil {
		return nil
	}
	paths := []string{filepath.Join(root, "zconf.h")}
	for _, a := range config.AllArches {
		paths = append(paths, filepath.Join(root, "build"+string(a)))
	}
	return m.removeAll(paths)
}

// CleanRDKit restores the patched RDKit files and removes the build
// directories and everything generated in the wrapper directory.
func (m *Maker) CleanRDKit() error {
	rdkit := m.cfg.RDKitDir()
	for _, rel := range PatchedFiles {
		if _, err := m.patch.Restore(filepath.Join(rdkit, filepath.FromSlash(rel))); err != nil {
			return err
		}
	}

	wrapper := m.cfg.WrapperDir()
	generated := []string{projectName, "swig_csharp", "Properties", "packages"}
	for _, p := range config.AllPlatforms {
		generated = append(generated, string(p))
	}
	generated = append(generated, TestProjects...)
	generated = append(generated, Solutions...)

	var paths []string
	for _, name := range generated {
		paths = append(paths, filepath.Join(wrapper, name))
	}
	paths = append(paths, filepath.Join(rdkit, "lib"))
	for _, p := range config.AllPlatforms {
		for _, a := range config.AllArches {
			for _, l := range []config.Lang{config.CSharp, config.CPlusPlus} {
				paths = append(paths, filepath.Join(rdkit, config.RDKitBuildDirNameFor(p, a, l)))
			}
		}
	}
	return m.removeAll(paths)
}

func (m *Maker) removeAll(paths []string) error {
	for _, p := range paths {
		if err := removeIfExist(p); err != nil {
			return err
		}
		m.log.Debug("removed", "path", p)
	}
	return nil
}

// restoreOwned undoes installOwned: an upstream version comes back and a
// file the tool created is removed.
func (m *Maker) restoreOwned(file string) error {
	_, err := m.patch.Restore(file)
	return err
}
