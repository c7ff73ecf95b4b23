package stage

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/goplus/rdkitwrap/internal/config"
	"github.com/goplus/rdkitwrap/internal/patch"
	"github.com/goplus/rdkitwrap/x/cmake"
	"github.com/goplus/rdkitwrap/x/msbuild"
)

// Directory, below the pixman and cairo roots, holding the vendored Visual
// Studio projects.
const vcProjDir = "vc2017"

// MakeZlib configures and builds zlib, then copies the generated zconf.h
// to the zlib root where the other builds look for it.
func (m *Maker) MakeZlib(ctx context.Context) error {
	root, err := m.root(config.Zlib)
	if err != nil {
		return err
	}
	build := filepath.Join(root, m.cfg.DepBuildDirName())
	c := cmake.New(root, build)
	if err := m.generator(c); err != nil {
		return err
	}
	m.log.Info("building zlib", "dir", build)
	if err := c.Configure(ctx, m.run); err != nil {
		return err
	}
	if err := msbuild.Build(ctx, m.run, build, "zlib.sln", m.cfg.MSPlatform()); err != nil {
		return err
	}
	return copyFile(filepath.Join(build, "zconf.h"), filepath.Join(root, "zconf.h"))
}

// MakeLibpng configures libpng against the zlib built by MakeZlib and
// builds it.
func (m *Maker) MakeLibpng(ctx context.Context) error {
	root, err := m.root(config.Libpng)
	if err != nil {
		return err
	}
	zlibRoot, err := m.root(config.Zlib)
	if err != nil {
		return err
	}
	zlibLib, err := m.cfg.ZlibLib()
	if err != nil {
		return err
	}
	build := filepath.Join(root, m.cfg.DepBuildDirName())
	c := cmake.New(root, build)
	if err := m.generator(c); err != nil {
		return err
	}
	static := m.cfg.Enabled(config.UseStaticLibs)
	c.DefineFile("ZLIB_LIBRARY", zlibLib)
	c.DefinePath("ZLIB_INCLUDE_DIR", zlibRoot)
	c.DefineBool("PNG_SHARED", !static)
	c.DefineBool("PNG_STATIC", static)

	m.log.Info("building libpng", "dir", build)
	if err := c.Configure(ctx, m.run); err != nil {
		return err
	}
	return msbuild.Build(ctx, m.run, build, "libpng.sln", m.cfg.MSPlatform())
}

// MakePixman builds pixman with the vendored project, listing the sources
// named by pixman's own makefiles.
func (m *Maker) MakePixman(ctx context.Context) error {
	root, err := m.root(config.Pixman)
	if err != nil {
		return err
	}
	projDir := filepath.Join(root, vcProjDir)
	if err := os.MkdirAll(projDir, 0o755); err != nil {
		return err
	}
	proj := filepath.Join(projDir, "pixman.vcxproj")
	if err := copyFile(m.template("pixman", "pixman.vcxproj"), proj); err != nil {
		return err
	}
	if err := m.installOwned(m.template("pixman", "config.h"), filepath.Join(root, "pixman", "config.h")); err != nil {
		return err
	}

	srcs, hdrs, err := PixmanSources(root)
	if err != nil {
		return err
	}
	items := etree.NewElement("ItemGroup")
	items.CreateAttr("Label", "PixmanSources")
	for _, name := range srcs {
		items.CreateElement("ClCompile").CreateAttr("Include", `..\pixman\`+name)
	}
	for _, name := range hdrs {
		items.CreateElement("ClInclude").CreateAttr("Include", `..\pixman\`+name)
	}
	retarget, err := m.retarget()
	if err != nil {
		return err
	}
	if _, err := m.patch.ApplyTree(proj, false, append(retarget, patch.ReplaceChild("/Project", "Label", items))...); err != nil {
		return err
	}

	m.log.Info("building pixman", "sources", len(srcs), "headers", len(hdrs))
	return msbuild.Build(ctx, m.run, projDir, "pixman.vcxproj", m.cfg.MSPlatform())
}

// MakeCairo builds cairo with the vendored project, pointing it at the
// other dependency roots.
func (m *Maker) MakeCairo(ctx context.Context) error {
	root, err := m.root(config.Cairo)
	if err != nil {
		return err
	}
	placeholders := []struct {
		name string
		dep  config.Dep
	}{
		{"__CAIRODIR__", config.Cairo},
		{"__LIBPNGDIR__", config.Libpng},
		{"__ZLIBDIR__", config.Zlib},
		{"__PIXMANDIR__", config.Pixman},
		{"__FREETYPEDIR__", config.Freetype},
	}
	var rules []patch.Rule
	for _, p := range placeholders {
		dir, err := m.root(p.dep)
		if err != nil {
			return err
		}
		rules = append(rules, patch.Literal(p.name, dir))
	}

	projDir := filepath.Join(root, vcProjDir)
	if err := os.MkdirAll(projDir, 0o755); err != nil {
		return err
	}
	proj := filepath.Join(projDir, "cairo.vcxproj")
	if err := copyFile(m.template("cairo", "cairo.vcxproj"), proj); err != nil {
		return err
	}
	if err := m.installOwned(m.template("cairo", "cairo-features.h"), filepath.Join(root, "src", "cairo-features.h")); err != nil {
		return err
	}
	retarget, err := m.retarget()
	if err != nil {
		return err
	}
	if _, err := m.patch.ApplyTree(proj, false, retarget...); err != nil {
		return err
	}
	if _, err := m.patch.Apply(proj, false, rules...); err != nil {
		return err
	}

	m.log.Info("building cairo", "dir", projDir)
	return msbuild.Build(ctx, m.run, projDir, "cairo.vcxproj", m.cfg.MSPlatform())
}

// MakeFreetype builds freetype with the vendored vc2010 project.
func (m *Maker) MakeFreetype(ctx context.Context) error {
	root, err := m.root(config.Freetype)
	if err != nil {
		return err
	}
	projDir := freetypeProjDir(root)
	if err := m.installOwned(m.template("freetype", "freetype.vcxproj"), filepath.Join(projDir, "freetype.vcxproj")); err != nil {
		return err
	}
	m.log.Info("building freetype", "dir", projDir)
	return msbuild.Build(ctx, m.run, projDir, "freetype.sln", m.cfg.MSPlatform())
}

func freetypeProjDir(root string) string {
	return filepath.Join(root, "builds", "windows", "vc2010")
}

func (m *Maker) generator(c *cmake.CMake) error {
	name, platform, err := m.cfg.Generator()
	if err != nil {
		return err
	}
	c.Generator(name, platform)
	return nil
}

// retarget returns the edits moving a vendored project to the configured
// Visual Studio: the Globals VCProjectVersion and every PlatformToolset.
func (m *Maker) retarget() ([]patch.TreeEdit, error) {
	vs, err := m.cfg.VSVersion()
	if err != nil {
		return nil, err
	}
	toolset, err := m.cfg.PlatformToolset()
	if err != nil {
		return nil, err
	}
	return []patch.TreeEdit{
		patch.SetText("//PropertyGroup[@Label='Globals']/VCProjectVersion", vs),
		patch.TreeEditFunc(func(doc *etree.Document) error {
			for _, el := range doc.FindElements("//PlatformToolset") {
				el.SetText(toolset)
			}
			return nil
		}),
	}, nil
}

var (
	pixmanSourcesRE = regexp.MustCompile(`^libpixman_sources\s*=(.*)$`)
	pixmanHeadersRE = regexp.MustCompile(`^libpixman_headers\s*=(.*)$`)
	pixmanWin32RE   = regexp.MustCompile(`^\s*libpixman_sources\s*\+=(.*)$`)
)

// PixmanSources returns the C sources and headers listed by
// pixman/Makefile.sources and pixman/Makefile.win32 below root.
func PixmanSources(root string) (srcs, hdrs []string, err error) {
	lines, err := makefileLines(filepath.Join(root, "pixman", "Makefile.sources"))
	if err != nil {
		return nil, nil, err
	}
	for _, line := range lines {
		if m := pixmanSourcesRE.FindStringSubmatch(line); m != nil {
			srcs = append(srcs, makefileWords(m[1])...)
		} else if m := pixmanHeadersRE.FindStringSubmatch(line); m != nil {
			hdrs = append(hdrs, makefileWords(m[1])...)
		}
	}
	lines, err = makefileLines(filepath.Join(root, "pixman", "Makefile.win32"))
	if err != nil {
		return nil, nil, err
	}
	for _, line := range lines {
		if m := pixmanWin32RE.FindStringSubmatch(line); m != nil {
			srcs = append(srcs, makefileWords(m[1])...)
		}
	}
	return srcs, hdrs, nil
}

var blanks = regexp.MustCompile(`[ \t]+`)

// makefileLines reads a makefile, joining backslash continued lines and
// collapsing runs of blanks.
func makefileLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read makefile: %w", err)
	}
	defer f.Close()

	var (
		lines []string
		cur   strings.Builder
	)
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimRight(s.Text(), "\r")
		if strings.HasSuffix(line, `\`) {
			cur.WriteString(strings.TrimSuffix(line, `\`))
			cur.WriteByte(' ')
			continue
		}
		cur.WriteString(line)
		lines = append(lines, blanks.ReplaceAllString(cur.String(), " "))
		cur.Reset()
	}
	if cur.Len() > 0 {
		lines = append(lines, blanks.ReplaceAllString(cur.String(), " "))
	}
	return lines, s.Err()
}

func makefileWords(s string) []string {
	var words []string
	for _, w := range strings.Fields(s) {
		if w != "$(NULL)" {
			words = append(words, w)
		}
	}
	return words
}
