package stage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/goplus/rdkitwrap/internal/config"
	"github.com/goplus/rdkitwrap/internal/patch"
	"github.com/goplus/rdkitwrap/x/dotnet"
)

// nativeSet maps platform and architecture to the native file names
// assembled for them.
type nativeSet map[config.Platform]map[config.Arch][]string

// MissingNativesError reports that the native binaries a package must carry
// have not been built.
type MissingNativesError struct {
	Platform config.Platform
	Arch     config.Arch
	Unwanted bool // binaries exist that must not
}

func (e *MissingNativesError) Error() string {
	if e.Unwanted {
		return fmt.Sprintf("unexpected native binaries for %s", config.RuntimeIDFor(e.Platform, e.Arch))
	}
	return fmt.Sprintf("no native binaries for %s; build rdkit for it first", config.RuntimeIDFor(e.Platform, e.Arch))
}

// BuildPackage writes the nuspec and targets files for every native
// binary assembled so far and packs the NuGet package.
func (m *Maker) BuildPackage(ctx context.Context) error {
	natives, err := m.collectNatives()
	var missing *MissingNativesError
	switch {
	case m.dryRun && errors.As(err, &missing):
		m.log.Warn("dry run: packing without every native binary", "error", err)
	case err != nil:
		return err
	}
	dir := m.projectDir()
	if err := m.writeNuspec(dir, natives); err != nil {
		return err
	}
	if err := m.writeTargets(dir, natives); err != nil {
		return err
	}
	m.log.Info("packing", "version", m.cfg.PackageVersion())
	return dotnet.Pack(ctx, m.run, dir, projectName+".csproj", packageID+".nuspec")
}

// collectNatives lists the assembled native binaries. A *MissingNativesError
// comes with the partial set.
func (m *Maker) collectNatives() (nativeSet, error) {
	set := make(nativeSet)
	for _, p := range config.AllPlatforms {
		set[p] = make(map[config.Arch][]string)
		for _, a := range config.AllArches {
			names, err := m.nativeNames(p, a)
			if err != nil {
				return nil, err
			}
			set[p][a] = names
		}
	}
	switch p := m.cfg.Platform(); p {
	case config.Windows:
		for _, a := range config.AllArches {
			if len(set[p][a]) == 0 {
				return set, &MissingNativesError{Platform: p, Arch: a}
			}
		}
	case config.Linux:
		if len(set[p][config.X64]) == 0 {
			return set, &MissingNativesError{Platform: p, Arch: config.X64}
		}
		if len(set[p][config.X86]) != 0 {
			return set, &MissingNativesError{Platform: p, Arch: config.X86, Unwanted: true}
		}
	}
	return set, nil
}

// Description returns the package description.
func (m *Maker) Description() string {
	s := ".NET binding of RDKit Release_" + m.cfg.Release().String() + "."
	if m.cfg.Platform() == config.Linux {
		return s + " Supports Linux (x64)."
	}
	return s + " Supports Windows (x86 and x64) and Linux (x64)."
}

// ReleaseNotes returns the package release notes naming the bundled
// library versions.
func (m *Maker) ReleaseNotes() string {
	var b strings.Builder
	b.WriteString("This release uses ")
	b.WriteString(strings.Join(m.libVersions(), ", "))
	if m.cfg.Platform() != config.Windows {
		if vs, err := m.cfg.VSVersion(); err == nil {
			b.WriteString(" built using Visual Studio " + vs + " for Windows build")
		}
	}
	b.WriteString(".")
	return b.String()
}

var (
	dottedVersion = regexp.MustCompile(`\d+\.\d+\.\d+`)
	boostVersion  = regexp.MustCompile(`\d+_\d+_\d+`)
	libpngVersion = regexp.MustCompile(`lpng(\d)(\d)(\d\d)`)
)

func (m *Maker) libVersions() []string {
	cfg := m.cfg
	var libs []string
	add := func(name string, d config.Dep, version func(string) string) {
		if root, err := cfg.Root(d); err == nil {
			libs = append(libs, name+" "+version(filepath.Base(root)))
		}
	}
	dotted := func(s string) string { return lastMatch(dottedVersion, s) }

	add("Eigen", config.Eigen, dotted)
	if cfg.Platform() != config.Windows {
		return libs
	}
	add("zlib", config.Zlib, dotted)
	if cfg.Enabled(config.UseBoost) {
		add("Boost", config.Boost, func(s string) string { return lastMatch(boostVersion, s) })
	}
	if cfg.Enabled(config.FreetypeSupport) {
		add("FreeType", config.Freetype, dotted)
	}
	if cfg.Enabled(config.CairoSupport) {
		add("libpng", config.Libpng, func(s string) string {
			if sm := libpngVersion.FindStringSubmatch(s); sm != nil {
				return sm[1] + "." + sm[2] + "." + sm[3]
			}
			return s
		})
		add("pixman", config.Pixman, dotted)
		add("cairo", config.Cairo, dotted)
	}
	return libs
}

// lastMatch returns the last match of re in s, or s itself.
func lastMatch(re *regexp.Regexp, s string) string {
	all := re.FindAllString(s, -1)
	if len(all) == 0 {
		return s
	}
	return all[len(all)-1]
}

func (m *Maker) writeNuspec(dir string, natives nativeSet) error {
	file := filepath.Join(dir, packageID+".nuspec")
	if err := copyFile(m.template("rdkit", packageID+".nuspec"), file); err != nil {
		return err
	}
	edits := []patch.TreeEdit{
		patch.SetText("/package/metadata/description", m.Description()),
		patch.SetText("/package/metadata/version", m.cfg.PackageVersion()),
		patch.SetText("/package/metadata/releaseNotes", m.ReleaseNotes()),
	}
	for _, p := range config.AllPlatforms {
		for _, a := range config.AllArches {
			rid := config.RuntimeIDFor(p, a)
			for _, name := range natives[p][a] {
				f := etree.NewElement("file")
				f.CreateAttr("src", "../"+string(p)+"/"+string(a)+"/"+name)
				f.CreateAttr("target", "runtimes/"+rid+"/native/"+name)
				edits = append(edits, patch.ReplaceChild("/package/files", "target", f))
			}
		}
	}
	_, err := m.patch.ApplyTree(file, false, edits...)
	return err
}

// Frameworks that resolve runtimes/ themselves; the targets file serves
// the others.
const nonNetCondition = "!$(TargetFramework.Contains('netstandard')) " +
	"And !$(TargetFramework.Contains('netcoreapp')) " +
	"And !$(TargetFramework.Contains('net5.')) " +
	"And !$(TargetFramework.Contains('net6.'))"

func (m *Maker) writeTargets(dir string, natives nativeSet) error {
	file := filepath.Join(dir, packageID+".targets")
	if err := copyFile(m.template("rdkit", packageID+".targets"), file); err != nil {
		return err
	}
	win := natives[config.Windows]
	var edits []patch.TreeEdit
	anyCPU := etree.NewElement("ItemGroup")
	anyCPU.CreateAttr("Condition", nonNetCondition+" And '$(Platform)' == 'AnyCPU'")
	for _, a := range config.AllArches {
		native := "runtimes/" + config.RuntimeIDFor(config.Windows, a) + "/native/"
		group := etree.NewElement("ItemGroup")
		group.CreateAttr("Condition", nonNetCondition+" And '$(Platform)' == '"+string(a)+"'")
		for _, name := range win[a] {
			addNone(group, "$(MSBuildThisFileDirectory)../"+native+name, name)
			addNone(anyCPU, "$(MSBuildThisFileDirectory)../"+native+name, native+name)
		}
		edits = append(edits, patch.ReplaceChild("/Project", "Condition", group))
	}
	edits = append(edits, patch.ReplaceChild("/Project", "Condition", anyCPU))
	_, err := m.patch.ApplyTree(file, false, edits...)
	return err
}

func addNone(group *etree.Element, include, link string) {
	item := group.CreateElement("None")
	item.CreateAttr("Include", include)
	item.CreateElement("Link").SetText(link)
	item.CreateElement("CopyToOutputDirectory").SetText("PreserveNewest")
}
