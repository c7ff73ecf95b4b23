package stage

import (
	"path/filepath"
	"testing"

	"github.com/goplus/rdkitwrap/internal/config"
	"github.com/goplus/rdkitwrap/internal/patch"
)

func TestClean(t *testing.T) {
	w := newWorkspace(t, "2021_09_4")
	w.writeRDKit(t)
	m := w.maker(t, config.Windows, &recorder{}, nil)
	if err := m.PatchRDKit(); err != nil {
		t.Fatal(err)
	}

	wrapper := m.Config().WrapperDir()
	zlib := w.dep("zlib-1.2.11")
	pixman := w.dep("pixman-0.40.0")
	freetype := w.dep("freetype-2.10.4")
	generated := []string{
		filepath.Join(wrapper, projectName, projectName+".csproj"),
		filepath.Join(wrapper, "swig_csharp", "RDKFuncs.cs"),
		filepath.Join(wrapper, "win", "x64", "RDKFuncs.dll"),
		filepath.Join(wrapper, "NuGetExample", "NuGetExample.csproj"),
		filepath.Join(wrapper, "NuGetExample.sln"),
		filepath.Join(w.rdkit, "lib", "RDKitGraphMol.lib"),
		filepath.Join(w.rdkit, "buildwinx86CSharp", "RDKit.sln"),
		filepath.Join(w.rdkit, "buildlinuxx64cpp", "Makefile"),
		filepath.Join(zlib, "zconf.h"),
		filepath.Join(zlib, "buildx64", "zlib.sln"),
		filepath.Join(w.dep("lpng1637"), "buildx86", "libpng.sln"),
		filepath.Join(pixman, "vc2017", "pixman.vcxproj"),
		filepath.Join(w.dep("cairo-1.16.0"), "vc2017", "cairo.vcxproj"),
		filepath.Join(freetype, "objs", "Win32", "Release", "freetype.dll"),
	}
	for _, f := range generated {
		writeFile(t, f, "generated")
	}
	kept := []string{
		filepath.Join(wrapper, "RDKit2DotNet.cs"),
		filepath.Join(zlib, "zlib.h"),
		filepath.Join(freetype, "objs", "README"),
	}
	for _, f := range kept {
		writeFile(t, f, "upstream")
	}

	vcxproj := filepath.Join(freetypeProjDir(freetype), "freetype.vcxproj")
	writeFile(t, vcxproj, "upstream")
	writeFile(t, filepath.Join(w.files, "freetype", "freetype.vcxproj"), "ours")
	if err := m.installOwned(filepath.Join(w.files, "freetype", "freetype.vcxproj"), vcxproj); err != nil {
		t.Fatal(err)
	}

	for range 2 {
		if err := m.Clean(); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range generated {
		if exists(f) {
			t.Errorf("%s not removed", f)
		}
	}
	for _, f := range kept {
		if !exists(f) {
			t.Errorf("%s removed", f)
		}
	}
	if got := readFile(t, vcxproj); got != "upstream" {
		t.Errorf("freetype project = %q", got)
	}
	for rel, want := range rdkitSources {
		if got := w.rdkitFile(t, rel); got != want {
			t.Errorf("%s not restored", rel)
		}
	}

	sts, err := m.Status()
	if err != nil {
		t.Fatal(err)
	}
	for _, st := range sts {
		if st.State == patch.Patched {
			t.Errorf("%s still patched", st.Path)
		}
	}
}

func TestCleanRemovesCreatedTemplates(t *testing.T) {
	w := newWorkspace(t, "2021_09_4")
	m := w.maker(t, config.Windows, &recorder{}, nil)
	tmpl := filepath.Join(w.files, "pixman", "config.h")
	dst := filepath.Join(w.dep("pixman-0.40.0"), "pixman", "config.h")
	writeFile(t, tmpl, "/* ours */")
	writeFile(t, filepath.Join(w.dep("pixman-0.40.0"), "pixman", "pixman.h"), "upstream")

	for range 2 {
		if err := m.installOwned(tmpl, dst); err != nil {
			t.Fatal(err)
		}
	}
	if exists(patch.BackupPath(dst)) {
		t.Error("template without upstream version was backed up")
	}
	sts, err := m.Status()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, st := range sts {
		if st.Path == dst {
			found = true
			if st.Missing || st.State != patch.Created {
				t.Errorf("status of %s = %+v", dst, st)
			}
		}
	}
	if !found {
		t.Errorf("status lacks %s", dst)
	}

	if err := m.Clean(); err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{dst, patch.BackupPath(dst), patch.CreatedPath(dst)} {
		if exists(p) {
			t.Errorf("%s left after clean", p)
		}
	}
}

func TestCleanWithoutOptionalRoots(t *testing.T) {
	w := newWorkspace(t, "2021_09_4")
	m := w.maker(t, config.Linux, &recorder{}, nil)
	if err := m.Clean(); err != nil {
		t.Fatal(err)
	}
	if err := m.CleanZlib(); err != nil {
		t.Fatal(err)
	}
}

func TestStatusReportsMissing(t *testing.T) {
	w := newWorkspace(t, "2021_09_4")
	m := w.maker(t, config.Linux, &recorder{}, nil)
	sts, err := m.Status()
	if err != nil {
		t.Fatal(err)
	}
	if len(sts) != len(PatchedFiles) {
		t.Fatalf("%d entries, want %d", len(sts), len(PatchedFiles))
	}
	for _, st := range sts {
		if !st.Missing {
			t.Errorf("%s not reported missing", st.Path)
		}
	}
}
