package patch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func mustApply(t *testing.T, e *Engine, file string, backup bool, rules ...Rule) bool {
	t.Helper()
	changed, err := e.Apply(file, backup, rules...)
	if err != nil {
		t.Fatalf("Apply(%s): %v", file, err)
	}
	return changed
}

const graphMolI = `%shared_ptr(RDKit::QueryOps)
%include "../QueryOps.i"
typedef boost::int32_t int32;
`

func graphMolRules() []Rule {
	return []Rule{
		InsertAfter("%shared_ptr(RDKit::QueryOps)", "%shared_ptr(RDKit::MolBundle)", "%shared_ptr(RDKit::FixedMolSizeMolBundle)"),
		InsertAfter(`%include "../QueryOps.i"`, `%include "../MolBundle.i"`),
		Replace(`boost::int32_t`, "int32_t"),
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	file := filepath.Join(t.TempDir(), "GraphMolCSharp.i")
	writeFile(t, file, graphMolI)
	e := New(nil)

	if !mustApply(t, e, file, true, graphMolRules()...) {
		t.Fatal("first Apply reported no change")
	}
	first := readFile(t, file)
	want := `%shared_ptr(RDKit::QueryOps)
%shared_ptr(RDKit::MolBundle)
%shared_ptr(RDKit::FixedMolSizeMolBundle)
%include "../QueryOps.i"
%include "../MolBundle.i"
typedef int32_t int32;
`
	if first != want {
		t.Fatalf("after first Apply:\n%s\nwant:\n%s", first, want)
	}

	if mustApply(t, e, file, true, graphMolRules()...) {
		t.Error("second Apply rewrote the file")
	}
	if got := readFile(t, file); got != first {
		t.Errorf("second Apply changed content:\n%s", got)
	}
}

func TestApplyDerivesFromBackup(t *testing.T) {
	file := filepath.Join(t.TempDir(), "Streams.i")
	writeFile(t, file, "a\nb\n")
	e := New(nil)

	mustApply(t, e, file, true, InsertAfter("a", "x"))
	// A different rule set replaces the first one instead of stacking on it.
	mustApply(t, e, file, false, InsertAfter("b", "y"))
	if got, want := readFile(t, file), "a\nb\ny\n"; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestBackupIsNeverOverwritten(t *testing.T) {
	file := filepath.Join(t.TempDir(), "MolDraw2D.h")
	writeFile(t, file, "pristine\n")
	e := New(nil)

	mustApply(t, e, file, true, Replace("pristine", "patched"))
	mustApply(t, e, file, true, Replace("pristine", "patched again"))
	if got := readFile(t, BackupPath(file)); got != "pristine\n" {
		t.Errorf("backup = %q, want pristine content", got)
	}
}

func TestRestoreReturnsPristine(t *testing.T) {
	file := filepath.Join(t.TempDir(), "MolSupplier.i")
	writeFile(t, file, graphMolI)
	e := New(nil)

	mustApply(t, e, file, true, graphMolRules()...)
	mustApply(t, e, file, true, Replace("int32", "long"))
	mustApply(t, e, file, false, graphMolRules()...)

	restored, err := e.Restore(file)
	if err != nil || !restored {
		t.Fatalf("Restore = %v, %v", restored, err)
	}
	if got := readFile(t, file); got != graphMolI {
		t.Errorf("restored content:\n%s\nwant:\n%s", got, graphMolI)
	}
	if _, err := os.Stat(BackupPath(file)); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("backup still present after Restore: %v", err)
	}

	restored, err = e.Restore(file)
	if err != nil || restored {
		t.Errorf("second Restore = %v, %v; want no-op", restored, err)
	}
}

func TestApplyToleratesMissingAnchorAndPattern(t *testing.T) {
	file := filepath.Join(t.TempDir(), "Descriptors.i")
	const content = "%include <GraphMol/Descriptors/Lipinski.h>\n"
	writeFile(t, file, content)
	e := New(nil)

	changed, err := e.Apply(file, true,
		InsertAfter("%include <GraphMol/Descriptors/MQN.h>", "%include <GraphMol/Descriptors/BCUT.h>"),
		Replace(`DiceSimilarity__SWIG_(12|13|14)`, ""),
		Literal("never there", "x"),
	)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if changed {
		t.Error("Apply reported a change")
	}
	if got := readFile(t, file); got != content {
		t.Errorf("content = %q, want %q", got, content)
	}
}

func TestApplyWritesOnlyOnChange(t *testing.T) {
	file := filepath.Join(t.TempDir(), "streams.h")
	writeFile(t, file, "unchanged\n")
	old := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.Chtimes(file, old, old); err != nil {
		t.Fatal(err)
	}

	mustApply(t, New(nil), file, false, Replace("absent", "x"))
	fi, err := os.Stat(file)
	if err != nil {
		t.Fatal(err)
	}
	if !fi.ModTime().Equal(old) {
		t.Errorf("mtime changed to %v", fi.ModTime())
	}
}

func TestBoostBinary(t *testing.T) {
	file := filepath.Join(t.TempDir(), "PropertyPickleOptions.cs")
	writeFile(t, file, "int x = BOOST_BINARY(1010);\n")
	e := New(nil)
	rules := []Rule{Replace(`BOOST_BINARY\(([01]+)\)`, "0b${1}")}

	mustApply(t, e, file, true, rules...)
	want := "int x = 0b1010;\n"
	if got := readFile(t, file); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	// Again through the backup, then directly on the patched file.
	mustApply(t, e, file, true, rules...)
	if got := readFile(t, file); got != want {
		t.Errorf("reapply through backup: got %q", got)
	}
	if _, err := e.Restore(file); err != nil {
		t.Fatal(err)
	}
	mustApply(t, e, file, false, rules...)
	mustApply(t, e, file, false, rules...)
	if got := readFile(t, file); got != want {
		t.Errorf("reapply without backup: got %q", got)
	}
}

func TestApplyMissingTarget(t *testing.T) {
	file := filepath.Join(t.TempDir(), "RDKFuncs.cs")
	_, err := New(nil).Apply(file, true, Replace("a", "b"))

	var terr *TargetMissingError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want *TargetMissingError", err)
	}
	if terr.Path != file {
		t.Errorf("Path = %q, want %q", terr.Path, file)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("error should unwrap to fs.ErrNotExist")
	}
	if _, err := os.Stat(BackupPath(file)); !errors.Is(err, fs.ErrNotExist) {
		t.Error("a backup was created for a missing target")
	}
}

func TestApplyKeepsMode(t *testing.T) {
	file := filepath.Join(t.TempDir(), "build.sh")
	if err := os.WriteFile(file, []byte("echo a\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	mustApply(t, New(nil), file, true, Literal("a", "b"))
	for _, p := range []string{file, BackupPath(file)} {
		fi, err := os.Stat(p)
		if err != nil {
			t.Fatal(err)
		}
		if fi.Mode().Perm() != 0o755 {
			t.Errorf("%s mode = %v, want 0755", p, fi.Mode().Perm())
		}
	}
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "CMakeLists.txt")
	writeFile(t, file, "SET(A B)\n")
	e := New(nil)

	st, err := e.Inspect(file)
	if err != nil || st.State != Untouched || st.Backup != "" {
		t.Fatalf("Inspect before patch = %+v, %v", st, err)
	}

	mustApply(t, e, file, true, Literal("B", "C"))
	st, err = e.Inspect(file)
	if err != nil || st.State != Patched || st.Backup != BackupPath(file) {
		t.Fatalf("Inspect after patch = %+v, %v", st, err)
	}
	if st.State.String() != "patched" {
		t.Errorf("State.String() = %q", st.State)
	}

	if _, err := e.Restore(file); err != nil {
		t.Fatal(err)
	}
	if st, _ = e.Inspect(file); st.State != Untouched {
		t.Errorf("Inspect after restore = %+v", st)
	}

	_, err = e.Inspect(filepath.Join(dir, "missing.i"))
	var terr *TargetMissingError
	if !errors.As(err, &terr) {
		t.Errorf("Inspect(missing) err = %v", err)
	}
}

func TestInstallWithoutUpstream(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "config.h.in")
	file := filepath.Join(dir, "config.h")
	writeFile(t, tmpl, "/* ours */\n")
	e := New(nil)

	for range 2 {
		if err := e.Install(tmpl, file); err != nil {
			t.Fatal(err)
		}
	}
	if got := readFile(t, file); got != "/* ours */\n" {
		t.Errorf("installed = %q", got)
	}
	if _, err := os.Stat(BackupPath(file)); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("backup of a created file: %v", err)
	}
	if st, err := e.Inspect(file); err != nil || st.State != Created || st.State.String() != "created" {
		t.Errorf("Inspect = %+v, %v", st, err)
	}

	if ok, err := e.Restore(file); err != nil || !ok {
		t.Fatalf("Restore = %v, %v", ok, err)
	}
	for _, p := range []string{file, CreatedPath(file), BackupPath(file)} {
		if _, err := os.Stat(p); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("%s left behind: %v", filepath.Base(p), err)
		}
	}
}

func TestInstallOverUpstream(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "freetype.vcxproj.in")
	file := filepath.Join(dir, "freetype.vcxproj")
	writeFile(t, tmpl, "<Project>ours</Project>")
	writeFile(t, file, "<Project>upstream</Project>")
	e := New(nil)

	for range 2 {
		if err := e.Install(tmpl, file); err != nil {
			t.Fatal(err)
		}
	}
	if got := readFile(t, BackupPath(file)); got != "<Project>upstream</Project>" {
		t.Errorf("backup = %q", got)
	}
	if _, err := os.Stat(CreatedPath(file)); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("upstream file marked as created: %v", err)
	}
	if _, err := e.Restore(file); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, file); got != "<Project>upstream</Project>" {
		t.Errorf("restored = %q", got)
	}
}

func TestBackupLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "Streams.i")
	writeFile(t, file, "%include <a>\n")
	e := New(nil)

	mustApply(t, e, file, true, Literal("<a>", "<b>"))
	if _, err := e.Restore(file); err != nil {
		t.Fatal(err)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(ents) != 1 || ents[0].Name() != "Streams.i" {
		var names []string
		for _, ent := range ents {
			names = append(names, ent.Name())
		}
		t.Errorf("directory holds %q, want only Streams.i", names)
	}
}
