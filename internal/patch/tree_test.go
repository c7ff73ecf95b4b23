package patch

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
)

const csproj = `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <AssemblyVersion>1.0.0.0</AssemblyVersion>
    <FileVersion>1.0.0.0</FileVersion>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="RDKit.DotNetWrap" Version="0.0.0.1" />
    <PackageReference Include="NUnit" Version="3.13.2" />
  </ItemGroup>
</Project>
`

func nativeGroup(dll string) *etree.Element {
	ig := etree.NewElement("ItemGroup")
	ig.CreateAttr("Label", "natives")
	none := ig.CreateElement("None")
	none.CreateAttr("Include", `..\win\x64\`+dll)
	return ig
}

func csprojEdits(dll string) []TreeEdit {
	return []TreeEdit{
		SetText("//AssemblyVersion", "0.2109.4.1"),
		SetText("//FileVersion", "0.2109.4.1"),
		SetAttr("//PackageReference[@Include='RDKit.DotNetWrap']", "Version", "0.2021094.1"),
		ReplaceChild("/Project", "Label", nativeGroup(dll)),
	}
}

func TestApplyTree(t *testing.T) {
	file := filepath.Join(t.TempDir(), "RDKit2DotNet.csproj")
	writeFile(t, file, csproj)
	e := New(nil)

	changed, err := e.ApplyTree(file, true, csprojEdits("RDKFuncs.dll")...)
	if err != nil || !changed {
		t.Fatalf("ApplyTree = %v, %v", changed, err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromFile(file); err != nil {
		t.Fatal(err)
	}
	if got := doc.FindElement("//AssemblyVersion").Text(); got != "0.2109.4.1" {
		t.Errorf("AssemblyVersion = %q", got)
	}
	if got := doc.FindElement("//PackageReference[@Include='RDKit.DotNetWrap']").SelectAttrValue("Version", ""); got != "0.2021094.1" {
		t.Errorf("RDKit.DotNetWrap version = %q", got)
	}
	if got := doc.FindElement("//PackageReference[@Include='NUnit']").SelectAttrValue("Version", ""); got != "3.13.2" {
		t.Errorf("NUnit version = %q", got)
	}
	if n := len(doc.FindElements("/Project/ItemGroup[@Label='natives']")); n != 1 {
		t.Errorf("%d native item groups, want 1", n)
	}
}

func TestApplyTreeIsIdempotent(t *testing.T) {
	for _, backup := range []bool{true, false} {
		file := filepath.Join(t.TempDir(), "NuGetExample.csproj")
		writeFile(t, file, csproj)
		e := New(nil)

		if _, err := e.ApplyTree(file, backup, csprojEdits("RDKFuncs.dll")...); err != nil {
			t.Fatal(err)
		}
		first := readFile(t, file)
		changed, err := e.ApplyTree(file, backup, csprojEdits("RDKFuncs.dll")...)
		if err != nil {
			t.Fatal(err)
		}
		if changed || readFile(t, file) != first {
			t.Errorf("backup=%v: second ApplyTree changed the file", backup)
		}

		// Re-adding an owned node with new content replaces it.
		if _, err := e.ApplyTree(file, backup, csprojEdits("cairo.dll")...); err != nil {
			t.Fatal(err)
		}
		got := readFile(t, file)
		if strings.Count(got, `Label="natives"`) != 1 {
			t.Errorf("backup=%v: owned ItemGroup duplicated:\n%s", backup, got)
		}
		if strings.Contains(got, "RDKFuncs.dll") || !strings.Contains(got, "cairo.dll") {
			t.Errorf("backup=%v: owned ItemGroup not replaced:\n%s", backup, got)
		}
	}
}

func TestApplyTreeRestore(t *testing.T) {
	file := filepath.Join(t.TempDir(), "pixman.vcxproj")
	writeFile(t, file, csproj)
	e := New(nil)

	if _, err := e.ApplyTree(file, true, csprojEdits("pixman.dll")...); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Restore(file); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, file); got != csproj {
		t.Errorf("restored content differs:\n%s", got)
	}
}

func TestApplyTreeMalformed(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"broken.csproj": "<Project><<</Project>",
		"empty.csproj":  "",
	} {
		file := filepath.Join(dir, name)
		writeFile(t, file, content)
		_, err := New(nil).ApplyTree(file, true, SetText("//AssemblyVersion", "1"))
		var merr *MalformedError
		if !errors.As(err, &merr) {
			t.Errorf("%s: err = %v, want *MalformedError", name, err)
			continue
		}
		if merr.Path != file {
			t.Errorf("%s: Path = %q", name, merr.Path)
		}
		if got := readFile(t, file); got != content {
			t.Errorf("%s: malformed file was rewritten", name)
		}
	}
}

func TestApplyTreeMissingElement(t *testing.T) {
	file := filepath.Join(t.TempDir(), "freetype.vcxproj")
	writeFile(t, file, csproj)
	_, err := New(nil).ApplyTree(file, false, SetText("//VCProjectVersion", "16.0"))
	if !errors.Is(err, ErrNoElement) {
		t.Fatalf("err = %v, want ErrNoElement", err)
	}
	if got := readFile(t, file); got != csproj {
		t.Error("file changed after a failed edit")
	}
}

func TestReplaceChildNeedsKey(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cairo.vcxproj")
	writeFile(t, file, csproj)
	_, err := New(nil).ApplyTree(file, false, ReplaceChild("/Project", "Label", etree.NewElement("ItemGroup")))
	if err == nil {
		t.Fatal("ReplaceChild without a key attribute should fail")
	}
}
