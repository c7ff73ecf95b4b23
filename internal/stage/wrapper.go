package stage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/beevik/etree"

	"github.com/goplus/rdkitwrap/internal/config"
	"github.com/goplus/rdkitwrap/internal/patch"
	"github.com/goplus/rdkitwrap/x/dotnet"
)

const (
	projectName = "RDKit2DotNet"
	packageID   = "RDKit.DotNetWrap"
	loaderFile  = "RDKFuncsPINVOKE_Loader.cs"
)

// TestProjects are the sample projects copied next to the wrapper, each
// referencing the package being built.
var TestProjects = []string{"RDKit2DotNetTest", "RDKit2DotNetTest2", "NuGetExample", "NuGetExample2"}

// Solutions are copied next to the wrapper together with the test projects.
var Solutions = []string{"RDKit2DotNet.sln", "NuGetExample.sln"}

type swigPatch struct {
	file  string // relative to the swig_csharp directory
	rules []patch.Rule
}

// swigPatches returns the edits made to the C# sources SWIG generated.
// SWIG regenerates these files on every build so no backup is kept; each
// rule leaves already patched text unchanged.
func (m *Maker) swigPatches() []swigPatch {
	var ps []swigPatch
	if m.oldSwig() {
		ps = append(ps,
			swigPatch{"PropertyPickleOptions.cs", []patch.Rule{
				patch.Replace(`BOOST_BINARY\(\s*([01]+)\s*\)`, "0b${1}"),
			}},
			swigPatch{"RDKFuncs.cs", []patch.Rule{
				patch.Replace(`public static double DiceSimilarity\([^\}]*\.DiceSimilarity__SWIG_(12|13|14)\([^\}]*\}`, ""),
			}},
		)
	}
	if m.cfg.Enabled(config.SwigPatch) {
		ps = append(ps, swigPatch{"CXSmilesFields.cs", []patch.Rule{
			patch.Replace(`std::numeric_limits<\s*std::int32_t\s*>::max\(\)`, "0x7fffffff"),
		}})
	}
	return append(ps, swigPatch{"RDKFuncsPINVOKE.cs", []patch.Rule{
		patch.Replace(`(partial )?class RDKFuncsPINVOKE\s*\{`, "partial class RDKFuncsPINVOKE {"),
		patch.Replace(`static SWIGExceptionHelper\(\)\s*\{(\s*RDKFuncsPINVOKE\.LoadDll\(\);)?`,
			"static SWIGExceptionHelper() { RDKFuncsPINVOKE.LoadDll();"),
	}})
}

// PatchSwigOutput fixes the generated C# sources and installs the native
// library loader next to them.
func (m *Maker) PatchSwigOutput() error {
	dir := m.cfg.SwigCSharpDir()
	if m.dryRun {
		m.log.Info("dry run: skipping SWIG output", "dir", dir)
		return nil
	}
	for _, p := range m.swigPatches() {
		if _, err := m.patch.Apply(filepath.Join(dir, p.file), false, p.rules...); err != nil {
			return err
		}
	}
	return copyFile(m.template("rdkit", loaderFile), filepath.Join(dir, loaderFile))
}

// BuildWrapper patches the SWIG output, prepares the RDKit2DotNet project
// and the sample projects, then builds the wrapper assembly.
func (m *Maker) BuildWrapper(ctx context.Context) error {
	if err := m.PatchSwigOutput(); err != nil {
		return err
	}
	dir, err := m.prepareProject()
	if err != nil {
		return err
	}
	if err := m.prepareSamples(); err != nil {
		return err
	}
	m.log.Info("building wrapper", "dir", dir)
	if err := dotnet.Restore(ctx, m.run, dir); err != nil {
		return err
	}
	return dotnet.Build(ctx, m.run, dir, projectName+".csproj")
}

func (m *Maker) projectDir() string {
	return filepath.Join(m.cfg.WrapperDir(), projectName)
}

// prepareProject copies the project template and stamps it with the
// version, the signing key and a link for every native library.
func (m *Maker) prepareProject() (string, error) {
	dir := m.projectDir()
	if err := copyTree(m.template("rdkit", projectName), dir); err != nil {
		return "", err
	}

	signing := etree.NewElement("PropertyGroup")
	signing.CreateAttr("Label", "Signing")
	signing.CreateElement("SignAssembly").SetText("true")
	signing.CreateElement("AssemblyOriginatorKeyFile").SetText("rdkit2dotnet.snk")

	natives := etree.NewElement("ItemGroup")
	natives.CreateAttr("Label", "NativeLibraries")
	for _, a := range config.AllArches {
		names, err := m.nativeNames(m.cfg.Platform(), a)
		if err != nil {
			return "", err
		}
		p, cpu := string(m.cfg.Platform()), string(a)
		for _, name := range names {
			item := natives.CreateElement("None")
			item.CreateAttr("Include", `..\`+p+`\`+cpu+`\`+name)
			item.CreateAttr("Link", `runtimes\`+p+"-"+cpu+`\native\`+name)
			item.CreateElement("CopyToOutputDirectory").SetText("PreserveNewest")
		}
	}

	version := m.cfg.AssemblyVersion()
	_, err := m.patch.ApplyTree(filepath.Join(dir, projectName+".csproj"), false,
		patch.SetText("/Project/PropertyGroup[1]/AssemblyVersion", version),
		patch.SetText("/Project/PropertyGroup[1]/FileVersion", version),
		patch.ReplaceChild("/Project", "Label", signing),
		patch.ReplaceChild("/Project", "Label", natives),
	)
	return dir, err
}

// prepareSamples copies the sample projects and solutions, pinning their
// package reference to the version being built.
func (m *Maker) prepareSamples() error {
	wrapper := m.cfg.WrapperDir()
	version := m.cfg.PackageVersion()
	for _, name := range TestProjects {
		dst := filepath.Join(wrapper, name)
		if err := copyTree(m.template("rdkit", name), dst); err != nil {
			return err
		}
		ref := "//PackageReference[@Include='" + packageID + "']"
		if _, err := m.patch.ApplyTree(filepath.Join(dst, name+".csproj"), false, patch.SetAttr(ref, "Version", version)); err != nil {
			return err
		}
	}
	for _, sln := range Solutions {
		if err := copyFile(m.template("rdkit", sln), filepath.Join(wrapper, sln)); err != nil {
			return err
		}
		m.log.Info("sample solution ready", "path", filepath.Join(wrapper, sln))
	}
	return nil
}

// nativeNames lists the file names assembled for p and a by CopyNatives.
func (m *Maker) nativeNames(p config.Platform, a config.Arch) ([]string, error) {
	ents, err := os.ReadDir(m.cfg.NativeDirFor(p, a))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
