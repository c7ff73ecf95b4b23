package stage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goplus/rdkitwrap/internal/config"
	"github.com/goplus/rdkitwrap/internal/patch"
	"github.com/goplus/rdkitwrap/x/cmake"
	"github.com/goplus/rdkitwrap/x/gnu"
	"github.com/goplus/rdkitwrap/x/msbuild"
)

// PatchedFiles lists, relative to RDKIT_DIR, every upstream RDKit file the
// tool may modify. Each is backed up before its first modification.
var PatchedFiles = []string{
	"Code/RDStreams/streams.cpp",
	"Code/RDStreams/streams.h",
	"Code/JavaWrappers/csharp_wrapper/GraphMolCSharp.i",
	"Code/JavaWrappers/csharp_wrapper/CMakeLists.txt",
	"Code/JavaWrappers/Descriptors.i",
	"Code/JavaWrappers/MolSupplier.i",
	"Code/JavaWrappers/Streams.i",
	"Code/JavaWrappers/MolDraw2D.i",
	"Code/GraphMol/Descriptors/MolDescriptors.h",
	"Code/GraphMol/MolDraw2D/MolDraw2D.h",
}

type filePatch struct {
	path  string // relative to RDKIT_DIR
	rules []patch.Rule
}

func lines(s string) []string {
	return strings.Split(strings.TrimPrefix(s, "\n"), "\n")
}

const cairoDrawIncludes = `
#ifdef RDK_BUILD_CAIRO_SUPPORT
#include <GraphMol/MolDraw2D/MolDraw2DCairo.h>
#endif`

const cairoDrawSwigIncludes = `
#ifdef RDK_BUILD_CAIRO_SUPPORT
%include <GraphMol/MolDraw2D/MolDraw2DCairo.h>
#endif`

const swigFlags = `
if(RDK_BUILD_DESCRIPTORS3D)
  SET(CMAKE_SWIG_FLAGS ${CMAKE_SWIG_FLAGS} "-DRDK_BUILD_DESCRIPTORS3D")
endif()
if(RDK_BUILD_CAIRO_SUPPORT)
  SET(CMAKE_SWIG_FLAGS ${CMAKE_SWIG_FLAGS} "-DRDK_BUILD_CAIRO_SUPPORT")
endif()`

const descriptorIncludes = `
#include <GraphMol/Descriptors/AtomFeat.h>
#include <GraphMol/Descriptors/USRDescriptor.h>
#include <GraphMol/Depictor/RDDepictor.h>
#ifdef RDK_BUILD_DESCRIPTORS3D
#include <GraphMol/Descriptors/MolDescriptors3D.h>
#endif`

const descriptorSwigIncludes = `
%include <GraphMol/Descriptors/AUTOCORR2D.h>
%include <GraphMol/Descriptors/AtomFeat.h>
#ifdef RDK_HAS_EIGEN3
%include <GraphMol/Descriptors/BCUT.h>
#endif
#ifdef RDK_BUILD_DESCRIPTORS3D
%include <GraphMol/Descriptors/AUTOCORR3D.h>
%include <GraphMol/Descriptors/CoulombMat.h>
%include <GraphMol/Descriptors/EEM.h>
%include <GraphMol/Descriptors/GETAWAY.h>
%include <GraphMol/Descriptors/MORSE.h>
%include <GraphMol/Descriptors/PBF.h>
%include <GraphMol/Descriptors/PMI.h>
%include <GraphMol/Descriptors/RDF.h>
%include <GraphMol/Descriptors/WHIM.h>
%include <GraphMol/Descriptors/MolDescriptors3D.h>
#endif`

// interfacePatches returns the edits made to the RDKit tree before cmake
// runs, one entry per file.
func (m *Maker) interfacePatches() []filePatch {
	csharp := []patch.Rule{
		patch.InsertAfter("%shared_ptr(RDKit::QueryOps)",
			"%shared_ptr(RDKit::MolBundle)",
			"%shared_ptr(RDKit::FixedMolSizeMolBundle)"),
		patch.InsertAfter("%shared_ptr(RDKit::SmilesParseException)",
			"%shared_ptr(RDKit::MolPicklerException)"),
		patch.InsertAfter(`%include "../QueryOps.i"`, `%include "../MolBundle.i"`),
		patch.InsertAfter(`%include "../Trajectory.i"`, `%include "../MolStandardize.i"`),
		patch.InsertAfter(`%include "../SubstanceGroup.i"`, `%include "../MolEnumerator.i"`),
	}
	if m.oldSwig() {
		csharp = append(csharp,
			patch.Literal("boost::int32_t", "int32_t"),
			patch.Literal("boost::uint32_t", "uint32_t"))
	}
	return []filePatch{
		{"Code/JavaWrappers/csharp_wrapper/GraphMolCSharp.i", csharp},
		{"Code/JavaWrappers/csharp_wrapper/CMakeLists.txt", []patch.Rule{
			patch.InsertAfter("SET(CMAKE_SWIG_OUTDIR ${CMAKE_CURRENT_SOURCE_DIR}/swig_csharp )", lines(swigFlags)...),
		}},
		{"Code/JavaWrappers/MolDraw2D.i", []patch.Rule{
			patch.InsertAfter("#include <GraphMol/MolDraw2D/MolDraw2DSVG.h>", lines(cairoDrawIncludes)...),
			patch.InsertAfter("%include <GraphMol/MolDraw2D/MolDraw2DSVG.h>", lines(cairoDrawSwigIncludes)...),
		}},
		{"Code/GraphMol/MolDraw2D/MolDraw2D.h", []patch.Rule{
			patch.InsertAfter("  const MolDrawOptions &drawOptions() const { return options_; }",
				"  void setDrawOptions(const RDKit::MolDrawOptions &opts) { drawOptions() = opts; }"),
		}},
		{"Code/JavaWrappers/Descriptors.i", []patch.Rule{
			patch.InsertAfter("#include <GraphMol/Descriptors/MolDescriptors.h>", lines(descriptorIncludes)...),
			patch.InsertAfter("%include <GraphMol/Descriptors/MQN.h>", lines(descriptorSwigIncludes)...),
		}},
		{"Code/GraphMol/Descriptors/MolDescriptors.h", []patch.Rule{
			patch.InsertAfter("#include <GraphMol/Descriptors/MQN.h>", "#include <GraphMol/Descriptors/BCUT.h>"),
		}},
		{"Code/JavaWrappers/MolSupplier.i", []patch.Rule{
			patch.Literal("%extend RDKit::ForwardSDMolSupplier {\n", "#ifdef RDK_USE_BOOST_IOSTREAMS\n%extend RDKit::ForwardSDMolSupplier {\n"),
			patch.Literal("};\n", "};\n#endif\n"),
		}},
		{"Code/JavaWrappers/Streams.i", []patch.Rule{
			patch.Literal("%extend RDKit::gzstream {\n", "#ifdef RDK_USE_BOOST_IOSTREAMS\n%extend RDKit::gzstream {\n"),
			patch.Literal("%include <../RDStreams/streams.h>", "#endif\n%include <../RDStreams/streams.h>"),
		}},
	}
}

// oldSwig reports whether the SWIG workarounds for releases before
// 2021_03_2 apply.
func (m *Maker) oldSwig() bool {
	return m.cfg.Enabled(config.SwigPatch) && !m.cfg.Release().AtLeast(2021, 3, 2)
}

// PatchRDKit applies the interface patches to the RDKit tree.
func (m *Maker) PatchRDKit() error {
	for _, p := range m.interfacePatches() {
		file := filepath.Join(m.cfg.RDKitDir(), filepath.FromSlash(p.path))
		if _, err := m.patch.Apply(file, true, p.rules...); err != nil {
			return err
		}
	}
	return nil
}

// RDKitCMake returns the cmake invocation configuring RDKit.
func (m *Maker) RDKitCMake() (*cmake.CMake, error) {
	cfg := m.cfg
	c := cmake.New(cfg.RDKitDir(), cfg.RDKitBuildDir())
	if err := m.generator(c); err != nil {
		return nil, err
	}
	c.Flag("-Wdev")

	csharp := cfg.Lang() == config.CSharp
	c.DefineBool("RDK_BUILD_SWIG_WRAPPERS", csharp)
	c.DefineBool("RDK_BUILD_SWIG_CSHARP_WRAPPER", csharp)
	c.DefineBool("RDK_BUILD_SWIG_JAVA_WRAPPER", false)
	c.DefineBool("RDK_BUILD_PYTHON_WRAPPERS", false)

	if cfg.Has(config.Boost) {
		root, _ := cfg.Root(config.Boost)
		libDir, err := cfg.BoostLibDir()
		if err != nil {
			return nil, err
		}
		c.DefinePath("BOOST_ROOT", root)
		c.DefinePath("BOOST_INCLUDEDIR", root)
		c.DefinePath("BOOST_LIBRARYDIR", libDir)
	}
	if cfg.Has(config.Eigen) {
		root, _ := cfg.Root(config.Eigen)
		c.DefinePath("EIGEN3_INCLUDE_DIR", root)
	}
	if cfg.Has(config.Zlib) {
		root, _ := cfg.Root(config.Zlib)
		lib, err := cfg.ZlibLib()
		if err != nil {
			return nil, err
		}
		c.DefineFile("ZLIB_LIBRARIES", lib)
		c.DefinePath("ZLIB_INCLUDE_DIRS", root)
	}
	cairo := cfg.Enabled(config.CairoSupport)
	if cairo && cfg.Has(config.Cairo) {
		root, _ := cfg.Root(config.Cairo)
		out, err := cfg.MSBuildOutDir(config.Cairo, vcProjDir)
		if err != nil {
			return nil, err
		}
		c.DefinePath("CAIRO_INCLUDE_DIRS", filepath.Join(root, "src"))
		c.DefineFile("CAIRO_LIBRARIES", filepath.Join(out, "cairo.lib"))
	}

	test := cfg.Enabled(config.EnableTest)
	boost := cfg.Enabled(config.UseBoost)
	external := !cfg.Enabled(config.LimitExternal)
	c.DefineBool("RDK_INSTALL_INTREE", true)
	c.DefineBool("RDK_BUILD_CPP_TESTS", test)
	c.DefineBool("RDK_USE_BOOST_SERIALIZATION", boost)
	c.DefineBool("RDK_USE_BOOST_IOSTREAMS", boost)
	c.DefineBool("RDK_USE_BOOST_REGEX", boost)
	c.DefineBool("Boost_NO_BOOST_CMAKE", true)
	c.DefineBool("RDK_BUILD_COORDGEN_SUPPORT", external)
	c.DefineBool("RDK_BUILD_MAEPARSER_SUPPORT", external)
	c.DefineBool("RDK_BUILD_FREESASA_SUPPORT", external)
	c.DefineBool("RDK_BUILD_INCHI_SUPPORT", external)
	c.DefineBool("RDK_BUILD_AVALON_SUPPORT", external)
	c.DefineBool("RDK_OPTIMIZE_POPCNT", true)
	c.DefineBool("RDK_BUILD_CAIRO_SUPPORT", cairo)
	c.DefineBool("RDK_BUILD_FREETYPE_SUPPORT", cfg.Enabled(config.FreetypeSupport))
	c.DefineBool("RDK_BUILD_THREADSAFE_SSS", true)
	c.DefineBool("RDK_INSTALL_COMIC_FONTS", false)
	c.DefineBool("RDK_BUILD_TEST_GZIP", test)

	if !cfg.Release().AtLeast(2020, 9, 1) {
		return c, nil
	}
	c.DefineBool("RDK_USE_URF", true)
	static := cfg.Enabled(config.UseStaticLibs)
	c.DefineBool("RDK_SWIG_STATIC", static)
	c.DefineBool("RDK_INSTALL_STATIC_LIBS", static)
	switch cfg.Platform() {
	case config.Windows:
		if static {
			c.DefineBool("BOOST_USE_STATIC_LIBS", true)
			c.DefineBool("RDL_WIN_STATIC", true)
		} else {
			c.DefineBool("RDK_INSTALL_DLLS_MSVC", true)
		}
	case config.Linux:
		if static {
			c.DefinePath("BOOST_LIBRARYDIR", "/usr/lib/x86_64-linux-gnu")
			c.DefinePath("BOOST_ROOT", "/usr")
			c.DefineBool("BOOST_USE_STATIC_LIBS", true)
		}
	}
	if cfg.Enabled(config.FreetypeSupport) && cfg.Has(config.Freetype) {
		root, _ := cfg.Root(config.Freetype)
		out, err := cfg.MSBuildOutDir(config.Freetype, "objs")
		if err != nil {
			return nil, err
		}
		c.DefineFile("FREETYPE_LIBRARY", filepath.Join(out, "freetype.lib"))
		c.DefinePath("FREETYPE_INCLUDE_DIRS", filepath.Join(root, "include"))
	}
	return c, nil
}

// ConfigureRDKit patches the RDKit tree and runs cmake into the build
// directory.
func (m *Maker) ConfigureRDKit(ctx context.Context) error {
	c, err := m.RDKitCMake()
	if err != nil {
		return err
	}
	if err := m.PatchRDKit(); err != nil {
		return err
	}
	m.log.Info("configuring rdkit", "dir", c.BuildDir())
	return c.Configure(ctx, m.run)
}

// BuildRDKit builds the configured RDKit tree.
func (m *Maker) BuildRDKit(ctx context.Context) error {
	dir := m.cfg.RDKitBuildDir()
	m.log.Info("building rdkit", "dir", dir)
	if m.cfg.Platform() == config.Windows {
		return msbuild.Build(ctx, m.run, dir, "RDKit.sln", m.cfg.MSPlatform())
	}
	var targets []string
	if m.cfg.Lang() == config.CSharp {
		targets = append(targets, "RDKFuncs")
	}
	return gnu.Make(ctx, m.run, dir, targets...)
}

var boostDLL = regexp.MustCompile(`^.*-vc\d\d\d-mt-x(32|64)-\d_\d\d\.dll$`)

// CopyNatives assembles the RDKFuncs library and every shared library it
// loads into NativeDir, which is recreated first.
func (m *Maker) CopyNatives() error {
	files, err := m.nativeFiles()
	if err != nil {
		return err
	}
	dest := m.cfg.NativeDir()
	if m.dryRun {
		for _, f := range files {
			m.log.Info("dry run: would copy", "file", f, "dir", dest)
		}
		return nil
	}
	if err := removeIfExist(dest); err != nil {
		return err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, f := range files {
		if err := copyFile(f, dest); err != nil {
			return err
		}
	}
	m.log.Info("copied native libraries", "dir", dest, "count", len(files))
	return nil
}

func (m *Maker) nativeFiles() ([]string, error) {
	cfg := m.cfg
	build := cfg.RDKitBuildDir()
	win := cfg.Platform() == config.Windows

	var files []string
	if cfg.Lang() == config.CSharp {
		wrapper := filepath.Join(build, "Code", "JavaWrappers", "csharp_wrapper")
		if win {
			files = append(files, filepath.Join(wrapper, "Release", "RDKFuncs.dll"))
		} else {
			files = append(files, filepath.Join(wrapper, "RDKFuncs.so"))
		}
	}
	pattern := filepath.Join(build, "lib", "*.so.1")
	if win {
		pattern = filepath.Join(build, "bin", "Release", "*.dll")
	}
	libs, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	files = append(files, libs...)
	if !win || cfg.Enabled(config.UseStaticLibs) {
		return files, nil
	}
	deps, err := m.dependencyDLLs()
	if err != nil {
		return nil, err
	}
	return append(files, deps...), nil
}

// dependencyDLLs lists the shared libraries of the dependencies a Windows
// build links against dynamically.
func (m *Maker) dependencyDLLs() ([]string, error) {
	cfg := m.cfg
	root, err := cfg.Root(config.Zlib)
	if err != nil {
		return nil, err
	}
	files := []string{filepath.Join(root, cfg.DepBuildDirName(), "Release", "zlib.dll")}
	if cfg.Enabled(config.UseBoost) {
		dir, err := cfg.BoostLibDir()
		if err != nil {
			return nil, err
		}
		ents, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range ents {
			name := e.Name()
			if boostDLL.MatchString(name) && !strings.HasPrefix(name, "boost_python") {
				files = append(files, filepath.Join(dir, name))
			}
		}
	}
	if cfg.Enabled(config.FreetypeSupport) && cfg.Release().AtLeast(2020, 9, 1) {
		out, err := cfg.MSBuildOutDir(config.Freetype, "objs")
		if err != nil {
			return nil, err
		}
		files = append(files, filepath.Join(out, "freetype.dll"))
	}
	if cfg.Enabled(config.CairoSupport) {
		root, err := cfg.Root(config.Libpng)
		if err != nil {
			return nil, err
		}
		files = append(files, filepath.Join(root, cfg.DepBuildDirName(), "Release", "libpng16.dll"))
		for _, lib := range []struct {
			dep  config.Dep
			name string
		}{
			{config.Pixman, "pixman.dll"},
			{config.Cairo, "cairo.dll"},
		} {
			out, err := cfg.MSBuildOutDir(lib.dep, vcProjDir)
			if err != nil {
				return nil, err
			}
			files = append(files, filepath.Join(out, lib.name))
		}
	}
	return files, nil
}
