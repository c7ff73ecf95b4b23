package config

import (
	"fmt"
	"path/filepath"
)

// Every method in this file is a pure function of Config. Call sites must go
// through these instead of rebuilding the strings themselves.

// PackageVersion returns the NuGet package version, e.g. "0.2021094.1" for
// release 2021_09_4 and minor version 1.
func (c *Config) PackageVersion() string {
	r := c.release
	return fmt.Sprintf("0.%04d%02d%d.%d", r.Year, r.Month, r.Patch, c.minor)
}

// AssemblyVersion returns the .NET assembly version, e.g. "0.2109.4.1".
// Assembly version components are limited to 16 bits, hence the two-digit year.
func (c *Config) AssemblyVersion() string {
	r := c.release
	return fmt.Sprintf("0.%02d%02d.%d.%d", r.Year%100, r.Month, r.Patch, c.minor)
}

// DepBuildDirName returns the per-architecture build directory used inside
// dependency trees, e.g. "buildx64".
func (c *Config) DepBuildDirName() string {
	return "build" + string(c.arch)
}

// RDKitBuildDirName returns the RDKit build directory name, e.g.
// "buildwinx64CSharp".
func (c *Config) RDKitBuildDirName() string {
	return RDKitBuildDirNameFor(c.platform, c.arch, c.lang)
}

// RDKitBuildDirNameFor is RDKitBuildDirName for an explicit combination; clean
// uses it to enumerate every directory a previous run may have left behind.
func RDKitBuildDirNameFor(p Platform, a Arch, l Lang) string {
	return "build" + string(p) + string(a) + l.dirSuffix()
}

// RDKitBuildDir returns the absolute RDKit build directory.
func (c *Config) RDKitBuildDir() string {
	return filepath.Join(c.RDKitDir(), c.RDKitBuildDirName())
}

// WrapperDir returns RDKit's csharp_wrapper directory.
func (c *Config) WrapperDir() string {
	return filepath.Join(c.RDKitDir(), "Code", "JavaWrappers", "csharp_wrapper")
}

// SwigCSharpDir returns the directory SWIG writes the C# sources to.
func (c *Config) SwigCSharpDir() string {
	return filepath.Join(c.WrapperDir(), "swig_csharp")
}

// NativeDir returns where the native binaries of the target platform and
// architecture are assembled.
func (c *Config) NativeDir() string {
	return c.NativeDirFor(c.platform, c.arch)
}

// NativeDirFor returns the native binary directory of p and a.
func (c *Config) NativeDirFor(p Platform, a Arch) string {
	return filepath.Join(c.WrapperDir(), string(p), string(a))
}

// RuntimeID returns the NuGet runtime identifier, e.g. "win-x64".
func (c *Config) RuntimeID() string {
	return RuntimeIDFor(c.platform, c.arch)
}

// RuntimeIDFor returns the NuGet runtime identifier of p and a.
func RuntimeIDFor(p Platform, a Arch) string {
	return string(p) + "-" + string(a)
}

// MSPlatform returns the MSBuild platform name of the target architecture.
func (c *Config) MSPlatform() string {
	return MSPlatformFor(c.arch)
}

// MSPlatformFor returns the MSBuild platform name of a.
func MSPlatformFor(a Arch) string {
	if a == X86 {
		return "Win32"
	}
	return "x64"
}

// AddressModel returns the pointer width of the target architecture.
func (c *Config) AddressModel() int {
	if c.arch == X86 {
		return 32
	}
	return 64
}

// MSVCVersion returns the internal MSVC version, e.g. "14.2".
func (c *Config) MSVCVersion() (string, error) {
	vs, err := c.VSVersion()
	if err != nil {
		return "", err
	}
	return msvcVersions[vs], nil
}

// PlatformToolset returns the MSBuild platform toolset, e.g. "v142".
func (c *Config) PlatformToolset() (string, error) {
	msvc, err := c.MSVCVersion()
	if err != nil {
		return "", err
	}
	return "v" + msvc[:2] + msvc[3:], nil
}

// Generator returns the CMake generator and, when required, the -A platform
// argument for the target.
func (c *Config) Generator() (name, platform string, err error) {
	if c.platform == Linux {
		return "Unix Makefiles", "", nil
	}
	vs, err := c.VSVersion()
	if err != nil {
		return "", "", err
	}
	switch vs {
	case "15.0":
		if c.arch == X64 {
			return "Visual Studio 15 2017 Win64", "", nil
		}
		return "Visual Studio 15 2017", "", nil
	default:
		if c.arch == X86 {
			return "Visual Studio 16 2019", "Win32", nil
		}
		return "Visual Studio 16 2019", "", nil
	}
}

// BoostLibDir returns the directory holding the prebuilt Boost binaries,
// e.g. "<BOOST_DIR>/lib64-msvc-14.2".
func (c *Config) BoostLibDir() (string, error) {
	root, err := c.Root(Boost)
	if err != nil {
		return "", err
	}
	msvc, err := c.MSVCVersion()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, fmt.Sprintf("lib%d-msvc-%s", c.AddressModel(), msvc)), nil
}

// ZlibLib returns the zlib import or static library built by MakeZlib.
func (c *Config) ZlibLib() (string, error) {
	root, err := c.Root(Zlib)
	if err != nil {
		return "", err
	}
	name := "zlib.lib"
	if c.Enabled(UseStaticLibs) {
		name = "zlibstatic.lib"
	}
	return filepath.Join(root, c.DepBuildDirName(), "Release", name), nil
}

// MSBuildOutDir returns "<root>/<sub>/<MSPlatform>/Release", the layout the
// vendored Visual Studio projects build into.
func (c *Config) MSBuildOutDir(d Dep, sub string) (string, error) {
	root, err := c.Root(d)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, sub, c.MSPlatform(), "Release"), nil
}
