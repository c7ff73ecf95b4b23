// Package config resolves the build parameters of one invocation.
//
// Every setting is looked up in Sources in a fixed order: explicit
// overrides, the configuration file, the process environment and finally the
// built-in default. Resolve validates everything once and returns an
// immutable Config; values derived from it (directory names, version
// strings) are computed by methods on Config and never cached.
package config

import (
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
)

// Arch is a target CPU architecture.
type Arch string

const (
	X86 Arch = "x86"
	X64 Arch = "x64"
)

// AllArches lists the supported architectures in build order.
var AllArches = []Arch{X86, X64}

// Platform is a target operating system.
type Platform string

const (
	Windows Platform = "win"
	Linux   Platform = "linux"
)

// AllPlatforms lists the supported platforms.
var AllPlatforms = []Platform{Windows, Linux}

// HostPlatform returns the platform of the running process, or "" when the
// host is not supported.
func HostPlatform() Platform {
	switch runtime.GOOS {
	case "windows":
		return Windows
	case "linux":
		return Linux
	}
	return ""
}

// Lang is the language the RDKit wrapper is generated for.
type Lang string

const (
	CSharp    Lang = "csharp"
	CPlusPlus Lang = "cpp"
)

func (l Lang) dirSuffix() string {
	if l == CSharp {
		return "CSharp"
	}
	return "cpp"
}

// Dep names an external dependency root. The value is also its setting key.
type Dep string

const (
	RDKit    Dep = "RDKIT_DIR"
	Boost    Dep = "BOOST_DIR"
	Eigen    Dep = "EIGEN_DIR"
	Zlib     Dep = "ZLIB_DIR"
	Libpng   Dep = "LIBPNG_DIR"
	Pixman   Dep = "PIXMAN_DIR"
	Freetype Dep = "FREETYPE_DIR"
	Cairo    Dep = "CAIRO_DIR"
)

// AllDeps lists every dependency root.
var AllDeps = []Dep{RDKit, Boost, Eigen, Zlib, Libpng, Pixman, Freetype, Cairo}

// windowsOnly roots are only consulted when building for Windows; on Linux
// the system packages are used instead.
var windowsOnly = []Dep{Boost, Zlib, Libpng, Pixman, Freetype, Cairo}

// Toggle names a boolean feature switch. The value is also its setting key.
type Toggle string

const (
	SwigPatch       Toggle = "SWIG_PATCH"
	CairoSupport    Toggle = "CAIRO_SUPPORT"
	FreetypeSupport Toggle = "FREETYPE_SUPPORT"
	UseBoost        Toggle = "USE_BOOST"
	EnableTest      Toggle = "ENABLE_TEST"
	LimitExternal   Toggle = "LIMIT_EXTERNAL"
	UseStaticLibs   Toggle = "USE_STATIC_LIBS"
)

// AllToggles lists every feature switch.
var AllToggles = []Toggle{SwigPatch, CairoSupport, FreetypeSupport, UseBoost, EnableTest, LimitExternal, UseStaticLibs}

// Scalar setting keys.
const (
	KeyArch      = "ARCH"
	KeyPlatform  = "PLATFORM"
	KeyLang      = "TARGET_LANG"
	KeyMinor     = "MINOR_VERSION"
	KeyFilesDir  = "FILES_DIR"
	KeyVSVersion = "VisualStudioVersion"
)

// Defaults returns the built-in default of every setting that has one.
func Defaults() map[string]string {
	d := map[string]string{
		KeyArch:                 string(X64),
		KeyLang:                 string(CSharp),
		KeyMinor:                "1",
		KeyFilesDir:             "files",
		string(SwigPatch):       "true",
		string(CairoSupport):    "true",
		string(FreetypeSupport): "true",
		string(UseBoost):        "false",
		string(EnableTest):      "false",
		string(LimitExternal):   "false",
		string(UseStaticLibs):   "false",
	}
	if p := HostPlatform(); p != "" {
		d[KeyPlatform] = string(p)
	}
	return d
}

// Known reports whether key is a setting this package understands.
func Known(key string) bool {
	switch key {
	case KeyArch, KeyPlatform, KeyLang, KeyMinor, KeyFilesDir, KeyVSVersion:
		return true
	}
	return slices.Contains(AllDeps, Dep(key)) || slices.Contains(AllToggles, Toggle(key))
}

// Sources holds the layered inputs of Resolve. Relative dependency paths
// are joined to BaseDir.
type Sources struct {
	Overrides map[string]string
	File      map[string]string
	Env       map[string]string
	Defaults  map[string]string // nil means Defaults()
	BaseDir   string
}

// Lookup returns the value of key from the first layer that has it.
func (s Sources) Lookup(key string) (string, bool) {
	defaults := s.Defaults
	if defaults == nil {
		defaults = Defaults()
	}
	for _, layer := range []map[string]string{s.Overrides, s.File, s.Env, defaults} {
		if v, ok := layer[key]; ok {
			return v, true
		}
	}
	return "", false
}

// Config is the validated, read-only configuration of one invocation.
type Config struct {
	arch      Arch
	platform  Platform
	lang      Lang
	roots     map[Dep]string
	minor     int
	toggles   map[Toggle]bool
	release   Release
	filesDir  string
	vsVersion string
}

// Resolve validates the settings found in src and returns the Config.
// It performs no I/O.
func Resolve(src Sources) (*Config, error) {
	for _, layer := range []struct {
		name string
		kv   map[string]string
	}{{"override", src.Overrides}, {"config file", src.File}} {
		for _, k := range sortedKeys(layer.kv) {
			if !Known(k) {
				return nil, &Error{Key: k, Reason: "unknown setting in " + layer.name}
			}
		}
	}

	c := &Config{
		roots:   make(map[Dep]string),
		toggles: make(map[Toggle]bool),
	}

	var err error
	if c.platform, err = resolvePlatform(src); err != nil {
		return nil, err
	}
	if c.arch, err = resolveArch(src); err != nil {
		return nil, err
	}
	if c.platform == Linux && c.arch == X86 {
		return nil, &Error{Key: KeyArch, Reason: "x86 is not supported on linux"}
	}
	lang, _ := src.Lookup(KeyLang)
	switch Lang(lang) {
	case CSharp, CPlusPlus:
		c.lang = Lang(lang)
	default:
		return nil, invalid(KeyLang, lang, "csharp or cpp")
	}

	minor, ok := src.Lookup(KeyMinor)
	if !ok {
		return nil, missing(KeyMinor)
	}
	if c.minor, err = strconv.Atoi(strings.TrimSpace(minor)); err != nil || c.minor < 0 {
		return nil, invalid(KeyMinor, minor, "a non-negative integer")
	}

	for _, t := range AllToggles {
		v, ok := src.Lookup(string(t))
		if !ok {
			return nil, missing(string(t))
		}
		b, ok := parseBool(v)
		if !ok {
			return nil, invalid(string(t), v, "a boolean")
		}
		c.toggles[t] = b
	}
	if c.toggles[LimitExternal] {
		c.toggles[CairoSupport] = false
		c.toggles[FreetypeSupport] = false
	}

	for _, d := range AllDeps {
		if c.platform != Windows && slices.Contains(windowsOnly, d) {
			continue
		}
		if v, ok := src.Lookup(string(d)); ok && strings.TrimSpace(v) != "" {
			c.roots[d] = resolvePath(src.BaseDir, strings.TrimSpace(v))
		}
	}
	rdkit, ok := c.roots[RDKit]
	if !ok {
		return nil, missing(string(RDKit))
	}
	if c.release, err = ParseRelease(rdkit); err != nil {
		return nil, err
	}

	files, _ := src.Lookup(KeyFilesDir)
	c.filesDir = resolvePath(src.BaseDir, files)

	if v, ok := src.Lookup(KeyVSVersion); ok && v != "" {
		if _, ok := msvcVersions[v]; !ok {
			return nil, invalid(KeyVSVersion, v, "15.0 or 16.0")
		}
		c.vsVersion = v
	}

	return c, nil
}

func resolvePlatform(src Sources) (Platform, error) {
	v, ok := src.Lookup(KeyPlatform)
	if !ok {
		return "", &Error{Key: KeyPlatform, Reason: "not set and host platform " + runtime.GOOS + " is unsupported"}
	}
	p := Platform(v)
	if !slices.Contains(AllPlatforms, p) {
		return "", invalid(KeyPlatform, v, "win or linux")
	}
	return p, nil
}

func resolveArch(src Sources) (Arch, error) {
	v, ok := src.Lookup(KeyArch)
	if !ok {
		return "", missing(KeyArch)
	}
	a := Arch(v)
	if !slices.Contains(AllArches, a) {
		return "", invalid(KeyArch, v, "x86 or x64")
	}
	return a, nil
}

// SelectArches expands an architecture selector ("x86", "x64" or "all")
// into the architectures to build on platform.
func SelectArches(sel string, platform Platform) ([]Arch, error) {
	switch {
	case sel == "all" || sel == "":
		if platform == Linux {
			return []Arch{X64}, nil
		}
		return slices.Clone(AllArches), nil
	case slices.Contains(AllArches, Arch(sel)):
		if platform == Linux && Arch(sel) == X86 {
			return nil, &Error{Key: KeyArch, Reason: "x86 is not supported on linux"}
		}
		return []Arch{Arch(sel)}, nil
	}
	return nil, invalid(KeyArch, sel, "x86, x64 or all")
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true, true
	case "0", "false", "off", "no":
		return false, true
	}
	return false, false
}

func resolvePath(base, p string) string {
	if base == "" || filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ForArch returns a copy of c targeting arch a.
func (c *Config) ForArch(a Arch) *Config {
	cp := *c
	cp.arch = a
	return &cp
}

// Arch returns the target architecture.
func (c *Config) Arch() Arch { return c.arch }

// Platform returns the target platform.
func (c *Config) Platform() Platform { return c.platform }

// Lang returns the wrapper target language.
func (c *Config) Lang() Lang { return c.lang }

// MinorVersion returns the package minor version.
func (c *Config) MinorVersion() int { return c.minor }

// Release returns the RDKit release derived from RDKIT_DIR.
func (c *Config) Release() Release { return c.release }

// Enabled reports whether feature switch t is on.
func (c *Config) Enabled(t Toggle) bool { return c.toggles[t] }

// FilesDir returns the directory holding the project templates.
func (c *Config) FilesDir() string { return c.filesDir }

// Has reports whether dependency root d is configured.
func (c *Config) Has(d Dep) bool {
	_, ok := c.roots[d]
	return ok
}

// Root returns the location of dependency d, failing if it is not configured.
func (c *Config) Root(d Dep) (string, error) {
	if p, ok := c.roots[d]; ok {
		return p, nil
	}
	return "", missing(string(d))
}

// RDKitDir returns the RDKit source root, which Resolve guarantees.
func (c *Config) RDKitDir() string { return c.roots[RDKit] }

var msvcVersions = map[string]string{
	"15.0": "14.1",
	"16.0": "14.2",
}

// VSVersion returns the Visual Studio version, needed only for Windows builds.
func (c *Config) VSVersion() (string, error) {
	if c.vsVersion == "" {
		return "", missing(KeyVSVersion)
	}
	return c.vsVersion, nil
}
