// Package cmake wraps the cmake configure/build workflow.
package cmake

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"slices"
)

// Runner runs an external command in dir.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

type defineValue struct {
	value    string
	typeName string
}

// CMake drives CMake-based builds.
type CMake struct {
	sourceDir string
	buildDir  string
	generator string
	platform  string
	buildType string
	flags     []string
	defines   map[string]defineValue
}

// New returns a ready-to-use CMake.
func New(sourceDir, buildDir string) *CMake {
	return &CMake{
		sourceDir: sourceDir,
		buildDir:  buildDir,
		defines:   make(map[string]defineValue),
	}
}

// Generator sets the CMake generator (e.g. "Unix Makefiles") and, for
// Visual Studio generators, the -A platform. An empty platform omits -A.
func (c *CMake) Generator(name, platform string) {
	c.generator = name
	c.platform = platform
}

// BuildType sets CMAKE_BUILD_TYPE (e.g. "Release").
func (c *CMake) BuildType(name string) { c.buildType = name }

// Flag adds a raw argument placed before the definitions, e.g. "-Wdev".
func (c *CMake) Flag(arg string) { c.flags = append(c.flags, arg) }

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
}

// DefinePath adds a -D<key>:PATH=<value> definition. Backslashes are
// turned into forward slashes, which CMake accepts on every platform.
func (c *CMake) DefinePath(key, value string) {
	c.defines[key] = defineValue{value: filepath.ToSlash(value), typeName: "PATH"}
}

// DefineFile adds a -D<key>:FILEPATH=<value> definition.
func (c *CMake) DefineFile(key, value string) {
	c.defines[key] = defineValue{value: filepath.ToSlash(value), typeName: "FILEPATH"}
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.defines[key] = defineValue{value: v, typeName: "BOOL"}
}

// Args returns the arguments Configure passes to cmake.
func (c *CMake) Args() []string {
	args := []string{"-S", filepath.ToSlash(c.sourceDir), "-B", filepath.ToSlash(c.buildDir)}
	if c.generator != "" {
		args = append(args, "-G", c.generator)
	}
	if c.platform != "" {
		args = append(args, "-A", c.platform)
	}
	args = append(args, c.flags...)
	defines := c.defines
	if c.buildType != "" {
		defines = maps.Clone(c.defines)
		defines["CMAKE_BUILD_TYPE"] = defineValue{value: c.buildType, typeName: "STRING"}
	}
	return append(args, formatDefines(defines)...)
}

// Configure creates the build directory and runs cmake in it.
func (c *CMake) Configure(ctx context.Context, r Runner) error {
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return err
	}
	return r.Run(ctx, c.buildDir, "cmake", c.Args()...)
}

// Build runs "cmake --build <build>" with optional extra arguments.
func (c *CMake) Build(ctx context.Context, r Runner, args ...string) error {
	cmakeArgs := []string{"--build", c.buildDir}
	if c.buildType != "" {
		cmakeArgs = append(cmakeArgs, "--config", c.buildType)
	}
	return r.Run(ctx, c.buildDir, "cmake", append(cmakeArgs, args...)...)
}

// BuildDir returns the build directory.
func (c *CMake) BuildDir() string { return c.buildDir }

func (c *CMake) definesArgs() []string { return formatDefines(c.defines) }

func formatDefines(defines map[string]defineValue) []string {
	if len(defines) == 0 {
		return nil
	}
	keys := slices.Sorted(maps.Keys(defines))
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		d := defines[k]
		args = append(args, "-D"+k+":"+d.typeName+"="+d.value)
	}
	return args
}
