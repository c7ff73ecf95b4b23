// Package msbuild wraps MSBuild release builds.
package msbuild

import "context"

// Runner runs an external command in dir.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// Args returns the MSBuild arguments building proj in the Release
// configuration for platform ("Win32" or "x64").
func Args(proj, platform string) []string {
	return []string{proj, "/p:Configuration=Release,Platform=" + platform, "/maxcpucount"}
}

// Build runs MSBuild on proj inside dir.
func Build(ctx context.Context, r Runner, dir, proj, platform string) error {
	return r.Run(ctx, dir, "MSBuild", Args(proj, platform)...)
}
