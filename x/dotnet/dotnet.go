// Package dotnet wraps the dotnet CLI commands used to build and pack a
// project.
package dotnet

import "context"

// Runner runs an external command in dir.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// Restore runs "dotnet restore" in dir.
func Restore(ctx context.Context, r Runner, dir string) error {
	return r.Run(ctx, dir, "dotnet", "restore")
}

// Build builds proj in the Release configuration.
func Build(ctx context.Context, r Runner, dir, proj string) error {
	return r.Run(ctx, dir, "dotnet", "build", proj, "/t:Build", "/p:Configuration=Release")
}

// Pack packs proj in the Release configuration using the given nuspec.
func Pack(ctx context.Context, r Runner, dir, proj, nuspec string) error {
	return r.Run(ctx, dir, "dotnet", "pack", proj, "-p:NuspecFile="+nuspec, "/p:Configuration=Release")
}
