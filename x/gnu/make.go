// Package gnu wraps GNU build tools.
package gnu

import "context"

// Runner runs an external command in dir.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// Make runs "make -j [targets...]" in dir. No target builds the default
// goal.
func Make(ctx context.Context, r Runner, dir string, targets ...string) error {
	return r.Run(ctx, dir, "make", append([]string{"-j"}, targets...)...)
}
