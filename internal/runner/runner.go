// Package runner invokes external build tools.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/qiniu/x/gsh"

	"github.com/goplus/rdkitwrap/internal/logging"
)

// msvcCharset makes cl.exe read and write UTF-8 regardless of the code page.
const msvcCharset = "CL=/source-charset:utf-8 /execution-charset:utf-8"

// ExitError reports an external tool that exited with a non-zero status.
type ExitError struct {
	Cmdline string
	Dir     string
	Code    int
	Err     error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Cmdline, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Runner runs external commands one at a time, each in an explicit working
// directory.
type Runner struct {
	Sys    gsh.OS // environment and process execution; nil means gsh.Sys
	Stdout io.Writer
	Stderr io.Writer
	Env    []string // KEY=VALUE pairs overriding the inherited environment

	// DryRun prints command lines to Stdout instead of running them.
	DryRun bool

	log hclog.Logger
}

// New returns a Runner that executes through gsh.Sys and forwards output
// to the process's stdout and stderr.
func New(log hclog.Logger) *Runner {
	return &Runner{
		Sys:    gsh.Sys,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		log:    logging.OrNull(log).Named("runner"),
	}
}

// Run runs name with args in dir and waits for it. An empty dir means the
// current directory. A non-zero exit is returned as *ExitError.
func (r *Runner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmdline := Cmdline(name, args...)
	if r.DryRun {
		_, err := fmt.Fprintln(r.Stdout, cmdline)
		return err
	}
	r.logger().Info("run", "dir", dir, "cmd", cmdline)

	sys := r.Sys
	if sys == nil {
		sys = gsh.Sys
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Env = gsh.Setenv__2(sys.Environ(), append([]string{msvcCharset}, r.Env...))

	if err := sys.Run(cmd); err != nil {
		var coded interface{ ExitCode() int }
		if errors.As(err, &coded) && coded.ExitCode() > 0 {
			r.logger().Warn("command failed", "cmd", cmdline, "code", coded.ExitCode())
			return &ExitError{Cmdline: cmdline, Dir: dir, Code: coded.ExitCode(), Err: err}
		}
		return fmt.Errorf("run %s: %w", cmdline, err)
	}
	return nil
}

func (r *Runner) logger() hclog.Logger {
	if r.log == nil {
		r.log = hclog.NewNullLogger()
	}
	return r.log
}

// Cmdline renders a command for display. Arguments containing a space are
// double-quoted unless they already contain a quote; empty arguments are
// dropped.
func Cmdline(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	for _, s := range append([]string{name}, args...) {
		switch {
		case s == "":
			continue
		case strings.Contains(s, `"`):
		case strings.Contains(s, " "):
			s = `"` + s + `"`
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
