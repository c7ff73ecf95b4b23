package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/goplus/rdkitwrap/internal/config"
	"github.com/goplus/rdkitwrap/internal/env"
	"github.com/goplus/rdkitwrap/internal/lockedfile"
	"github.com/goplus/rdkitwrap/internal/logging"
	"github.com/goplus/rdkitwrap/internal/patch"
	"github.com/goplus/rdkitwrap/internal/runner"
	"github.com/goplus/rdkitwrap/internal/stage"
)

const lockName = ".rdkitwrap.lock"

var (
	configFile string
	overrides  []string
	logLevel   string

	disableSwigPatch bool
	useBoost         bool
	limitExternal    bool
	noCairo          bool
	noFreetype       bool
	useStaticLibs    bool
	enableTest       bool
	targetLang       string
)

var rootCmd = &cobra.Command{
	Use:   "rdkitwrap",
	Short: "rdkitwrap builds the RDKit .NET wrapper",
	Long: `rdkitwrap builds RDKit's SWIG C# wrapper and its native dependencies,
patches the RDKit sources it needs to, and packs the result as a NuGet package.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "config.txt", "Configuration file (key=value, or YAML when ending in .yaml/.yml)")
	pf.StringArrayVar(&overrides, "set", nil, "Override a setting as KEY=VALUE (repeatable)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	pf.BoolVar(&disableSwigPatch, "disable-swig-patch", false, "Do not patch SWIG interface and output files")
	pf.BoolVar(&useBoost, "use-boost", false, "Build with Boost serialization, iostreams and regex")
	pf.BoolVar(&limitExternal, "limit-external", false, "Disable optional external libraries (implies --no-cairo --no-freetype)")
	pf.BoolVar(&noCairo, "no-cairo", false, "Build without cairo support")
	pf.BoolVar(&noFreetype, "no-freetype", false, "Build without FreeType support")
	pf.BoolVar(&useStaticLibs, "use-static-libs", false, "Link RDKit and its dependencies statically")
	pf.BoolVar(&enableTest, "enable-test", false, "Build RDKit's C++ tests")
	pf.StringVar(&targetLang, "target-lang", "", "Wrapper language (csharp or cpp)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(exitCode(err))
	}
}

// exitCode propagates the status of a failed external tool.
func exitCode(err error) int {
	var ee *runner.ExitError
	if errors.As(err, &ee) && ee.Code > 0 {
		return ee.Code
	}
	return 1
}

// flagOverrides turns the explicitly set flags into setting overrides.
func flagOverrides(cmd *cobra.Command) (map[string]string, error) {
	m := make(map[string]string)
	for _, kv := range overrides {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("--set %q: want KEY=VALUE", kv)
		}
		m[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	toggles := []struct {
		flag  string
		key   config.Toggle
		value string
	}{
		{"disable-swig-patch", config.SwigPatch, "false"},
		{"use-boost", config.UseBoost, "true"},
		{"limit-external", config.LimitExternal, "true"},
		{"no-cairo", config.CairoSupport, "false"},
		{"no-freetype", config.FreetypeSupport, "false"},
		{"use-static-libs", config.UseStaticLibs, "true"},
		{"enable-test", config.EnableTest, "true"},
	}
	flags := cmd.Flags()
	for _, t := range toggles {
		if on, _ := flags.GetBool(t.flag); on {
			m[string(t.key)] = t.value
		}
	}
	if flags.Changed("target-lang") {
		m[config.KeyLang] = targetLang
	}
	return m, nil
}

// loadConfig resolves the configuration from the flags, the configuration
// file and the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	over, err := flagOverrides(cmd)
	if err != nil {
		return nil, err
	}
	path, err := filepath.Abs(configFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}
	file, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return config.Resolve(config.Sources{
		Overrides: over,
		File:      file,
		Env:       env.Map(),
		BaseDir:   filepath.Dir(path),
	})
}

// session is everything a command needs to drive the stages.
type session struct {
	cfg    *config.Config
	log    hclog.Logger
	run    *runner.Runner
	maker  *stage.Maker
	out    io.Writer
	unlock func()
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := logging.New("rdkitwrap", logLevel, cmd.ErrOrStderr())
	r := runner.New(log)
	r.Stdout = cmd.OutOrStdout()
	r.Stderr = cmd.ErrOrStderr()
	return &session{
		cfg:    cfg,
		log:    log,
		run:    r,
		maker:  stage.New(cfg, r, patch.New(log), log),
		out:    cmd.OutOrStdout(),
		unlock: func() {},
	}, nil
}

// lock holds the workspace lock of the RDKit tree until close.
func (s *session) lock() error {
	unlock, err := lockedfile.MutexAt(filepath.Join(s.cfg.RDKitDir(), lockName)).Lock()
	if err != nil {
		return fmt.Errorf("lock workspace: %w", err)
	}
	s.unlock = unlock
	return nil
}

func (s *session) close() { s.unlock() }

func (s *session) done(what string, a config.Arch) {
	if a == "" {
		fmt.Fprintf(s.out, "%s %s\n", color.GreenString("done"), what)
		return
	}
	fmt.Fprintf(s.out, "%s %s [%s]\n", color.GreenString("done"), what, a)
}
