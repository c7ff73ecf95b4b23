package internal

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/rdkitwrap/internal/config"
	"github.com/goplus/rdkitwrap/internal/stage"
)

var (
	buildArch   string
	buildClean  bool
	buildDryRun bool

	buildZlib, buildLibpng, buildPixman, buildFreetype, buildCairo bool
	buildCMake, buildRDKit, buildRDKitOnly                         bool
	buildWrapper, buildNuget                                       bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the selected build stages",
	Long: `Build runs the selected stages. For every architecture the order is
freetype, zlib, libpng, pixman, cairo, cmake, rdkit; the wrapper and the
NuGet package are built once afterwards.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&buildArch, "arch", "", "Target architecture: x86, x64 or all (default from ARCH)")
	f.BoolVar(&buildClean, "clean", false, "Clean everything before building")
	f.BoolVarP(&buildDryRun, "dry-run", "n", false, "Print external commands instead of running them and skip steps needing their output")
	f.BoolVar(&buildZlib, "zlib", false, "Build zlib")
	f.BoolVar(&buildLibpng, "libpng", false, "Build libpng")
	f.BoolVar(&buildPixman, "pixman", false, "Build pixman")
	f.BoolVar(&buildFreetype, "freetype", false, "Build FreeType")
	f.BoolVar(&buildCairo, "cairo", false, "Build cairo")
	f.BoolVar(&buildCMake, "cmake", false, "Patch RDKit and run cmake")
	f.BoolVar(&buildRDKit, "rdkit", false, "Patch, configure and build RDKit, then collect the native libraries")
	f.BoolVar(&buildRDKitOnly, "rdkit-only", false, "Build the configured RDKit tree and collect the native libraries")
	f.BoolVar(&buildWrapper, "wrapper", false, "Build the .NET wrapper project")
	f.BoolVar(&buildNuget, "nuget", false, "Pack the NuGet package")
	rootCmd.AddCommand(buildCmd)
}

// archStep is one stage run for every selected architecture.
type archStep struct {
	name    string
	enabled bool
	run     func(m *stage.Maker, ctx context.Context) error
}

func archSteps() []archStep {
	return []archStep{
		{"freetype", buildFreetype, (*stage.Maker).MakeFreetype},
		{"zlib", buildZlib, (*stage.Maker).MakeZlib},
		{"libpng", buildLibpng, (*stage.Maker).MakeLibpng},
		{"pixman", buildPixman, (*stage.Maker).MakePixman},
		{"cairo", buildCairo, (*stage.Maker).MakeCairo},
		{"cmake", buildCMake, (*stage.Maker).ConfigureRDKit},
		{"rdkit-only", buildRDKitOnly, buildAndCollect},
		{"rdkit", buildRDKit, func(m *stage.Maker, ctx context.Context) error {
			if err := m.ConfigureRDKit(ctx); err != nil {
				return err
			}
			return buildAndCollect(m, ctx)
		}},
	}
}

// buildAndCollect takes the receiver first so it lines up with the stage
// method expressions above.
func buildAndCollect(m *stage.Maker, ctx context.Context) error {
	if err := m.BuildRDKit(ctx); err != nil {
		return err
	}
	return m.CopyNatives()
}

func runBuild(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.close()
	if buildDryRun {
		s.run.DryRun = true
		s.maker = s.maker.DryRun()
	}

	arches := []config.Arch{s.cfg.Arch()}
	if buildArch != "" {
		if arches, err = config.SelectArches(buildArch, s.cfg.Platform()); err != nil {
			return err
		}
	}
	return build(cmd.Context(), s, arches)
}

func build(ctx context.Context, s *session, arches []config.Arch) error {
	if buildClean {
		if err := s.maker.Clean(); err != nil {
			return fmt.Errorf("clean: %w", err)
		}
		s.done("clean", "")
	}
	for _, a := range arches {
		m := s.maker.ForArch(a)
		for _, st := range archSteps() {
			if !st.enabled {
				continue
			}
			if err := st.run(m, ctx); err != nil {
				return fmt.Errorf("%s [%s]: %w", st.name, a, err)
			}
			s.done(st.name, a)
		}
	}

	m := s.maker.ForArch(config.X64)
	if buildWrapper {
		if err := m.BuildWrapper(ctx); err != nil {
			return fmt.Errorf("wrapper: %w", err)
		}
		s.done("wrapper", "")
	}
	if buildNuget {
		if err := m.BuildPackage(ctx); err != nil {
			return fmt.Errorf("nuget: %w", err)
		}
		s.done("nuget", "")
	}
	return nil
}
