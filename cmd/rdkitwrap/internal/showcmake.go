package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/rdkitwrap/internal/config"
	"github.com/goplus/rdkitwrap/internal/runner"
)

var showCMakeArch string

var showCMakeCmd = &cobra.Command{
	Use:   "show-cmake",
	Short: "Print the cmake command configuring RDKit",
	Long:  `Show-cmake prints the cmake command the cmake stage would run. Nothing is patched or run.`,
	Args:  cobra.NoArgs,
	RunE:  runShowCMake,
}

func init() {
	showCMakeCmd.Flags().StringVar(&showCMakeArch, "arch", "", "Target architecture: x86, x64 or all (default from ARCH)")
	rootCmd.AddCommand(showCMakeCmd)
}

func runShowCMake(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	arches := []config.Arch{s.cfg.Arch()}
	if showCMakeArch != "" {
		if arches, err = config.SelectArches(showCMakeArch, s.cfg.Platform()); err != nil {
			return err
		}
	}
	for _, a := range arches {
		c, err := s.maker.ForArch(a).RDKitCMake()
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "cd %s\n%s\n", c.BuildDir(), runner.Cmdline("cmake", c.Args()...))
	}
	return nil
}
