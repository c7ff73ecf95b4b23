package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the versions derived from the RDKit tree",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "rdkit    %s\n", cfg.Release())
	fmt.Fprintf(out, "package  %s\n", cfg.PackageVersion())
	fmt.Fprintf(out, "assembly %s\n", cfg.AssemblyVersion())
	return nil
}
