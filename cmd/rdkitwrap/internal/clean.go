package internal

import (
	"github.com/spf13/cobra"
)

var (
	cleanZlib  bool
	cleanRDKit bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Restore patched files and remove build outputs",
	Long: `Clean restores every file rdkitwrap patched and removes what the stages
generated. With --zlib or --rdkit only that part is cleaned.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanZlib, "zlib", false, "Clean only the zlib build")
	cleanCmd.Flags().BoolVar(&cleanRDKit, "rdkit", false, "Clean only the RDKit tree")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.close()

	if !cleanZlib && !cleanRDKit {
		if err := s.maker.Clean(); err != nil {
			return err
		}
		s.done("clean", "")
		return nil
	}
	if cleanZlib {
		if err := s.maker.CleanZlib(); err != nil {
			return err
		}
		s.done("clean zlib", "")
	}
	if cleanRDKit {
		if err := s.maker.CleanRDKit(); err != nil {
			return err
		}
		s.done("clean rdkit", "")
	}
	return nil
}
