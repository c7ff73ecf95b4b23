package internal

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/goplus/rdkitwrap/internal/patch"
	"github.com/goplus/rdkitwrap/internal/stage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which files are patched",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	sts, err := s.maker.Status()
	if err != nil {
		return err
	}
	for _, st := range sts {
		fmt.Fprintf(s.out, "%s %s\n", stateLabel(st), displayPath(s.cfg.RDKitDir(), st.Path))
	}
	return nil
}

func stateLabel(st stage.FileStatus) string {
	switch {
	case st.Missing:
		return color.RedString("%-9s", "missing")
	case st.State == patch.Patched, st.State == patch.Created:
		return color.YellowString("%-9s", st.State)
	}
	return color.GreenString("%-9s", st.State)
}

// displayPath shortens paths inside the RDKit tree.
func displayPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && filepath.IsLocal(rel) {
		return filepath.ToSlash(rel)
	}
	return path
}
