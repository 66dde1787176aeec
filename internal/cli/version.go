package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fpgapack/pkg/buildinfo"
)

// versionCommand prints build information (spec §6 ADDED "version /
// --version").
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(buildinfo.String())
			return nil
		},
	}
}
