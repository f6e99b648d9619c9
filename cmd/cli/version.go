package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stealsift/stealsift/pkg/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print stealsift version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stealsift version: %s\n", config.Version)
	},
}
