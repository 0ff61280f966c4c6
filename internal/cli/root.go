// Package cli defines the cobra command tree for noticeboard.
package cli

import (
	"github.com/spf13/cobra"
)

var flagEnvFile string

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "noticeboard",
		Short:         "Run the notice board API",
		Long:          "A notice board service: post announcements, comment on them and react with duplicate-safe, idempotent writes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "dotenv file loaded before reading the environment (missing file is ignored)")

	root.AddCommand(
		newServeCmd(),
		newVersionCmd(),
	)

	return root
}
