// Package cli assembles the packshelf command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "packshelf",
		Short: "Sync a remote package catalog and download entries from it",
		Long: `packshelf synchronizes a remotely published catalog of downloadable
packages and performs security- and size-bounded downloads of its
entries, handing each verified file to the configured import step.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to settings file")

	cmd.AddCommand(NewListCmd(&configPath))
	cmd.AddCommand(NewGetCmd(&configPath))

	return cmd
}
