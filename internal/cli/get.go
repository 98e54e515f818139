package cli

import (
	"fmt"

	"github.com/packshelf/packshelf/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewGetCmd creates the get command: sync, then download the named
// entries (or everything with --all).
func NewGetCmd(configPath *string) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "get [name]...",
		Short: "Download catalog entries and hand them to the importer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("name at least one entry, or pass --all")
			}

			_, eng, err := buildEngine(*configPath)
			if err != nil {
				return err
			}
			defer eng.Close()

			count, err := eng.Sync(cmd.Context())
			if err != nil {
				return err
			}
			logrus.Infof("Synced %d entries", count)

			names := args
			if all {
				names = nil
				for _, view := range eng.Snapshot() {
					names = append(names, view.Name)
				}
			}

			if err := eng.DownloadAll(cmd.Context(), names); err != nil {
				return err
			}

			var failed int
			for _, name := range names {
				status := eng.DownloadStatus(name)
				switch {
				case status.State == model.StateSucceeded && status.ImportErr == nil:
					logrus.Infof("%s: imported", name)
				case status.State == model.StateSucceeded:
					failed++
					logrus.Warnf("%s: downloaded but import failed: %v", name, status.ImportErr)
				case status.Err != nil:
					failed++
					logrus.Errorf("%s: %s: %v", name, status.State, status.Err)
				default:
					failed++
					logrus.Errorf("%s: %s", name, status.State)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d downloads did not complete", failed, len(names))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Download every entry in the catalog")

	return cmd
}
