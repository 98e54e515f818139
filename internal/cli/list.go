package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/packshelf/packshelf/internal/config"
	"github.com/packshelf/packshelf/internal/engine"
	"github.com/packshelf/packshelf/internal/importer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command: sync the catalog and print it.
func NewListCmd(configPath *string) *cobra.Command {
	var probeSizes bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Sync the catalog and list its entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, eng, err := buildEngine(*configPath)
			if err != nil {
				return err
			}
			defer eng.Close()

			count, err := eng.Sync(cmd.Context())
			if err != nil {
				return err
			}
			logrus.Infof("Synced %d entries from %s", count, settings.CatalogURL)

			if probeSizes {
				eng.ResolveSizes(cmd.Context())
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tCATEGORY\tSIZE")
			for _, view := range eng.Snapshot() {
				size := "-"
				if view.FileSize > 0 {
					size = humanize.Bytes(uint64(view.FileSize))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", view.Name, view.Version, view.Category, size)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&probeSizes, "probe-sizes", false, "Probe unknown payload sizes via HEAD requests")

	return cmd
}

// buildEngine loads settings and wires an engine with the directory
// importer and a logging status observer.
func buildEngine(configPath string) (*config.Settings, *engine.Engine, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	if settings.CatalogURL == "" {
		return nil, nil, fmt.Errorf("no catalog URL configured (set catalog_url or PACKSHELF_CATALOG_URL)")
	}

	eng := engine.New(settings, importer.NewDirImporter(settings.ImportDir), func(event engine.StatusEvent) {
		logrus.Debug(event.Message)
	})

	return settings, eng, nil
}
