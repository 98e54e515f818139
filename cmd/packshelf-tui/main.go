package main

import (
	"fmt"
	"io"
	"os"

	"github.com/packshelf/packshelf/internal/config"
	"github.com/packshelf/packshelf/internal/engine"
	"github.com/packshelf/packshelf/internal/importer"
	"github.com/packshelf/packshelf/internal/tui"
	"github.com/sirupsen/logrus"
)

func main() {
	// Log lines would tear the TUI; keep logrus quiet.
	logrus.SetOutput(io.Discard)

	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	settings, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		os.Exit(1)
	}
	if settings.CatalogURL == "" {
		fmt.Fprintln(os.Stderr, "No catalog URL configured (set catalog_url or PACKSHELF_CATALOG_URL)")
		os.Exit(1)
	}

	eng := engine.New(settings, importer.NewDirImporter(settings.ImportDir), nil)
	defer eng.Close()

	if err := tui.Run(eng); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
