// Package importer defines the hand-off boundary for downloaded
// packages. The engine only ever passes a verified local file path; how
// the file is imported is the collaborator's business.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Importer consumes a validated local file. Implementations must treat
// the path as read-only input; the caller deletes the file afterwards.
type Importer interface {
	Import(ctx context.Context, localPath string) error
}

// Func adapts a function to the Importer interface.
type Func func(ctx context.Context, localPath string) error

// Import implements Importer.
func (f Func) Import(ctx context.Context, localPath string) error {
	return f(ctx, localPath)
}

// DirImporter copies imported files into a destination directory. It is
// the default collaborator for the CLI and TUI, standing in for a
// host-specific import step.
type DirImporter struct {
	Dir string
}

// NewDirImporter creates a DirImporter rooted at dir.
func NewDirImporter(dir string) *DirImporter {
	return &DirImporter{Dir: dir}
}

// Import copies the file into the destination directory under its base
// name.
func (d *DirImporter) Import(ctx context.Context, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return fmt.Errorf("create import dir: %w", err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open payload: %w", err)
	}
	defer src.Close()

	destPath := filepath.Join(d.Dir, filepath.Base(localPath))
	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		return fmt.Errorf("copy to %s: %w", destPath, err)
	}

	return nil
}
