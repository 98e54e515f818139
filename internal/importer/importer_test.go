package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirImporter(t *testing.T) {
	src := filepath.Join(t.TempDir(), "pkg.unitypackage")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0644))

	dest := filepath.Join(t.TempDir(), "imported")
	imp := NewDirImporter(dest)

	require.NoError(t, imp.Import(context.Background(), src))

	data, err := os.ReadFile(filepath.Join(dest, "pkg.unitypackage"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// Source file stays; the caller owns its cleanup.
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestDirImporter_MissingSource(t *testing.T) {
	imp := NewDirImporter(t.TempDir())
	assert.Error(t, imp.Import(context.Background(), filepath.Join(t.TempDir(), "missing.bin")))
}

func TestDirImporter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	imp := NewDirImporter(t.TempDir())
	assert.Error(t, imp.Import(ctx, "anything"))
}

func TestFunc(t *testing.T) {
	var got string
	f := Func(func(ctx context.Context, path string) error {
		got = path
		return nil
	})

	require.NoError(t, f.Import(context.Background(), "/tmp/x"))
	assert.Equal(t, "/tmp/x", got)
}
