package ioutils

import (
	"bytes"
	"image"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"normal-file", "normal-file"},
		{"name:with:colons", "name_with_colons"},
		{"name<with>brackets", "name_with_brackets"},
		{"name/with\\slashes", "name_with_slashes"},
		{"name|with|pipes", "name_with_pipes"},
		{"name?with*wildcards", "name_with_wildcards"},
		{"trailing dots...", "trailing dots"},
		{"multiple   spaces", "multiple spaces"},
		{"  padded  ", "padded"},
		{"../../evil", "____evil"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFileName(tt.input))
		})
	}
}

func TestScratchPath(t *testing.T) {
	dir := filepath.Join("/tmp", "scratch")

	t.Run("plain entry", func(t *testing.T) {
		path, err := ScratchPath(dir, "My Package", "1.2")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "My Package_1.2.unitypackage"), path)
	})

	t.Run("no version", func(t *testing.T) {
		path, err := ScratchPath(dir, "Solo", "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "Solo.unitypackage"), path)
	})

	t.Run("traversal stays confined", func(t *testing.T) {
		path, err := ScratchPath(dir, "../../evil", "..")
		require.NoError(t, err)
		assert.Equal(t, filepath.Clean(dir), filepath.Dir(path))
		assert.False(t, strings.Contains(filepath.Base(path), ".."+string(filepath.Separator)))
	})

	t.Run("identity collapses to nothing", func(t *testing.T) {
		_, err := ScratchPath(dir, "...", "")
		assert.Error(t, err)
	})
}

func TestVerifyNonEmpty(t *testing.T) {
	dir := t.TempDir()

	full := filepath.Join(dir, "full.bin")
	require.NoError(t, WriteFile(full, []byte("payload")))
	assert.NoError(t, VerifyNonEmpty(full))

	empty := filepath.Join(dir, "empty.bin")
	require.NoError(t, WriteFile(empty, nil))
	assert.Error(t, VerifyNonEmpty(empty))

	assert.Error(t, VerifyNonEmpty(filepath.Join(dir, "missing.bin")))
}

func TestImageService_DecodeThumbnail(t *testing.T) {
	svc := NewImageService()

	encode := func(w, h int) []byte {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
		return buf.Bytes()
	}

	t.Run("large image scaled down", func(t *testing.T) {
		img, err := svc.DecodeThumbnail(encode(400, 200), 100, 100)
		require.NoError(t, err)
		assert.Equal(t, 100, img.Bounds().Dx())
		assert.Equal(t, 50, img.Bounds().Dy())
	})

	t.Run("small image untouched", func(t *testing.T) {
		img, err := svc.DecodeThumbnail(encode(40, 20), 100, 100)
		require.NoError(t, err)
		assert.Equal(t, 40, img.Bounds().Dx())
	})

	t.Run("garbage bytes", func(t *testing.T) {
		_, err := svc.DecodeThumbnail([]byte("not an image"), 100, 100)
		assert.Error(t, err)
	})
}
