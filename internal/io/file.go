package ioutils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// PackageExtension is the suffix of downloaded payload files.
const PackageExtension = ".unitypackage"

var (
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	dotRuns      = regexp.MustCompile(`\.{2,}`)
	trailingDots = regexp.MustCompile(`\.+$`)
	multiSpace   = regexp.MustCompile(`\s+`)
)

// SanitizeFileName removes or replaces characters that are invalid in
// file names. Path separators and dot runs are neutralized so the
// result can never contain a traversal sequence.
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = dotRuns.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = multiSpace.ReplaceAllString(name, " ")
	name = strings.Trim(name, " ")
	return name
}

// ScratchPath builds the destination path for a downloaded entry:
// <scratchDir>/<sanitized-name>_<sanitized-version><PackageExtension>.
// The result is guaranteed to be a direct child of scratchDir; an entry
// whose sanitized identity collapses to nothing is rejected.
func ScratchPath(scratchDir, name, version string) (string, error) {
	base := SanitizeFileName(name)
	if v := SanitizeFileName(version); v != "" {
		base = base + "_" + v
	}
	if base == "" || base == "_" {
		return "", fmt.Errorf("entry name %q produces no usable file name", name)
	}

	path := filepath.Join(scratchDir, base+PackageExtension)

	cleanDir := filepath.Clean(scratchDir)
	if filepath.Dir(path) != cleanDir {
		return "", fmt.Errorf("destination %q escapes scratch directory", path)
	}

	return path, nil
}

// EnsureDir creates a directory and all parents if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// WriteFile writes data to path with mode 0644.
func WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}

// VerifyNonEmpty checks that path exists and has non-zero length.
func VerifyNonEmpty(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}
