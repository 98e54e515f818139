package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds all configuration options.
type Settings struct {
	// Catalog settings
	CatalogURL        string `json:"catalog_url"`
	AllowPrivateHosts bool   `json:"allow_private_hosts"`

	// Download settings
	ScratchDir                string  `json:"scratch_dir"`
	ImportDir                 string  `json:"import_dir"`
	MaxConcurrentDownloads    int     `json:"max_concurrent_downloads"`
	RequestTimeoutSeconds     int     `json:"request_timeout_seconds"`
	DownloadTimeoutMultiplier float64 `json:"download_timeout_multiplier"`
	MaxDownloadSizeMB         int64   `json:"max_download_size_mb"`

	// HTTP settings
	UserAgent string `json:"user_agent"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	cacheDir, _ := os.UserCacheDir()
	return &Settings{
		CatalogURL:        "",
		AllowPrivateHosts: false,

		ScratchDir:                filepath.Join(cacheDir, "packshelf", "scratch"),
		ImportDir:                 filepath.Join(cacheDir, "packshelf", "imported"),
		MaxConcurrentDownloads:    3,
		RequestTimeoutSeconds:     15,
		DownloadTimeoutMultiplier: 8.0,
		MaxDownloadSizeMB:         500,

		UserAgent: "packshelf",
	}
}

// RequestTimeout returns the bound for catalog fetches and probes.
func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// DownloadTimeout returns the bound for a whole download operation.
func (s *Settings) DownloadTimeout() time.Duration {
	return time.Duration(float64(s.RequestTimeout()) * s.DownloadTimeoutMultiplier)
}

// MaxDownloadBytes returns the download size cap in bytes. Zero means
// unlimited.
func (s *Settings) MaxDownloadBytes() int64 {
	return s.MaxDownloadSizeMB * 1024 * 1024
}

// Load reads settings from a JSON file, then applies PACKSHELF_*
// environment overrides. A missing file yields defaults, not an error.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}

	settings.applyEnv()
	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// applyEnv overlays environment variables onto the settings. A .env
// file in the working directory is honored when present.
func (s *Settings) applyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("PACKSHELF_CATALOG_URL"); v != "" {
		s.CatalogURL = v
	}
	if v := os.Getenv("PACKSHELF_SCRATCH_DIR"); v != "" {
		s.ScratchDir = v
	}
	if v := os.Getenv("PACKSHELF_IMPORT_DIR"); v != "" {
		s.ImportDir = v
	}
	if v := os.Getenv("PACKSHELF_ALLOW_PRIVATE_HOSTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.AllowPrivateHosts = b
		}
	}
	if v := os.Getenv("PACKSHELF_REQUEST_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.RequestTimeoutSeconds = n
		}
	}
	if v := os.Getenv("PACKSHELF_MAX_DOWNLOAD_SIZE_MB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			s.MaxDownloadSizeMB = n
		}
	}
}
