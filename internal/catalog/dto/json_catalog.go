// Package dto holds the wire representation of the remote catalog
// document, kept separate from the model types the rest of the
// application consumes.
package dto

import "github.com/packshelf/packshelf/internal/model"

// JSONCatalog is the top-level catalog document.
type JSONCatalog struct {
	Assets []JSONAsset `json:"assets"`
}

// JSONAsset is one downloadable unit as published by the remote.
type JSONAsset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	DownloadURL string `json:"downloadUrl"`
	ImageURL    string `json:"imageUrl"`
	Category    string `json:"category"`
	FileSize    int64  `json:"fileSize"`
}

// ToEntry converts the wire asset to a model entry.
func (a *JSONAsset) ToEntry() model.CatalogEntry {
	size := a.FileSize
	if size < 0 {
		size = 0
	}

	return model.CatalogEntry{
		Name:        a.Name,
		Description: a.Description,
		Version:     a.Version,
		Category:    a.Category,
		DownloadURL: a.DownloadURL,
		ImageURL:    a.ImageURL,
		FileSize:    size,
	}
}
