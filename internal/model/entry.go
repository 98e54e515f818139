package model

// CatalogEntry is one downloadable unit from the published catalog.
//
// Name is the coordination key for downloads: it must be unique within a
// published catalog. Duplicate names are a data-quality defect in the
// remote document, not a crash condition; Catalog.ByName resolves to the
// first occurrence.
type CatalogEntry struct {
	// Name identifies the entry and keys download deduplication.
	Name string

	// Description is free-form text shown to the user.
	Description string

	// Version is an opaque version string.
	Version string

	// Category is an opaque grouping label.
	Category string

	// DownloadURL is the absolute URL of the package payload.
	// Entries only reach consumers after this URL passed the
	// security policy.
	DownloadURL string

	// ImageURL is the optional absolute URL of a preview image.
	ImageURL string

	// FileSize is the payload size in bytes, 0 until probed or
	// provided by the catalog.
	FileSize int64
}

// HasImage reports whether a preview image is available for probing.
func (e *CatalogEntry) HasImage() bool {
	return e.ImageURL != ""
}

// Catalog is an ordered sequence of entries. Order is the remote
// document order and is also the display order.
type Catalog []CatalogEntry

// ByName returns the first entry with the given name, or nil.
func (c Catalog) ByName(name string) *CatalogEntry {
	for i := range c {
		if c[i].Name == name {
			return &c[i]
		}
	}
	return nil
}

// Names returns the entry names in catalog order.
func (c Catalog) Names() []string {
	names := make([]string, len(c))
	for i := range c {
		names[i] = c[i].Name
	}
	return names
}

// Clone returns a deep copy so the published snapshot can be handed to
// readers without aliasing the engine's slice.
func (c Catalog) Clone() Catalog {
	if c == nil {
		return nil
	}
	out := make(Catalog, len(c))
	copy(out, c)
	return out
}
