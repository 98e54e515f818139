// Package model defines the catalog data types shared across packshelf.
//
// A Catalog is the ordered list of downloadable entries published by the
// remote source. Entries are immutable once published; per-entry runtime
// state (download progress, probe results) is owned by the download
// coordinator and prober, not by these types.
package model
