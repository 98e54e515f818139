package catalog

import (
	"bytes"
	"encoding/json"

	"github.com/packshelf/packshelf/internal/catalog/dto"
	"github.com/packshelf/packshelf/internal/model"
	"github.com/packshelf/packshelf/internal/security"
	"github.com/sirupsen/logrus"
)

// Stats summarizes one parse run for status messaging.
type Stats struct {
	// Parsed is the number of entries in the remote document.
	Parsed int

	// Kept is the number of entries that survived admission.
	Kept int
}

// Dropped returns how many entries were filtered out.
func (s Stats) Dropped() int { return s.Parsed - s.Kept }

// Parser deserializes catalog documents and filters entries through the
// URL security policy.
type Parser struct {
	allowPrivateHosts bool
}

// NewParser creates a Parser. allowPrivateHosts is passed through to
// the security policy; callers set it only when the catalog source
// itself lives on a private or loopback host.
func NewParser(allowPrivateHosts bool) *Parser {
	return &Parser{allowPrivateHosts: allowPrivateHosts}
}

// Parse turns raw catalog bytes into an ordered list of permitted
// entries. When fromEnvelope is set the body is unwrapped from the API
// envelope first. An empty-but-valid document yields an empty catalog
// and no error.
func (p *Parser) Parse(raw []byte, fromEnvelope bool) (model.Catalog, Stats, error) {
	if fromEnvelope {
		decoded, err := DecodeEnvelope(raw)
		if err != nil {
			return nil, Stats{}, err
		}
		raw = decoded
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{Parsed: len(doc.Assets)}
	entries := make(model.Catalog, 0, len(doc.Assets))
	for i := range doc.Assets {
		entry := doc.Assets[i].ToEntry()
		if !p.admit(&entry) {
			continue
		}
		entries = append(entries, entry)
	}
	stats.Kept = len(entries)

	return entries, stats, nil
}

// decodeDocument unmarshals the catalog JSON, distinguishing a missing
// assets array from a valid empty one.
func decodeDocument(raw []byte) (*dto.JSONCatalog, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &MalformedCatalogError{Reason: "document is not a JSON object"}
	}

	// Decode into a raw map first so "assets missing" and
	// "assets: []" stay distinguishable.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, &MalformedCatalogError{Reason: "invalid JSON", Err: err}
	}
	if _, ok := probe["assets"]; !ok {
		return nil, &MalformedCatalogError{Reason: "missing assets array"}
	}

	var doc dto.JSONCatalog
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, &MalformedCatalogError{Reason: "invalid assets array", Err: err}
	}
	if doc.Assets == nil {
		doc.Assets = []dto.JSONAsset{}
	}

	return &doc, nil
}

// admit applies the per-entry admission rules. Rejections are logged,
// never surfaced as errors; the caller learns the count through Stats.
func (p *Parser) admit(entry *model.CatalogEntry) bool {
	if entry.Name == "" || entry.DownloadURL == "" {
		logrus.WithField("entry", entry.Name).Debug("dropping entry with missing name or download URL")
		return false
	}

	if !security.Permitted(entry.DownloadURL, p.allowPrivateHosts) {
		logrus.WithFields(logrus.Fields{
			"entry": entry.Name,
			"url":   entry.DownloadURL,
		}).Warn("dropping entry with denied download URL")
		return false
	}

	return true
}
