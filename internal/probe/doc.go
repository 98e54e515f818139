// Package probe lazily fetches auxiliary metadata for catalog entries:
// payload byte size via a HEAD request and a decoded preview image.
//
// Probes are deduplicated per resource URL, not per entry, so two
// entries sharing an image URL fetch it once. Failures are non-fatal
// and leave the caller's placeholder state untouched.
package probe
