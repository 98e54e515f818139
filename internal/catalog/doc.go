// Package catalog turns raw catalog bytes into permitted entries.
//
// The pipeline mirrors how the remote publishes: an optional
// source-hosting API envelope (base64 content field) wraps the real
// JSON document, which holds a flat assets array. Entries whose
// download URL fails the security policy are dropped here so the rest
// of the system only ever sees permitted entries.
package catalog
