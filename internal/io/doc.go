// Package ioutils provides filesystem and image helpers.
//
// The scratch-path helpers confine every download destination to the
// configured scratch directory; entry names and versions come from an
// untrusted catalog and must never escape it.
package ioutils
