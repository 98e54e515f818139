// Package download drives the per-entry download lifecycle: request,
// progress, timeout and size enforcement, payload verification, importer
// hand-off, and scratch cleanup.
//
// State is keyed by entry name with at most one in-flight operation per
// key. Terminal outcomes stay readable on the status record; any
// non-Requesting entry accepts a new Start, so a retry is always
// possible.
package download
