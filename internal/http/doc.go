// Package http wraps the standard HTTP client with the behavior the
// engine needs everywhere: a shared User-Agent, context-bounded
// requests, HEAD-based size probing, and capped in-memory downloads
// with progress reporting.
package http
