package download

import "errors"

var (
	// ErrSizeLimit marks a payload rejected by the configured size
	// cap, either pre-flight (known size) or post-flight (received
	// bytes).
	ErrSizeLimit = errors.New("download exceeds size limit")

	// ErrIntegrity marks an empty or unverifiable payload after a
	// reported success.
	ErrIntegrity = errors.New("downloaded payload failed integrity check")
)
