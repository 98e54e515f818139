package model

// DownloadState is the lifecycle state of one entry's download.
type DownloadState int

const (
	// StateIdle means no download has run, or the last one finished
	// and its record was reset by a catalog refresh.
	StateIdle DownloadState = iota

	// StateRequesting means a transfer is in flight. At most one
	// operation per entry name may be in this state.
	StateRequesting

	// StateSucceeded means the payload was downloaded, verified and
	// handed to the importer.
	StateSucceeded

	// StateFailed means the download failed (network, size limit,
	// integrity).
	StateFailed

	// StateTimedOut means the operation exceeded its time bound.
	// The entry is retryable.
	StateTimedOut

	// StateCancelled means the operation was aborted by CancelAll
	// or engine shutdown.
	StateCancelled
)

// String returns a short human-readable state label.
func (s DownloadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed out"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is a finished outcome. Any
// non-Requesting state accepts a new Start, so terminal states are
// always retryable.
func (s DownloadState) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut, StateCancelled:
		return true
	}
	return false
}
