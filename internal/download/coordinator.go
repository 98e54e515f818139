package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/packshelf/packshelf/internal/config"
	"github.com/packshelf/packshelf/internal/http"
	ioutils "github.com/packshelf/packshelf/internal/io"
	"github.com/packshelf/packshelf/internal/importer"
	"github.com/packshelf/packshelf/internal/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Status is the read-only view of one entry's download record.
type Status struct {
	State    model.DownloadState
	Progress float64

	// Err is the terminal failure reason, nil for Idle/Requesting/
	// Succeeded.
	Err error

	// ImportErr is set on a Succeeded record whose importer hand-off
	// failed: the "downloaded but import failed" outcome.
	ImportErr error
}

// Handle identifies one submitted download operation. Done is closed
// when the operation reaches a terminal state.
type Handle struct {
	ID   uuid.UUID
	Done <-chan struct{}
}

// record is the coordinator-owned mutable state for one entry.
type record struct {
	status Status
	cancel context.CancelFunc
	done   chan struct{}
}

// Coordinator owns all per-entry download state.
type Coordinator struct {
	settings   *config.Settings
	client     *http.Client
	importer   importer.Importer
	onProgress func(ProgressEvent)

	mu      sync.Mutex
	records map[string]*record
}

// NewCoordinator creates a Coordinator. onProgress may be nil.
func NewCoordinator(settings *config.Settings, client *http.Client, imp importer.Importer, onProgress func(ProgressEvent)) *Coordinator {
	return &Coordinator{
		settings:   settings,
		client:     client,
		importer:   imp,
		onProgress: onProgress,
		records:    make(map[string]*record),
	}
}

// Status returns a copy of the entry's download record. Unknown entries
// read as Idle.
func (c *Coordinator) Status(name string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.records[name]; ok {
		return rec.status
	}
	return Status{State: model.StateIdle}
}

// Start submits a download for the entry. It returns nil without side
// effects when the entry has no download URL or is already Requesting
// (the at-most-one-concurrent-operation-per-key guard). A pre-flight
// size rejection produces a Failed record immediately, with no request
// issued and no handle.
func (c *Coordinator) Start(ctx context.Context, entry model.CatalogEntry) *Handle {
	if entry.DownloadURL == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.records[entry.Name]
	if ok && rec.status.State == model.StateRequesting {
		return nil
	}
	if rec == nil {
		rec = &record{}
		c.records[entry.Name] = rec
	}

	if max := c.settings.MaxDownloadBytes(); max > 0 && entry.FileSize > max {
		rec.status = Status{
			State: model.StateFailed,
			Err: fmt.Errorf("%w: %s is %s, limit is %s", ErrSizeLimit,
				entry.Name, humanize.Bytes(uint64(entry.FileSize)), humanize.Bytes(uint64(max))),
		}
		c.emit(ProgressEvent{
			Message: fmt.Sprintf("%s skipped: %s exceeds the %s limit",
				entry.Name, humanize.Bytes(uint64(entry.FileSize)), humanize.Bytes(uint64(max))),
			Level: LevelError,
		})
		return nil
	}

	opCtx, cancel := context.WithTimeout(ctx, c.settings.DownloadTimeout())
	done := make(chan struct{})

	rec.status = Status{State: model.StateRequesting}
	rec.cancel = cancel
	rec.done = done

	handle := &Handle{ID: uuid.New(), Done: done}

	go c.run(opCtx, cancel, entry, rec, done)

	return handle
}

// run executes one download operation. The deferred finalize clears the
// in-flight marker and closes the handle on every exit path, including
// a panic out of the body.
func (c *Coordinator) run(ctx context.Context, cancel context.CancelFunc, entry model.CatalogEntry, rec *record, done chan struct{}) {
	defer func() {
		cancel()
		c.mu.Lock()
		rec.cancel = nil
		rec.done = nil
		c.mu.Unlock()
		close(done)
	}()

	logrus.WithFields(logrus.Fields{
		"entry": entry.Name,
		"url":   entry.DownloadURL,
	}).Info("starting download")

	data, err := c.client.DownloadBytes(ctx, entry.DownloadURL, c.settings.MaxDownloadBytes(), func(received, total int64) {
		if total > 0 {
			c.setProgress(rec, float64(received)/float64(total))
		}
	})
	if err != nil {
		c.finishWithError(ctx, rec, entry, err)
		return
	}

	if len(data) == 0 {
		c.finishWithError(ctx, rec, entry, fmt.Errorf("%w: empty payload", ErrIntegrity))
		return
	}

	c.setProgress(rec, 1)

	// The operation context may already be near its deadline; hand-off
	// and cleanup must still run to completion.
	tailCtx := context.WithoutCancel(ctx)

	path, err := c.store(entry, data)
	if err != nil {
		c.finishWithError(ctx, rec, entry, err)
		return
	}

	importErr := c.importer.Import(tailCtx, path)
	if importErr != nil {
		logrus.WithField("entry", entry.Name).WithError(importErr).Error("import failed")
	}

	if err := os.Remove(path); err != nil {
		logrus.WithField("path", path).WithError(err).Warn("could not remove scratch file")
	}

	c.setTerminal(rec, Status{State: model.StateSucceeded, Progress: 1, ImportErr: importErr})

	if importErr != nil {
		c.emit(ProgressEvent{
			Message: fmt.Sprintf("%s downloaded (%s) but import failed: %v", entry.Name, humanize.Bytes(uint64(len(data))), importErr),
			Level:   LevelWarning,
		})
	} else {
		c.emit(ProgressEvent{
			Message: fmt.Sprintf("%s downloaded and imported (%s)", entry.Name, humanize.Bytes(uint64(len(data)))),
			Level:   LevelSuccess,
		})
	}
}

// store writes the payload into the scratch directory and re-verifies
// it. A partial file left by a failed write is removed.
func (c *Coordinator) store(entry model.CatalogEntry, data []byte) (string, error) {
	path, err := ioutils.ScratchPath(c.settings.ScratchDir, entry.Name, entry.Version)
	if err != nil {
		return "", err
	}

	if err := ioutils.EnsureDir(c.settings.ScratchDir); err != nil {
		return "", err
	}

	if err := ioutils.WriteFile(path, data); err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			logrus.WithField("path", path).WithError(rmErr).Warn("could not remove partial file")
		}
		return "", err
	}

	if err := ioutils.VerifyNonEmpty(path); err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			logrus.WithField("path", path).WithError(rmErr).Warn("could not remove partial file")
		}
		return "", fmt.Errorf("%w: %v", ErrIntegrity, err)
	}

	return path, nil
}

// finishWithError classifies the failure into a terminal state.
func (c *Coordinator) finishWithError(ctx context.Context, rec *record, entry model.CatalogEntry, err error) {
	var state model.DownloadState
	var level ProgressLevel

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		state = model.StateTimedOut
		level = LevelWarning
		err = fmt.Errorf("timed out: %w", err)
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		state = model.StateCancelled
		level = LevelWarning
	case errors.Is(err, http.ErrTooLarge):
		state = model.StateFailed
		level = LevelError
		err = fmt.Errorf("%w: %v", ErrSizeLimit, err)
	default:
		state = model.StateFailed
		level = LevelError
	}

	c.setTerminal(rec, Status{State: state, Progress: c.progressOf(rec), Err: err})
	c.emit(ProgressEvent{
		Message: fmt.Sprintf("%s: %v", entry.Name, err),
		Level:   level,
	})
}

func (c *Coordinator) progressOf(rec *record) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return rec.status.Progress
}

// setProgress publishes monotonically non-decreasing progress in [0,1].
func (c *Coordinator) setProgress(rec *record, p float64) {
	if p > 1 {
		p = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec.status.State == model.StateRequesting && p > rec.status.Progress {
		rec.status.Progress = p
	}
}

func (c *Coordinator) setTerminal(rec *record, status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec.status = status
}

// CancelAll aborts every Requesting entry. The aborted operations
// transition to Cancelled through their own finalize step, so no entry
// is left stuck in Requesting. Safe to call at any time, repeatedly.
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	var waits []chan struct{}
	for _, rec := range c.records {
		if rec.cancel != nil {
			rec.cancel()
		}
		if rec.done != nil {
			waits = append(waits, rec.done)
		}
	}
	c.mu.Unlock()

	for _, done := range waits {
		<-done
	}
}

// Rebind reconciles download state with a freshly published catalog.
// Records for removed entries are cancelled and dropped (no ghost
// downloads continue for entries that no longer exist); terminal
// records for surviving entries reset to Idle. In-flight downloads for
// surviving entries are left to finish normally.
func (c *Coordinator) Rebind(surviving map[string]bool) {
	c.mu.Lock()
	var waits []chan struct{}
	for name, rec := range c.records {
		if !surviving[name] {
			if rec.cancel != nil {
				rec.cancel()
				if rec.done != nil {
					waits = append(waits, rec.done)
				}
			}
			delete(c.records, name)
			continue
		}
		if rec.status.State.Terminal() {
			rec.status = Status{State: model.StateIdle}
		}
	}
	c.mu.Unlock()

	for _, done := range waits {
		<-done
	}
}

// DownloadAll runs downloads for the given entries with bounded
// concurrency. Per-entry failures are reported through the status
// records and events, never as the group error.
func (c *Coordinator) DownloadAll(ctx context.Context, entries []model.CatalogEntry) error {
	g, ctx := errgroup.WithContext(ctx)
	limit := c.settings.MaxConcurrentDownloads
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			if handle := c.Start(ctx, entry); handle != nil {
				<-handle.Done
			}
			return nil
		})
	}

	return g.Wait()
}

func (c *Coordinator) emit(event ProgressEvent) {
	if c.onProgress != nil {
		c.onProgress(event)
	}
}
