package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/packshelf/packshelf/internal/catalog"
	"github.com/packshelf/packshelf/internal/config"
	"github.com/packshelf/packshelf/internal/download"
	"github.com/packshelf/packshelf/internal/http"
	"github.com/packshelf/packshelf/internal/importer"
	"github.com/packshelf/packshelf/internal/model"
	"github.com/packshelf/packshelf/internal/probe"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrSyncInProgress is returned when Sync is called while another
// refresh is still running. The caller simply keeps the current
// snapshot; refresh is not re-entrant.
var ErrSyncInProgress = errors.New("catalog sync already in progress")

// ErrClosed is returned by operations submitted after Close.
var ErrClosed = errors.New("engine is shut down")

// StatusEvent is a human-readable status update for observers.
type StatusEvent struct {
	Message string
	Level   download.ProgressLevel
}

// EntryView combines a catalog entry with its transient runtime state
// for the presentation layer. It is a value copy; mutating it has no
// effect on the engine.
type EntryView struct {
	model.CatalogEntry
	Download download.Status
	Preview  image.Image
}

// Engine is the top-level orchestrator. Construct one per catalog
// source with New; instances are independent.
type Engine struct {
	settings    *config.Settings
	client      *http.Client
	parser      *catalog.Parser
	prober      *probe.Prober
	coordinator *download.Coordinator
	onStatus    func(StatusEvent)

	ctx    context.Context
	cancel context.CancelFunc

	syncing atomic.Bool
	closed  atomic.Bool

	mu      sync.RWMutex
	catalog model.Catalog
	status  string
}

// New creates an Engine. onStatus may be nil; when set it receives
// every rolling status update (sync results, download outcomes).
func New(settings *config.Settings, imp importer.Importer, onStatus func(StatusEvent)) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	client := http.NewClient(settings.UserAgent)

	e := &Engine{
		settings: settings,
		client:   client,
		parser:   catalog.NewParser(settings.AllowPrivateHosts),
		prober:   probe.NewProber(client, settings.RequestTimeout()),
		onStatus: onStatus,
		ctx:      ctx,
		cancel:   cancel,
		status:   "not synced",
	}

	e.coordinator = download.NewCoordinator(settings, client, imp, func(event download.ProgressEvent) {
		e.publishStatus(event.Message, event.Level)
	})

	return e
}

// Sync runs one refresh cycle: fetch, decode, parse, filter, publish.
// A failed fetch or parse publishes a Failed status and leaves the
// previous snapshot untouched. Returns the number of published entries.
func (e *Engine) Sync(ctx context.Context) (int, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}

	if !e.syncing.CompareAndSwap(false, true) {
		return 0, ErrSyncInProgress
	}
	defer e.syncing.Store(false)

	fetchCtx, cancel := context.WithTimeout(ctx, e.settings.RequestTimeout())
	defer cancel()

	// Abort the fetch when the engine shuts down mid-sync.
	stop := context.AfterFunc(e.ctx, cancel)
	defer stop()

	logrus.WithField("url", e.settings.CatalogURL).Info("syncing catalog")

	raw, err := e.client.Get(fetchCtx, e.settings.CatalogURL)
	if err != nil {
		reason := classifyFetchError(fetchCtx, err)
		e.publishStatus(fmt.Sprintf("sync failed: %s", reason), download.LevelError)
		return e.Count(), fmt.Errorf("fetch catalog: %w", err)
	}

	fromEnvelope := catalog.IsEnvelopeURL(e.settings.CatalogURL)
	entries, stats, err := e.parser.Parse(raw, fromEnvelope)
	if err != nil {
		e.publishStatus(fmt.Sprintf("sync failed: %v", err), download.LevelError)
		return e.Count(), err
	}

	e.publish(entries)
	e.prober.Reset()

	if dropped := stats.Dropped(); dropped > 0 {
		e.publishStatus(fmt.Sprintf("catalog synced: %d entries (%d filtered out)", stats.Kept, dropped), download.LevelInfo)
	} else {
		e.publishStatus(fmt.Sprintf("catalog synced: %d entries", stats.Kept), download.LevelSuccess)
	}

	return stats.Kept, nil
}

// publish atomically replaces the snapshot and reconciles download
// state: records for entries that disappeared are cancelled and
// dropped, surviving terminal records reset to Idle.
func (e *Engine) publish(entries model.Catalog) {
	surviving := make(map[string]bool, len(entries))
	for _, name := range entries.Names() {
		surviving[name] = true
	}

	e.mu.Lock()
	e.catalog = entries
	e.mu.Unlock()

	e.coordinator.Rebind(surviving)
}

// Snapshot returns the published catalog merged with per-entry runtime
// state, in catalog order.
func (e *Engine) Snapshot() []EntryView {
	e.mu.RLock()
	entries := e.catalog.Clone()
	e.mu.RUnlock()

	views := make([]EntryView, len(entries))
	for i, entry := range entries {
		view := EntryView{CatalogEntry: entry}
		view.Download = e.coordinator.Status(entry.Name)

		if size, ok := e.prober.KnownSize(entry.DownloadURL); ok && entry.FileSize == 0 {
			view.FileSize = size
		}
		if img, ok := e.prober.Preview(entry.ImageURL); ok {
			view.Preview = img
		}

		views[i] = view
	}

	return views
}

// Count returns the number of published entries.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.catalog)
}

// Status returns the rolling status string.
func (e *Engine) Status() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// StartDownload submits a download for the named entry. The entry must
// exist in the current snapshot; a stale name (removed by a refresh) is
// rejected rather than silently re-fetched.
func (e *Engine) StartDownload(name string) (*download.Handle, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}

	e.mu.RLock()
	entry := e.catalog.ByName(name)
	if entry != nil {
		cp := *entry
		entry = &cp
	}
	e.mu.RUnlock()

	if entry == nil {
		return nil, fmt.Errorf("no catalog entry named %q", name)
	}

	// Use the size the prober learned, so the pre-flight limit check
	// sees it even when the catalog omitted fileSize.
	if entry.FileSize == 0 {
		if size, ok := e.prober.KnownSize(entry.DownloadURL); ok {
			entry.FileSize = size
		}
	}

	return e.coordinator.Start(e.ctx, *entry), nil
}

// DownloadAll downloads the named entries with bounded concurrency.
// Unknown names are reported and skipped.
func (e *Engine) DownloadAll(ctx context.Context, names []string) error {
	if e.closed.Load() {
		return ErrClosed
	}

	e.mu.RLock()
	var entries []model.CatalogEntry
	for _, name := range names {
		if entry := e.catalog.ByName(name); entry != nil {
			entries = append(entries, *entry)
		} else {
			e.publishStatus(fmt.Sprintf("no catalog entry named %q", name), download.LevelWarning)
		}
	}
	e.mu.RUnlock()

	return e.coordinator.DownloadAll(ctx, entries)
}

// ProbeSize resolves the payload size for the named entry, lazily and
// deduplicated per URL. Safe to call repeatedly; failures leave the
// size unknown.
func (e *Engine) ProbeSize(name string) {
	if e.closed.Load() {
		return
	}

	e.mu.RLock()
	entry := e.catalog.ByName(name)
	var url string
	var known int64
	if entry != nil {
		url = entry.DownloadURL
		known = entry.FileSize
	}
	e.mu.RUnlock()

	if url == "" || known > 0 {
		return
	}

	go e.prober.ProbeSize(e.ctx, url)
}

// ResolveSizes synchronously probes every entry whose size is unknown,
// with bounded concurrency. Used by batch callers that want sizes
// before rendering; failures leave individual sizes unknown.
func (e *Engine) ResolveSizes(ctx context.Context) {
	if e.closed.Load() {
		return
	}

	e.mu.RLock()
	var urls []string
	for i := range e.catalog {
		if e.catalog[i].FileSize == 0 && e.catalog[i].DownloadURL != "" {
			urls = append(urls, e.catalog[i].DownloadURL)
		}
	}
	e.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, url := range urls {
		url := url
		g.Go(func() error {
			e.prober.ProbeSize(ctx, url)
			return nil
		})
	}
	_ = g.Wait()
}

// ProbeImage resolves the preview image for the named entry.
func (e *Engine) ProbeImage(name string) {
	if e.closed.Load() {
		return
	}

	e.mu.RLock()
	entry := e.catalog.ByName(name)
	var url string
	if entry != nil {
		url = entry.ImageURL
	}
	e.mu.RUnlock()

	if url == "" {
		return
	}

	go e.prober.ProbeImage(e.ctx, url)
}

// DownloadStatus returns the named entry's download record.
func (e *Engine) DownloadStatus(name string) download.Status {
	return e.coordinator.Status(name)
}

// Close shuts the engine down: the in-flight sync fetch is aborted,
// every requesting download is cancelled, and probes are abandoned
// (late results are discarded). Idempotent.
func (e *Engine) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}

	e.cancel()
	e.coordinator.CancelAll()
	e.prober.Close()

	logrus.Info("engine shut down")
}

func (e *Engine) publishStatus(message string, level download.ProgressLevel) {
	e.mu.Lock()
	e.status = message
	e.mu.Unlock()

	if e.onStatus != nil {
		e.onStatus(StatusEvent{Message: message, Level: level})
	}
}

// classifyFetchError distinguishes a timeout from other network
// failures for status messaging.
func classifyFetchError(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "timed out fetching catalog"
	}
	return fmt.Sprintf("network error: %v", err)
}
