package probe

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/packshelf/packshelf/internal/http"
	ioutils "github.com/packshelf/packshelf/internal/io"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Thumbnail bounds for decoded previews.
const (
	thumbMaxWidth  = 512
	thumbMaxHeight = 512
)

// Prober performs lazy, per-URL-deduplicated metadata probes.
//
// Results are cached for the lifetime of the Prober; the engine swaps
// in a fresh Prober cache on shutdown-sensitive boundaries, and late
// results against a closed Prober are discarded.
type Prober struct {
	client  *http.Client
	images  *ioutils.ImageService
	timeout time.Duration

	sizeGroup  singleflight.Group
	imageGroup singleflight.Group

	mu        sync.RWMutex
	closed    bool
	sizes     map[string]int64
	previews  map[string]image.Image
	sizeFail  map[string]bool
	imageFail map[string]bool
}

// NewProber creates a Prober. timeout bounds each probe request; probes
// share the engine's request timeout, not the download bound.
func NewProber(client *http.Client, timeout time.Duration) *Prober {
	return &Prober{
		client:    client,
		images:    ioutils.NewImageService(),
		timeout:   timeout,
		sizes:     make(map[string]int64),
		previews:  make(map[string]image.Image),
		sizeFail:  make(map[string]bool),
		imageFail: make(map[string]bool),
	}
}

// KnownSize returns the probed size for a URL, if any.
func (p *Prober) KnownSize(url string) (int64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	size, ok := p.sizes[url]
	return size, ok
}

// Preview returns the decoded preview for a URL, if resolved.
func (p *Prober) Preview(url string) (image.Image, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	img, ok := p.previews[url]
	return img, ok
}

// ProbeSize resolves the payload size for the URL via a HEAD request.
// No-op when the size is already known, a previous probe failed, or a
// probe for the same URL is in flight (the duplicate caller returns the
// shared result without issuing a second request). Failures are logged
// and swallowed; the size simply stays unknown.
func (p *Prober) ProbeSize(ctx context.Context, url string) (int64, bool) {
	if url == "" {
		return 0, false
	}

	p.mu.RLock()
	if size, ok := p.sizes[url]; ok {
		p.mu.RUnlock()
		return size, true
	}
	if p.closed || p.sizeFail[url] {
		p.mu.RUnlock()
		return 0, false
	}
	p.mu.RUnlock()

	result, err, _ := p.sizeGroup.Do(url, func() (interface{}, error) {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.client.GetFileSize(probeCtx, url)
	})

	if err != nil {
		logrus.WithField("url", url).WithError(err).Debug("size probe failed")
		p.mu.Lock()
		if !p.closed {
			p.sizeFail[url] = true
		}
		p.mu.Unlock()
		return 0, false
	}

	size := result.(int64)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		// Late result against a torn-down engine.
		return 0, false
	}
	p.sizes[url] = size
	return size, true
}

// ProbeImage resolves and decodes the preview image for the URL. No-op
// when already resolved, previously failed, or in flight. Failures
// leave the placeholder state.
func (p *Prober) ProbeImage(ctx context.Context, url string) (image.Image, bool) {
	if url == "" {
		return nil, false
	}

	p.mu.RLock()
	if img, ok := p.previews[url]; ok {
		p.mu.RUnlock()
		return img, true
	}
	if p.closed || p.imageFail[url] {
		p.mu.RUnlock()
		return nil, false
	}
	p.mu.RUnlock()

	result, err, _ := p.imageGroup.Do(url, func() (interface{}, error) {
		probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		data, err := p.client.Get(probeCtx, url)
		if err != nil {
			return nil, err
		}
		return p.images.DecodeThumbnail(data, thumbMaxWidth, thumbMaxHeight)
	})

	if err != nil {
		logrus.WithField("url", url).WithError(err).Debug("image probe failed")
		p.mu.Lock()
		if !p.closed {
			p.imageFail[url] = true
		}
		p.mu.Unlock()
		return nil, false
	}

	img := result.(image.Image)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, false
	}
	p.previews[url] = img
	return img, true
}

// Reset clears cached failures so a catalog refresh can retry probes
// that failed transiently. Resolved sizes and previews are kept; they
// are keyed by URL and stay valid across refreshes.
func (p *Prober) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sizeFail = make(map[string]bool)
	p.imageFail = make(map[string]bool)
}

// Close marks the prober torn down. In-flight probes are abandoned:
// their results arrive, fail the closed check, and are discarded.
func (p *Prober) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.sizes = make(map[string]int64)
	p.previews = make(map[string]image.Image)
}
