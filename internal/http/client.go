package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrTooLarge is returned by DownloadBytes when the body exceeds the
// caller's byte cap. The transfer is aborted as soon as the cap is
// crossed, even when the server never announced a Content-Length.
var ErrTooLarge = errors.New("response body exceeds size limit")

// Client wraps HTTP operations shared by the sync engine, prober and
// download coordinator.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a Client. Timeouts are not set on the underlying
// client; every call takes a context and callers bound operations with
// context deadlines so one client can serve both quick probes and long
// downloads.
func NewClient(userAgent string) *Client {
	return &Client{
		httpClient: &http.Client{},
		userAgent:  userAgent,
	}
}

// Get performs a GET request and returns the whole response body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	return c.DownloadBytes(ctx, url, 0, nil)
}

// GetString performs a GET request and returns the body as a string.
func (c *Client) GetString(ctx context.Context, url string) (string, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetFileSize returns the size of the resource via a HEAD request,
// without transferring the body. Servers that omit Content-Length
// produce an error; callers treat that as "size unknown".
func (c *Client) GetFileSize(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("no Content-Length header for %s", url)
	}

	return resp.ContentLength, nil
}

// DownloadBytes performs a GET request and buffers the body in memory.
//
// maxBytes > 0 caps the accepted body size; crossing the cap aborts the
// read and returns ErrTooLarge. onProgress, when non-nil, is called
// after every chunk with (received, total); total is -1 when the server
// did not announce a length.
func (c *Client) DownloadBytes(ctx context.Context, url string, maxBytes int64, onProgress func(received, total int64)) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	// Pre-flight on the announced length. A lying server is still
	// caught by the counting reader below.
	if maxBytes > 0 && resp.ContentLength > maxBytes {
		return nil, ErrTooLarge
	}

	var buf bytes.Buffer
	if resp.ContentLength > 0 {
		buf.Grow(int(min(resp.ContentLength, 1<<20)))
	}

	reader := &cappedReader{
		r:        resp.Body,
		max:      maxBytes,
		total:    resp.ContentLength,
		onUpdate: onProgress,
	}

	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// cappedReader counts bytes, enforces the cap and reports progress.
type cappedReader struct {
	r        io.Reader
	max      int64
	total    int64
	received int64
	onUpdate func(received, total int64)
}

func (cr *cappedReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.received += int64(n)

	if cr.max > 0 && cr.received > cr.max {
		return n, ErrTooLarge
	}

	if n > 0 && cr.onUpdate != nil {
		cr.onUpdate(cr.received, cr.total)
	}

	return n, err
}
