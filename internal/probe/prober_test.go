package probe

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	httpx "github.com/packshelf/packshelf/internal/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProber() *Prober {
	return NewProber(httpx.NewClient("packshelf-test"), 5*time.Second)
}

func TestProbeSize(t *testing.T) {
	var heads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			heads.Add(1)
		}
		w.Header().Set("Content-Length", strconv.Itoa(4096))
	}))
	defer srv.Close()

	p := newProber()
	ctx := context.Background()

	size, ok := p.ProbeSize(ctx, srv.URL+"/pkg.zip")
	require.True(t, ok)
	assert.Equal(t, int64(4096), size)

	// Second call is served from cache, no new request.
	_, ok = p.ProbeSize(ctx, srv.URL+"/pkg.zip")
	require.True(t, ok)
	assert.Equal(t, int32(1), heads.Load())

	cached, ok := p.KnownSize(srv.URL + "/pkg.zip")
	require.True(t, ok)
	assert.Equal(t, int64(4096), cached)
}

func TestProbeSize_SharedURLFetchedOnce(t *testing.T) {
	var heads atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		heads.Add(1)
		<-release
		w.Header().Set("Content-Length", "10")
	}))
	defer srv.Close()

	p := newProber()
	url := srv.URL + "/shared.zip"

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.ProbeSize(context.Background(), url)
		}()
	}

	// Let the callers pile onto the singleflight key.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), heads.Load())
}

func TestProbeSize_FailureIsSilent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newProber()
	_, ok := p.ProbeSize(context.Background(), srv.URL+"/pkg.zip")
	assert.False(t, ok)

	// Failure is remembered, not retried per call.
	_, ok = p.ProbeSize(context.Background(), srv.URL+"/pkg.zip")
	assert.False(t, ok)

	// A refresh clears the failure memory.
	p.Reset()
	_, found := p.KnownSize(srv.URL + "/pkg.zip")
	assert.False(t, found)
}

func TestProbeImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1024, 512))))

	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gets.Add(1)
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	p := newProber()
	ctx := context.Background()

	img, ok := p.ProbeImage(ctx, srv.URL+"/preview.png")
	require.True(t, ok)
	assert.LessOrEqual(t, img.Bounds().Dx(), 512)

	_, ok = p.ProbeImage(ctx, srv.URL+"/preview.png")
	require.True(t, ok)
	assert.Equal(t, int32(1), gets.Load())
}

func TestProbeImage_UndecodableIsSilent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("definitely not an image"))
	}))
	defer srv.Close()

	p := newProber()
	_, ok := p.ProbeImage(context.Background(), srv.URL+"/preview.png")
	assert.False(t, ok)
}

func TestClose_DiscardsLateResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
	}))
	defer srv.Close()

	p := newProber()
	p.Close()

	_, ok := p.ProbeSize(context.Background(), srv.URL+"/pkg.zip")
	assert.False(t, ok)
	_, ok = p.ProbeImage(context.Background(), srv.URL+"/p.png")
	assert.False(t, ok)
}
