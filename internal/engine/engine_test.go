package engine

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/packshelf/packshelf/internal/config"
	"github.com/packshelf/packshelf/internal/importer"
	"github.com/packshelf/packshelf/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogDoc = `{"assets":[
	{"name":"One","version":"1.0","downloadUrl":"https://example.com/one.unitypackage"},
	{"name":"Two","version":"2.0","downloadUrl":"https://example.com/two.zip"},
	{"name":"Three","version":"3.0","downloadUrl":"https://example.com/three.tar.gz"}
]}`

func testEngine(t *testing.T, catalogURL string) *Engine {
	t.Helper()
	s := config.DefaultSettings()
	s.CatalogURL = catalogURL
	s.ScratchDir = filepath.Join(t.TempDir(), "scratch")
	s.ImportDir = filepath.Join(t.TempDir(), "imported")
	s.RequestTimeoutSeconds = 5

	e := New(s, importer.NewDirImporter(s.ImportDir), nil)
	t.Cleanup(e.Close)
	return e
}

func TestSync_PublishesCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(catalogDoc))
	}))
	defer srv.Close()

	e := testEngine(t, srv.URL+"/catalog.json")

	count, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	views := e.Snapshot()
	require.Len(t, views, 3)
	assert.Equal(t, "One", views[0].Name)
	assert.Equal(t, "Three", views[2].Name)
	assert.Equal(t, model.StateIdle, views[0].Download.State)
	assert.Contains(t, e.Status(), "3 entries")
}

func TestSync_Idempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(catalogDoc))
	}))
	defer srv.Close()

	e := testEngine(t, srv.URL+"/catalog.json")

	_, err := e.Sync(context.Background())
	require.NoError(t, err)
	first := e.Snapshot()

	_, err = e.Sync(context.Background())
	require.NoError(t, err)
	second := e.Snapshot()

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].CatalogEntry, second[i].CatalogEntry)
	}
}

func TestSync_FailedFetchPreservesSnapshot(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(catalogDoc))
	}))
	defer srv.Close()

	e := testEngine(t, srv.URL+"/catalog.json")

	count, err := e.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, count)

	fail.Store(true)
	_, err = e.Sync(context.Background())
	require.Error(t, err)

	assert.Equal(t, 3, e.Count())
	assert.Contains(t, e.Status(), "sync failed")
}

func TestSync_MalformedBodyPreservesSnapshot(t *testing.T) {
	body := []byte(catalogDoc)
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Write(body)
	}))
	defer srv.Close()

	e := testEngine(t, srv.URL+"/catalog.json")
	_, err := e.Sync(context.Background())
	require.NoError(t, err)

	mu.Lock()
	body = []byte(`{"nope":true}`)
	mu.Unlock()

	_, err = e.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, e.Count())
}

func TestSync_EnvelopeSource(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte(catalogDoc))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":"` + content + `","encoding":"base64"}`))
	}))
	defer srv.Close()

	// A /repos/.../contents/ path selects envelope decoding.
	e := testEngine(t, srv.URL+"/repos/owner/repo/contents/catalog.json")

	count, err := e.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSync_NotReentrant(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(catalogDoc))
	}))
	defer srv.Close()

	e := testEngine(t, srv.URL+"/catalog.json")

	errCh := make(chan error, 1)
	go func() {
		_, err := e.Sync(context.Background())
		errCh <- err
	}()

	// Wait for the first sync to hold the guard, then collide.
	require.Eventually(t, func() bool {
		_, err := e.Sync(context.Background())
		return err == ErrSyncInProgress
	}, 5*time.Second, 10*time.Millisecond)

	close(release)
	require.NoError(t, <-errCh)
	assert.Equal(t, 3, e.Count())
}

func TestSync_RefreshDropsRemovedEntries(t *testing.T) {
	body := []byte(catalogDoc)
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Write(body)
	}))
	defer srv.Close()

	e := testEngine(t, srv.URL+"/catalog.json")
	_, err := e.Sync(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, e.Count())

	mu.Lock()
	body = []byte(`{"assets":[{"name":"One","version":"1.0","downloadUrl":"https://example.com/one.unitypackage"}]}`)
	mu.Unlock()

	_, err = e.Sync(context.Background())
	require.NoError(t, err)

	views := e.Snapshot()
	require.Len(t, views, 1)
	assert.Equal(t, "One", views[0].Name)

	_, err = e.StartDownload("Two")
	assert.Error(t, err)
}

func TestStartDownload_UnknownEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"assets":[]}`))
	}))
	defer srv.Close()

	e := testEngine(t, srv.URL+"/catalog.json")
	_, err := e.Sync(context.Background())
	require.NoError(t, err)

	_, err = e.StartDownload("ghost")
	assert.Error(t, err)
}

func TestClose_RejectsFurtherWork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(catalogDoc))
	}))
	defer srv.Close()

	e := testEngine(t, srv.URL+"/catalog.json")
	_, err := e.Sync(context.Background())
	require.NoError(t, err)

	e.Close()

	_, err = e.Sync(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	_, err = e.StartDownload("One")
	assert.ErrorIs(t, err, ErrClosed)

	// Idempotent.
	e.Close()
}

func TestSnapshot_MergesDownloadState(t *testing.T) {
	payload := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("package bytes"))
	}))
	defer payload.Close()

	doc := `{"assets":[{"name":"Tool","version":"1.0","downloadUrl":"` + payload.URL + `/tool.unitypackage"}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(doc))
	}))
	defer srv.Close()

	s := config.DefaultSettings()
	s.CatalogURL = srv.URL + "/catalog.json"
	s.ScratchDir = filepath.Join(t.TempDir(), "scratch")
	s.ImportDir = filepath.Join(t.TempDir(), "imported")
	s.AllowPrivateHosts = true // payload server runs on 127.0.0.1
	e := New(s, importer.NewDirImporter(s.ImportDir), nil)
	t.Cleanup(e.Close)

	_, err := e.Sync(context.Background())
	require.NoError(t, err)

	handle, err := e.StartDownload("Tool")
	require.NoError(t, err)
	require.NotNil(t, handle)
	<-handle.Done

	views := e.Snapshot()
	require.Len(t, views, 1)
	assert.Equal(t, model.StateSucceeded, views[0].Download.State)
}
