package httpclient

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n-not-really-a-png-")

func TestImageFetcherCachesDownloads(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("content-type", "application/octet-stream")
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	f := NewImageFetcher(srv.Client(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img, err := f.Fetch(context.Background(), srv.URL+"/hoop.png")
			assert.NoError(t, err)
			assert.Equal(t, "image/png", img.MimeType)
		}()
	}
	wg.Wait()

	img, err := f.Fetch(context.Background(), srv.URL+"/hoop.png")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, img.Data)
	assert.LessOrEqual(t, hits.Load(), int32(8))
	before := hits.Load()

	_, err = f.Fetch(context.Background(), srv.URL+"/hoop.png")
	require.NoError(t, err)
	assert.Equal(t, before, hits.Load(), "cached fetch must not hit the server")
}

func TestImageFetcherErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			return
		}
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewImageFetcher(srv.Client(), nil)

	_, err := f.Fetch(context.Background(), srv.URL+"/missing.png")
	assert.ErrorContains(t, err, "404")

	_, err = f.Fetch(context.Background(), srv.URL+"/empty")
	assert.ErrorContains(t, err, "empty")

	_, err = f.Fetch(context.Background(), " ")
	assert.Error(t, err)
}

func TestImageFetcherDownloadOutlivesCanceledCaller(t *testing.T) {
	var hits atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(started)
		}
		<-release
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	f := NewImageFetcher(srv.Client(), nil)
	url := srv.URL + "/hoop.png"

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx, url)
		errs <- err
	}()
	<-started
	cancel()
	assert.ErrorIs(t, <-errs, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		f.mu.RLock()
		defer f.mu.RUnlock()
		_, ok := f.cache[url]
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	img, err := f.Fetch(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, img.Data)
	assert.Equal(t, int32(1), hits.Load())
}

func TestImageFetcherDecodesDataURL(t *testing.T) {
	f := NewImageFetcher(nil, nil)

	img, err := f.Fetch(context.Background(), "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, pngBytes, img.Data)

	_, err = f.Fetch(context.Background(), "data:image/png;base64,%%%")
	assert.Error(t, err)
}

func TestNewAppliesDefaultTimeout(t *testing.T) {
	c := New(Options{})
	assert.Greater(t, c.Timeout.Seconds(), 0.0)
}

func TestUserAgentTransport(t *testing.T) {
	got := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("user-agent")
	}))
	defer srv.Close()

	c := New(Options{UserAgent: "jersey-test"})

	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "jersey-test", <-got)

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("user-agent", "custom")
	resp, err = c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "custom", <-got)
}
