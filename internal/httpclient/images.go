package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"classic-jersey-studio/internal/media"
)

const (
	maxImageBytes = 20 << 20
	fetchTimeout  = 2 * time.Minute
)

// ImageFetcher downloads template images and keeps them in memory. Concurrent
// requests for the same URL share one download.
type ImageFetcher struct {
	client  *http.Client
	logger  *slog.Logger
	timeout time.Duration

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]media.Image
}

func NewImageFetcher(client *http.Client, logger *slog.Logger) *ImageFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ImageFetcher{
		client:  client,
		logger:  logger,
		timeout: fetchTimeout,
		cache:   make(map[string]media.Image),
	}
}

// Fetch returns the image at url. Inline "data:" URLs are decoded without a
// request.
func (f *ImageFetcher) Fetch(ctx context.Context, url string) (media.Image, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return media.Image{}, errors.New("image url is empty")
	}
	if strings.HasPrefix(url, "data:") {
		return media.ParseDataURL(url)
	}

	f.mu.RLock()
	img, ok := f.cache[url]
	f.mu.RUnlock()
	if ok {
		return img, nil
	}

	// The shared download outlives any single caller; each caller still
	// stops waiting when its own ctx ends.
	ch := f.group.DoChan(url, func() (any, error) {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()

		img, err := f.download(dctx, url)
		if err != nil {
			return media.Image{}, err
		}
		f.mu.Lock()
		f.cache[url] = img
		f.mu.Unlock()
		return img, nil
	})

	select {
	case <-ctx.Done():
		return media.Image{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return media.Image{}, res.Err
		}
		return res.Val.(media.Image), nil
	}
}

func (f *ImageFetcher) download(ctx context.Context, url string) (media.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return media.Image{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return media.Image{}, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return media.Image{}, fmt.Errorf("fetch image %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return media.Image{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return media.Image{}, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	if len(data) == 0 {
		return media.Image{}, errors.New("image is empty")
	}

	mimeType := media.DetectMimeType(resp.Header.Get("content-type"), data)
	f.logger.Debug("template image fetched", "url", url, "bytes", len(data), "mime", mimeType)

	return media.Image{MimeType: mimeType, Data: data}, nil
}
