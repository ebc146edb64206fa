package mediagroup

import (
	"fmt"
	"sync"
	"time"
)

const DefaultDebounce = 1200 * time.Millisecond

// Upload is one image of a Telegram album.
type Upload struct {
	ChatID   int64
	UserID   int64
	GroupID  string
	FileID   string
	MimeType string
	Size     int
}

// Album is every upload that arrived under one media group id, in arrival
// order.
type Album struct {
	ChatID  int64
	UserID  int64
	Uploads []Upload
}

// First returns the upload Telegram delivered first.
func (a Album) First() Upload {
	if len(a.Uploads) == 0 {
		return Upload{}
	}
	return a.Uploads[0]
}

type Options struct {
	Debounce time.Duration
	OnFlush  func(Album)
}

// Aggregator buffers album uploads until no new item has arrived for the
// debounce window, then hands the album to OnFlush once.
type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	onFlush  func(Album)
	albums   map[string]*pendingAlbum
	stopped  bool
}

type pendingAlbum struct {
	album Album
	timer *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Aggregator{
		debounce: debounce,
		onFlush:  opts.OnFlush,
		albums:   make(map[string]*pendingAlbum),
	}
}

// Add buffers u and reports whether it was taken. Uploads outside an album
// are not taken and should be handled directly.
func (a *Aggregator) Add(u Upload) bool {
	if u.GroupID == "" || u.FileID == "" {
		return false
	}

	key := makeKey(u.ChatID, u.UserID, u.GroupID)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return true
	}

	pa, ok := a.albums[key]
	if !ok {
		pa = &pendingAlbum{album: Album{ChatID: u.ChatID, UserID: u.UserID}}
		a.albums[key] = pa
	}
	pa.album.Uploads = append(pa.album.Uploads, u)

	if pa.timer != nil {
		pa.timer.Stop()
	}
	pa.timer = time.AfterFunc(a.debounce, func() {
		a.flush(key)
	})
	return true
}

// Pending counts albums still waiting for their debounce window.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.albums)
}

// Stop drops buffered albums and ignores later uploads.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	for key, pa := range a.albums {
		if pa.timer != nil {
			pa.timer.Stop()
		}
		delete(a.albums, key)
	}
}

func (a *Aggregator) flush(key string) {
	a.mu.Lock()
	pa, ok := a.albums[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.albums, key)
	album := pa.album
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(album)
	}
}

func makeKey(chatID int64, userID int64, groupID string) string {
	return fmt.Sprintf("%d:%d:%s", chatID, userID, groupID)
}
