package videos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/vidshare/client/internal/api"
	"github.com/vidshare/client/internal/models"
)

// Fetcher performs authenticated API requests. It is satisfied by
// session.Manager.
type Fetcher interface {
	AuthFetch(ctx context.Context, method, path string, body []byte) (*http.Response, error)
}

// Catalog holds the in-memory video collection for the signed-in user. The
// collection is server-ordered and replaced wholesale on every refresh; the
// catalog never merges incrementally.
type Catalog struct {
	fetch    Fetcher
	pageSize int

	mu    sync.RWMutex
	items []models.VideoRecord
}

// NewCatalog constructs a catalog listing up to pageSize entries per refresh.
func NewCatalog(fetch Fetcher, pageSize int) *Catalog {
	if fetch == nil {
		panic("videos: fetcher must not be nil")
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Catalog{fetch: fetch, pageSize: pageSize}
}

// Refresh reloads the collection from the backend, replacing the in-memory
// list entirely. The list is left untouched when the request fails.
func (c *Catalog) Refresh(ctx context.Context) error {
	path := fmt.Sprintf("/v1/videos/me?rows=%d", c.pageSize)

	resp, err := c.fetch.AuthFetch(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("list videos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("list videos: %w", api.NewStatusError(resp))
	}

	var items []models.VideoRecord
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return fmt.Errorf("decode video listing: %w", err)
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}

// List returns a copy of the current collection in server order.
func (c *Catalog) List() []models.VideoRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.VideoRecord, len(c.items))
	copy(out, c.items)
	return out
}

// GetByID scans the collection for the identifier.
func (c *Catalog) GetByID(id int64) (models.VideoRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.ID == id {
			return item, true
		}
	}
	return models.VideoRecord{}, false
}

// PlaybackURL resolves a signed, single-use playback URL for the video.
func (c *Catalog) PlaybackURL(ctx context.Context, id int64) (string, error) {
	resp, err := c.fetch.AuthFetch(ctx, http.MethodGet, fmt.Sprintf("/v1/videos/%d", id), nil)
	if err != nil {
		return "", fmt.Errorf("resolve playback url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("resolve playback url for video %d: %w", id, ErrVideoNotFound)
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode playback response: %w", err)
	}
	if payload.URL == "" {
		return "", fmt.Errorf("resolve playback url for video %d: empty url in response", id)
	}
	return payload.URL, nil
}
