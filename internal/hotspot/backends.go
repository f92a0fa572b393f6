package hotspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ozolins/panotour/internal/db"
)

// Key layout of the local backend. Earlier releases stored under these
// same keys, so existing data loads as-is.
func hotspotsKey(folder string) string { return "hotspots:" + folder }
func orderKey(folder string) string    { return "photoOrder:" + folder }

// LocalBackend persists to the process-local key-value table. It is the
// fallback channel and the only channel when no remote endpoint is
// configured.
type LocalBackend struct {
	db *db.DB
}

// NewLocalBackend creates a LocalBackend over the given database.
func NewLocalBackend(d *db.DB) *LocalBackend {
	return &LocalBackend{db: d}
}

func (b *LocalBackend) LoadHotspots(ctx context.Context, folder string) ([]*Hotspot, error) {
	value, ok, err := b.db.GetKV(hotspotsKey(folder))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoDocument
	}
	return DecodeHotspots([]byte(value))
}

func (b *LocalBackend) SaveHotspots(ctx context.Context, folder string, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding hotspots for %s: %w", folder, err)
	}
	return b.db.SetKV(hotspotsKey(folder), string(data))
}

func (b *LocalBackend) LoadOrder(ctx context.Context, folder string) ([]string, error) {
	value, ok, err := b.db.GetKV(orderKey(folder))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoDocument
	}

	var names []string
	if err := json.Unmarshal([]byte(value), &names); err != nil {
		return nil, fmt.Errorf("decoding photo order for %s: %w", folder, err)
	}
	return names, nil
}

func (b *LocalBackend) SaveOrder(ctx context.Context, folder string, names []string) error {
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encoding photo order for %s: %w", folder, err)
	}
	return b.db.SetKV(orderKey(folder), string(data))
}

// DocumentBackend reads and writes the server-side document table, the
// storage behind the document endpoint. The export route uses it
// directly; clients go through RemoteBackend instead.
type DocumentBackend struct {
	db *db.DB
}

// NewDocumentBackend creates a DocumentBackend over the given database.
func NewDocumentBackend(d *db.DB) *DocumentBackend {
	return &DocumentBackend{db: d}
}

func (b *DocumentBackend) LoadHotspots(ctx context.Context, folder string) ([]*Hotspot, error) {
	payload, ok, err := b.db.GetDocument(folder)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoDocument
	}
	return DecodeHotspots([]byte(payload))
}

func (b *DocumentBackend) SaveHotspots(ctx context.Context, folder string, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding hotspots for %s: %w", folder, err)
	}
	return b.db.SetDocument(folder, string(data))
}

func (b *DocumentBackend) LoadOrder(ctx context.Context, folder string) ([]string, error) {
	return (&LocalBackend{db: b.db}).LoadOrder(ctx, folder)
}

func (b *DocumentBackend) SaveOrder(ctx context.Context, folder string, names []string) error {
	return (&LocalBackend{db: b.db}).SaveOrder(ctx, folder, names)
}

// RemoteBackend talks to the document endpoint:
// GET/POST {base}/api/hotspots/{folder} and {base}/api/orders/{folder}.
type RemoteBackend struct {
	baseURL string
	client  *http.Client
}

// NewRemoteBackend creates a RemoteBackend for the given base URL.
func NewRemoteBackend(baseURL string, timeout time.Duration) *RemoteBackend {
	return &RemoteBackend{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (b *RemoteBackend) LoadHotspots(ctx context.Context, folder string) ([]*Hotspot, error) {
	data, err := b.get(ctx, b.baseURL+"/api/hotspots/"+folder)
	if err != nil {
		return nil, err
	}
	return DecodeHotspots(data)
}

func (b *RemoteBackend) SaveHotspots(ctx context.Context, folder string, doc *Document) error {
	return b.post(ctx, b.baseURL+"/api/hotspots/"+folder, doc)
}

func (b *RemoteBackend) LoadOrder(ctx context.Context, folder string) ([]string, error) {
	data, err := b.get(ctx, b.baseURL+"/api/orders/"+folder)
	if err != nil {
		return nil, err
	}

	// Accept a bare list or an {order: [...]} envelope.
	var names []string
	if err := json.Unmarshal(data, &names); err == nil {
		return names, nil
	}
	var envelope struct {
		Order []string `json:"order"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding photo order for %s: %w", folder, err)
	}
	return envelope.Order, nil
}

func (b *RemoteBackend) SaveOrder(ctx context.Context, folder string, names []string) error {
	payload := struct {
		Order []string `json:"order"`
	}{Order: names}
	return b.post(ctx, b.baseURL+"/api/orders/"+folder, payload)
}

func (b *RemoteBackend) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoDocument
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (b *RemoteBackend) post(ctx context.Context, url string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("posting %s: status %d", url, resp.StatusCode)
	}
	return nil
}
