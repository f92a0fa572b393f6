package hotspot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNoDocument is returned by a backend when a folder has no stored
// data. It is not a failure: the store treats it as an empty
// collection.
var ErrNoDocument = errors.New("no stored document")

// Backend is one persistence channel for hotspot collections and photo
// orders, keyed by folder.
type Backend interface {
	LoadHotspots(ctx context.Context, folder string) ([]*Hotspot, error)
	SaveHotspots(ctx context.Context, folder string, doc *Document) error
	LoadOrder(ctx context.Context, folder string) ([]string, error)
	SaveOrder(ctx context.Context, folder string, names []string) error
}

// Store layers two backends: a primary (normally the remote document
// endpoint) and a secondary fallback (the local key-value store). The
// viewer must keep working when served from a static host with no
// backend at all, so primary may be nil.
type Store struct {
	primary   Backend
	secondary Backend
	logger    *slog.Logger
}

// NewStore creates a layered store. secondary must not be nil.
func NewStore(primary, secondary Backend) *Store {
	return &Store{
		primary:   primary,
		secondary: secondary,
		logger:    slog.Default().With("component", "hotspot-store"),
	}
}

// Load returns the folder's hotspot collection. Primary failures fall
// back to the secondary; a folder with no data on either channel is an
// empty collection, not an error. An error is returned only when both
// channels actually failed.
func (s *Store) Load(ctx context.Context, folder string) ([]*Hotspot, error) {
	if s.primary != nil {
		hs, err := s.primary.LoadHotspots(ctx, folder)
		if err == nil {
			return hs, nil
		}
		if !errors.Is(err, ErrNoDocument) {
			s.logger.Warn("primary load failed, falling back", "folder", folder, "error", err)
			hs, serr := s.secondary.LoadHotspots(ctx, folder)
			if serr == nil || errors.Is(serr, ErrNoDocument) {
				return hs, nil
			}
			return nil, fmt.Errorf("loading hotspots for %s: primary: %w, secondary: %v", folder, err, serr)
		}
		// Primary reachable but empty: the secondary may still hold
		// data written while offline.
	}

	hs, err := s.secondary.LoadHotspots(ctx, folder)
	if err == nil || errors.Is(err, ErrNoDocument) {
		return hs, nil
	}
	if s.primary == nil {
		return nil, fmt.Errorf("loading hotspots for %s: %w", folder, err)
	}
	// Primary answered "no document" and the secondary broke; an empty
	// collection is still the right answer.
	s.logger.Warn("secondary load failed", "folder", folder, "error", err)
	return nil, nil
}

// Save writes the full collection. The primary is tried first; on
// failure the secondary takes the write so user data is never dropped
// while either channel is reachable. An error means both failed.
func (s *Store) Save(ctx context.Context, folder string, hotspots []*Hotspot) error {
	doc := &Document{
		Hotspots:    hotspots,
		Folder:      folder,
		LastUpdated: time.Now().UTC(),
	}

	var perr error
	if s.primary != nil {
		perr = s.primary.SaveHotspots(ctx, folder, doc)
		if perr == nil {
			return nil
		}
		s.logger.Warn("primary save failed, falling back", "folder", folder, "error", perr)
	}

	if serr := s.secondary.SaveHotspots(ctx, folder, doc); serr != nil {
		if perr != nil {
			return fmt.Errorf("saving hotspots for %s: primary: %w, secondary: %v", folder, perr, serr)
		}
		return fmt.Errorf("saving hotspots for %s: %w", folder, serr)
	}
	return nil
}

// LoadOrder returns the saved photo order for a folder, or nil when
// none was saved.
func (s *Store) LoadOrder(ctx context.Context, folder string) ([]string, error) {
	if s.primary != nil {
		names, err := s.primary.LoadOrder(ctx, folder)
		if err == nil {
			return names, nil
		}
		if !errors.Is(err, ErrNoDocument) {
			s.logger.Warn("primary order load failed, falling back", "folder", folder, "error", err)
		}
	}

	names, err := s.secondary.LoadOrder(ctx, folder)
	if err == nil || errors.Is(err, ErrNoDocument) {
		return names, nil
	}
	return nil, fmt.Errorf("loading photo order for %s: %w", folder, err)
}

// SaveOrder persists the photo order with the same layering as Save.
func (s *Store) SaveOrder(ctx context.Context, folder string, names []string) error {
	var perr error
	if s.primary != nil {
		perr = s.primary.SaveOrder(ctx, folder, names)
		if perr == nil {
			return nil
		}
		s.logger.Warn("primary order save failed, falling back", "folder", folder, "error", perr)
	}

	if serr := s.secondary.SaveOrder(ctx, folder, names); serr != nil {
		if perr != nil {
			return fmt.Errorf("saving photo order for %s: primary: %w, secondary: %v", folder, perr, serr)
		}
		return fmt.Errorf("saving photo order for %s: %w", folder, serr)
	}
	return nil
}

// ExportAll assembles the backup document for the given folders. Pure
// read-side aggregation; folders with no data contribute empty entries.
func (s *Store) ExportAll(ctx context.Context, folders []string) (*ExportDocument, error) {
	doc := &ExportDocument{
		Hotspots:    make(map[string][]*Hotspot, len(folders)),
		PhotoOrders: make(map[string][]string, len(folders)),
		ExportedAt:  time.Now().UTC(),
	}

	for _, folder := range folders {
		hs, err := s.Load(ctx, folder)
		if err != nil {
			return nil, fmt.Errorf("exporting %s: %w", folder, err)
		}
		if hs == nil {
			hs = []*Hotspot{}
		}
		doc.Hotspots[folder] = hs

		order, err := s.LoadOrder(ctx, folder)
		if err != nil {
			return nil, fmt.Errorf("exporting %s: %w", folder, err)
		}
		if order == nil {
			order = []string{}
		}
		doc.PhotoOrders[folder] = order
	}

	return doc, nil
}
