package hotspot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotPlacing is returned when a commit arrives with no placement
	// in progress.
	ErrNotPlacing = errors.New("no placement in progress")

	// ErrInvalidCommit is returned when a pending hotspot fails
	// validation; nothing is mutated.
	ErrInvalidCommit = errors.New("invalid hotspot")
)

// ActionKind classifies the outcome of activating a hotspot.
type ActionKind int

const (
	ActionNoop ActionKind = iota
	ActionNavigate
	ActionShowInfo
)

// Action is the resolved result of a hotspot activation.
type Action struct {
	Kind            ActionKind
	TargetImageName string
	Title           string
	Description     string
	DescriptionHTML string
}

// TourView is the slice of tour state the engine reads. Satisfied by
// *tour.State.
type TourView interface {
	CurrentImageName() string
	Index() int
	HasImage(name string) bool
	NameAt(i int) (string, bool)
	IndexOf(name string) int
}

// PendingPlacement is the single in-progress placement of author mode.
type PendingPlacement struct {
	Pose     Pose
	Distance float64
	Position Position
}

// Engine creates, filters, and resolves hotspots for the active folder.
// All mutations go through the engine; the collection is replaced
// wholesale on folder switch via SetCollection.
type Engine struct {
	store    *Store
	view     TourView
	distance float64
	radius   float64
	logger   *slog.Logger

	mu       sync.Mutex
	folder   string
	hotspots []*Hotspot
	pending  *PendingPlacement

	saves sync.WaitGroup
}

// NewEngine creates an Engine. distance and radius are the placement
// defaults from configuration.
func NewEngine(store *Store, view TourView, distance, radius float64) *Engine {
	return &Engine{
		store:    store,
		view:     view,
		distance: distance,
		radius:   radius,
		logger:   slog.Default().With("component", "hotspot-engine"),
	}
}

// SetCollection installs the collection loaded for a folder, replacing
// the previous one and discarding any pending placement. Records from
// viewers that predate name-based anchoring carry only an index; they
// are migrated to a name here, once, so every later lookup is by name.
func (e *Engine) SetCollection(folder string, hotspots []*Hotspot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.folder = folder
	e.pending = nil
	e.hotspots = dedupe(append([]*Hotspot(nil), hotspots...))

	for _, h := range e.hotspots {
		if h.AnchorImageName == "" {
			if name, ok := e.view.NameAt(h.AnchorImageIndex); ok {
				h.AnchorImageName = name
			}
		}
	}
}

// Collection returns a copy of the current collection.
func (e *Engine) Collection() []*Hotspot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Hotspot(nil), e.hotspots...)
}

// Placing reports whether a placement is in progress.
func (e *Engine) Placing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending != nil
}

// BeginPlacement projects a candidate anchor along the viewer's look
// direction and enters the placing state. A placement already in
// progress is replaced, never stacked.
func (e *Engine) BeginPlacement(pose Pose) PendingPlacement {
	p := PendingPlacement{
		Pose:     pose,
		Distance: e.distance,
		Position: Project(pose, e.distance),
	}

	e.mu.Lock()
	e.pending = &p
	e.mu.Unlock()
	return p
}

// CancelPlacement discards the pending placement, if any.
func (e *Engine) CancelPlacement() {
	e.mu.Lock()
	e.pending = nil
	e.mu.Unlock()
}

// CommitPlacement validates and stores the pending placement as a new
// hotspot anchored to the displayed panorama. Validation failures leave
// the collection and the pending placement untouched so the author can
// correct the input. The store write runs asynchronously; the in-memory
// collection is authoritative the moment this returns.
func (e *Engine) CommitPlacement(target, title, description string, kind LinkKind) (*Hotspot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending == nil {
		return nil, ErrNotPlacing
	}

	anchor := e.view.CurrentImageName()
	switch kind {
	case LinkNavigate:
		if target == "" {
			return nil, fmt.Errorf("%w: navigate hotspot needs a target image", ErrInvalidCommit)
		}
		if target == anchor {
			return nil, fmt.Errorf("%w: target must differ from the anchor image", ErrInvalidCommit)
		}
		if !e.view.HasImage(target) {
			return nil, fmt.Errorf("%w: target image %s not in this tour", ErrInvalidCommit, target)
		}
	case LinkInfo:
		if title == "" {
			return nil, fmt.Errorf("%w: info hotspot needs a title", ErrInvalidCommit)
		}
	default:
		return nil, fmt.Errorf("%w: unknown link kind %q", ErrInvalidCommit, kind)
	}

	h := &Hotspot{
		ID:               newID(),
		AnchorImageName:  anchor,
		AnchorImageIndex: e.view.Index(),
		Position:         e.pending.Position,
		LinkKind:         kind,
		Title:            title,
		Description:      description,
		CreatedAt:        time.Now().UTC(),
		Distance:         e.pending.Distance,
		Radius:           e.radius,
	}
	if kind == LinkNavigate {
		h.TargetImageName = target
		if idx := e.view.IndexOf(target); idx >= 0 {
			h.TargetImageIndex = &idx
		}
	}

	e.hotspots = append(e.hotspots, h)
	e.pending = nil
	e.persistLocked()
	return h, nil
}

// HotspotsFor returns the hotspots anchored to the named panorama.
// Cross-anchor leaks are impossible: only exact name matches pass
// (legacy index-only records were renamed at SetCollection).
func (e *Engine) HotspotsFor(imageName string) []*Hotspot {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []*Hotspot
	for _, h := range e.hotspots {
		if h.AnchorImageName == imageName {
			out = append(out, h)
		}
	}
	return out
}

// MarkersFor returns the render view of HotspotsFor.
func (e *Engine) MarkersFor(imageName string) []Marker {
	hs := e.HotspotsFor(imageName)
	markers := make([]Marker, len(hs))
	for i, h := range hs {
		markers[i] = Marker{ID: h.ID, Placement: h.Position, Kind: h.LinkKind}
	}
	return markers
}

// Activate resolves a hotspot into its action. A navigate hotspot whose
// target no longer resolves degrades to Noop with a logged warning,
// never an error.
func (e *Engine) Activate(id string) Action {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.findLocked(id)
	if h == nil {
		e.logger.Warn("activation of unknown hotspot", "id", id)
		return Action{Kind: ActionNoop}
	}

	if h.TargetImageName != "" && e.view.HasImage(h.TargetImageName) {
		return Action{Kind: ActionNavigate, TargetImageName: h.TargetImageName}
	}
	if h.TargetImageIndex != nil {
		if name, ok := e.view.NameAt(*h.TargetImageIndex); ok {
			return Action{Kind: ActionNavigate, TargetImageName: name}
		}
	}
	if h.Title != "" {
		return Action{
			Kind:            ActionShowInfo,
			Title:           h.Title,
			Description:     h.Description,
			DescriptionHTML: RenderDescription(h.Description),
		}
	}

	e.logger.Warn("dangling hotspot link", "id", id, "folder", e.folder)
	return Action{Kind: ActionNoop}
}

// Remove deletes a hotspot by id and persists the change. Removing an
// unknown id is a no-op returning false.
func (e *Engine) Remove(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, h := range e.hotspots {
		if h.ID == id {
			e.hotspots = append(e.hotspots[:i], e.hotspots[i+1:]...)
			e.persistLocked()
			return true
		}
	}
	return false
}

// UpdateField mutates a single adjustable field. A distance change
// re-runs the placement projection so the stored position cannot drift
// from what BeginPlacement would produce.
func (e *Engine) UpdateField(id, field string, value float64) (*Hotspot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.findLocked(id)
	if h == nil {
		return nil, fmt.Errorf("updating hotspot %s: not found", id)
	}

	switch field {
	case "distance":
		if value <= 0 {
			return nil, fmt.Errorf("updating hotspot %s: distance must be positive", id)
		}
		h.Distance = value
		h.Position = Project(PoseOf(h.Position), value)
	case "radius":
		if value <= 0 {
			return nil, fmt.Errorf("updating hotspot %s: radius must be positive", id)
		}
		h.Radius = value
	default:
		return nil, fmt.Errorf("updating hotspot %s: field %q is not adjustable", id, field)
	}

	e.persistLocked()
	return h, nil
}

// Wait blocks until queued persistence writes have finished. Called on
// shutdown so no write is lost to process exit.
func (e *Engine) Wait() {
	e.saves.Wait()
}

func (e *Engine) findLocked(id string) *Hotspot {
	for _, h := range e.hotspots {
		if h.ID == id {
			return h
		}
	}
	return nil
}

// persistLocked kicks off the asynchronous store save for the current
// collection snapshot. Callers hold e.mu.
func (e *Engine) persistLocked() {
	folder := e.folder
	snapshot := append([]*Hotspot(nil), e.hotspots...)

	e.saves.Add(1)
	go func() {
		defer e.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.store.Save(ctx, folder, snapshot); err != nil {
			e.logger.Error("persisting hotspots failed on all channels", "folder", folder, "error", err)
		}
	}()
}

// newID builds a time-based id; the uuid suffix keeps two commits in
// the same millisecond distinct.
func newID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
