// Package nav drives a browsing session: folder loading, circular
// panorama navigation, hotspot placement and activation, and photo
// reordering. State changes flow out through a Presenter, normally the
// websocket hub.
package nav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ozolins/panotour/internal/assets"
	"github.com/ozolins/panotour/internal/catalog"
	"github.com/ozolins/panotour/internal/hotspot"
	"github.com/ozolins/panotour/internal/tour"
)

// ErrAuthorOnly is returned when an editing operation arrives while
// author mode is disabled.
var ErrAuthorOnly = errors.New("author mode is disabled")

// PanoramaView is what the presentation layer needs to display the
// current panorama.
type PanoramaView struct {
	Folder string `json:"folder"`
	Name   string `json:"name"`
	Source string `json:"source"`
	Index  int    `json:"index"`
	Total  int    `json:"total"`
}

// Presenter receives the controller's output. Implementations must be
// safe for concurrent use.
type Presenter interface {
	ShowPanorama(view PanoramaView, markers []hotspot.Marker)
	ShowInfo(title, html string)
	ShowWarning(message string)
	ShowProgress(done, total int, name string)
	ShowOrder(names []string)
}

// Cataloger is the catalog surface the controller needs.
type Cataloger interface {
	List(folder string) ([]string, error)
	Folders() []string
}

// Controller owns one tour session. All entry points are safe to call
// from concurrent websocket readers.
type Controller struct {
	catalog   Cataloger
	loader    tour.AssetLoader
	store     *hotspot.Store
	engine    *hotspot.Engine
	presenter Presenter
	logger    *slog.Logger
	author    bool

	mu         sync.Mutex
	state      *tour.State
	generation int
	cancelLoad context.CancelFunc

	// installMu serializes the state install, collection swap, and
	// presentation of a finished load so a superseded load cannot
	// interleave its SetCollection with the winning one. It is never
	// held together with mu by the same caller.
	installMu sync.Mutex
}

// NewController wires a session. The hotspot engine is created here so
// it can observe the controller's current tour state, which is rebuilt
// on every folder switch. author enables the editing operations;
// without it placement, removal, and reordering are refused.
func NewController(cat Cataloger, loader tour.AssetLoader, store *hotspot.Store, presenter Presenter, author bool, distance, radius float64) *Controller {
	c := &Controller{
		catalog:   cat,
		loader:    loader,
		store:     store,
		presenter: presenter,
		logger:    slog.Default().With("component", "nav"),
		author:    author,
	}
	c.engine = hotspot.NewEngine(store, stateView{c}, distance, radius)
	return c
}

// Engine exposes the hotspot engine, mainly for route wiring.
func (c *Controller) Engine() *hotspot.Engine { return c.engine }

// Folders lists the known tour folders.
func (c *Controller) Folders() []string { return c.catalog.Folders() }

// Start loads the initial folder and presents its first panorama.
func (c *Controller) Start(ctx context.Context, folder string) error {
	return c.loadFolder(ctx, folder)
}

// SwitchFolder replaces the session's folder. A load already in flight
// is cancelled and its result discarded; the newest request wins.
func (c *Controller) SwitchFolder(ctx context.Context, folder string) error {
	return c.loadFolder(ctx, folder)
}

func (c *Controller) loadFolder(ctx context.Context, folder string) error {
	c.mu.Lock()
	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	c.generation++
	gen := c.generation
	lctx, cancel := context.WithCancel(ctx)
	c.cancelLoad = cancel
	c.mu.Unlock()

	order, err := c.store.LoadOrder(lctx, folder)
	if err != nil {
		c.logger.Warn("photo order unavailable, using catalog order", "folder", folder, "error", err)
		order = nil
	}

	st, err := tour.Load(lctx, c.catalog, c.loader, folder, order, func(done, total int, name string) {
		c.presenter.ShowProgress(done, total, name)
	})
	if err != nil {
		c.presenter.ShowWarning(fmt.Sprintf("could not open %s: %v", folder, err))
		return err
	}

	hotspots, err := c.store.Load(lctx, folder)
	if err != nil {
		c.logger.Warn("hotspots unavailable, starting empty", "folder", folder, "error", err)
		c.presenter.ShowWarning("saved hotspots could not be loaded")
		hotspots = nil
	}

	c.installMu.Lock()
	defer c.installMu.Unlock()

	c.mu.Lock()
	if gen != c.generation {
		// A newer folder switch superseded this load.
		c.mu.Unlock()
		cancel()
		return nil
	}
	c.state = st
	c.mu.Unlock()

	c.engine.SetCollection(folder, hotspots)
	c.logger.Info("folder loaded", "folder", folder, "images", st.Len(), "hotspots", len(hotspots))
	c.present()
	c.presenter.ShowOrder(st.OrderNames())
	return nil
}

// Next advances to the following panorama, wrapping to the first after
// the last.
func (c *Controller) Next() { c.step(1) }

// Previous steps back one panorama, wrapping to the last before the
// first.
func (c *Controller) Previous() { c.step(-1) }

func (c *Controller) step(direction int) {
	c.mu.Lock()
	if c.state == nil {
		c.mu.Unlock()
		return
	}
	c.state.Advance(direction)
	c.mu.Unlock()
	c.present()
}

// ActivateHotspot resolves a marker click. Navigation jumps by image
// name; info hotspots surface their rendered content; a dangling or
// unknown link leaves the view unchanged and warns the viewer.
func (c *Controller) ActivateHotspot(id string) {
	action := c.engine.Activate(id)
	switch action.Kind {
	case hotspot.ActionNavigate:
		c.mu.Lock()
		ok := c.state != nil && c.state.JumpTo(action.TargetImageName)
		c.mu.Unlock()
		if !ok {
			c.presenter.ShowWarning("hotspot target no longer exists")
			return
		}
		c.present()
	case hotspot.ActionShowInfo:
		c.presenter.ShowInfo(action.Title, action.DescriptionHTML)
	case hotspot.ActionNoop:
		c.presenter.ShowWarning("hotspot link is broken")
	}
}

// requireAuthor refuses editing operations outside author mode.
func (c *Controller) requireAuthor() error {
	if c.author {
		return nil
	}
	c.presenter.ShowWarning(ErrAuthorOnly.Error())
	return ErrAuthorOnly
}

// BeginPlacement enters placement mode at the given view pose and
// returns the provisional marker position.
func (c *Controller) BeginPlacement(pose hotspot.Pose) (hotspot.PendingPlacement, error) {
	if err := c.requireAuthor(); err != nil {
		return hotspot.PendingPlacement{}, err
	}
	return c.engine.BeginPlacement(pose), nil
}

// CancelPlacement leaves placement mode without creating anything.
func (c *Controller) CancelPlacement() { c.engine.CancelPlacement() }

// CommitPlacement finalizes the pending placement into a hotspot and
// re-presents the current panorama's markers.
func (c *Controller) CommitPlacement(target, title, description string, kind hotspot.LinkKind) error {
	if err := c.requireAuthor(); err != nil {
		return err
	}
	if _, err := c.engine.CommitPlacement(target, title, description, kind); err != nil {
		c.presenter.ShowWarning(err.Error())
		return err
	}
	c.present()
	return nil
}

// RemoveHotspot deletes a hotspot and refreshes the markers.
func (c *Controller) RemoveHotspot(id string) {
	if c.requireAuthor() != nil {
		return
	}
	if c.engine.Remove(id) {
		c.present()
	}
}

// UpdateHotspot adjusts a numeric hotspot field, currently distance or
// radius.
func (c *Controller) UpdateHotspot(id, field string, value float64) error {
	if err := c.requireAuthor(); err != nil {
		return err
	}
	if _, err := c.engine.UpdateField(id, field, value); err != nil {
		c.presenter.ShowWarning(err.Error())
		return err
	}
	c.present()
	return nil
}

// Reorder moves one display-order entry. The navigation sequence keeps
// its current order until the order is saved and the folder reloaded.
func (c *Controller) Reorder(from, to int) error {
	if err := c.requireAuthor(); err != nil {
		return err
	}
	c.mu.Lock()
	st := c.state
	if st == nil {
		c.mu.Unlock()
		return fmt.Errorf("no folder loaded")
	}
	ok := st.Reorder(from, to)
	names := st.OrderNames()
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("invalid reorder %d -> %d", from, to)
	}
	c.presenter.ShowOrder(names)
	return nil
}

// SaveOrder persists the current display order for the active folder.
func (c *Controller) SaveOrder(ctx context.Context) error {
	if err := c.requireAuthor(); err != nil {
		return err
	}
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()
	if st == nil {
		return fmt.Errorf("no folder loaded")
	}

	if err := c.store.SaveOrder(ctx, st.Folder, st.OrderNames()); err != nil {
		c.presenter.ShowWarning("photo order could not be saved")
		return err
	}
	c.logger.Info("photo order saved", "folder", st.Folder)
	return nil
}

// HandleKey maps keyboard input onto navigation and placement.
func (c *Controller) HandleKey(key string) {
	switch key {
	case "ArrowRight":
		c.Next()
	case "ArrowLeft":
		c.Previous()
	case "Escape":
		c.CancelPlacement()
	}
}

// View returns the current panorama view and its markers, for late
// joiners. ok is false before the first folder load completes.
func (c *Controller) View() (PanoramaView, []hotspot.Marker, bool) {
	c.mu.Lock()
	st := c.state
	c.mu.Unlock()
	if st == nil {
		return PanoramaView{}, nil, false
	}

	cur := st.Current()
	if cur == nil {
		return PanoramaView{}, nil, false
	}
	view := PanoramaView{
		Folder: st.Folder,
		Name:   cur.Name,
		Source: sourcePath(st.Folder, cur),
		Index:  st.Index(),
		Total:  st.Len(),
	}
	return view, c.engine.MarkersFor(cur.Name), true
}

// Close cancels any in-flight load and waits for pending hotspot
// writes to drain.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	c.mu.Unlock()
	c.engine.Wait()
}

func (c *Controller) present() {
	if view, markers, ok := c.View(); ok {
		c.presenter.ShowPanorama(view, markers)
	}
}

func sourcePath(folder string, a *assets.Asset) string {
	if !a.Loaded {
		return a.DisplayPath()
	}
	return catalog.AssetPath(folder, a.Name)
}

// stateView adapts the controller's current tour state for the hotspot
// engine. The engine holds no lock of ours while calling in, so taking
// c.mu here is safe.
type stateView struct{ c *Controller }

func (v stateView) state() *tour.State {
	v.c.mu.Lock()
	defer v.c.mu.Unlock()
	return v.c.state
}

func (v stateView) CurrentImageName() string {
	if st := v.state(); st != nil {
		return st.CurrentImageName()
	}
	return ""
}

func (v stateView) Index() int {
	if st := v.state(); st != nil {
		return st.Index()
	}
	return 0
}

func (v stateView) HasImage(name string) bool {
	st := v.state()
	return st != nil && st.HasImage(name)
}

func (v stateView) NameAt(i int) (string, bool) {
	if st := v.state(); st != nil {
		return st.NameAt(i)
	}
	return "", false
}

func (v stateView) IndexOf(name string) int {
	if st := v.state(); st != nil {
		return st.IndexOf(name)
	}
	return -1
}
