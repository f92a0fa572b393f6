package nav

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ozolins/panotour/internal/hotspot"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientEvent is the incoming websocket message format. One flat shape
// covers every event type; unused fields stay zero.
type clientEvent struct {
	Type      string  `json:"type"`
	Folder    string  `json:"folder,omitempty"`
	HotspotID string  `json:"hotspotId,omitempty"`
	Key       string  `json:"key,omitempty"`
	Yaw       float64 `json:"yaw,omitempty"`
	Pitch     float64 `json:"pitch,omitempty"`
	Target    string  `json:"target,omitempty"`
	Title     string  `json:"title,omitempty"`
	Content   string  `json:"content,omitempty"`
	LinkKind  string  `json:"linkKind,omitempty"`
	Field     string  `json:"field,omitempty"`
	Value     float64 `json:"value,omitempty"`
	From      int     `json:"from"`
	To        int     `json:"to"`
}

// serverEvent is the outgoing websocket message format.
type serverEvent struct {
	Type     string           `json:"type"`
	Panorama *PanoramaView    `json:"panorama,omitempty"`
	Markers  []hotspot.Marker `json:"markers,omitempty"`
	Title    string           `json:"title,omitempty"`
	Content  string           `json:"content,omitempty"`
	Message  string           `json:"message,omitempty"`
	Folders  []string         `json:"folders,omitempty"`
	Order    []string         `json:"order,omitempty"`
	Done     int              `json:"done,omitempty"`
	Total    int              `json:"total,omitempty"`
	Name     string           `json:"name,omitempty"`
	Pending  any              `json:"pending,omitempty"`
}

// client is one connected viewer. Gorilla connections allow a single
// concurrent writer, so every write goes through the client's mutex.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(ev serverEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(ev)
}

// Hub fans controller output out to every connected viewer and feeds
// their events back in. It is the session's Presenter.
type Hub struct {
	controller *Controller
	logger     *slog.Logger

	mu      sync.Mutex
	clients map[*client]bool
}

// NewHub creates an empty hub. Attach binds it to a controller; the
// two reference each other, so construction happens in two steps.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		logger:  slog.Default().With("component", "hub"),
	}
}

// Attach binds the hub to the controller whose output it presents.
func (h *Hub) Attach(c *Controller) { h.controller = c }

// ServeHTTP upgrades the connection, replays the current view so late
// joiners start in sync, and runs the read loop until the peer leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	cl := &client{conn: conn}
	h.mu.Lock()
	h.clients[cl] = true
	h.mu.Unlock()

	cl.send(serverEvent{Type: "folders", Folders: h.controller.Folders()})
	if view, markers, ok := h.controller.View(); ok {
		cl.send(serverEvent{Type: "setPanoramaSource", Panorama: &view, Markers: markers})
	}

	defer func() {
		h.mu.Lock()
		delete(h.clients, cl)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var ev clientEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			cl.send(serverEvent{Type: "warning", Message: "invalid message format"})
			continue
		}
		h.dispatch(r.Context(), cl, ev)
	}
}

func (h *Hub) dispatch(ctx context.Context, cl *client, ev clientEvent) {
	switch ev.Type {
	case "next":
		h.controller.Next()
	case "previous":
		h.controller.Previous()
	case "folderSelected":
		if ev.Folder == "" {
			cl.send(serverEvent{Type: "warning", Message: "folder is required"})
			return
		}
		if err := h.controller.SwitchFolder(ctx, ev.Folder); err != nil {
			h.logger.Warn("folder switch failed", "folder", ev.Folder, "error", err)
		}
	case "hotspotActivated":
		h.controller.ActivateHotspot(ev.HotspotID)
	case "placementRequested":
		pending, err := h.controller.BeginPlacement(hotspot.Pose{Yaw: ev.Yaw, Pitch: ev.Pitch})
		if err != nil {
			return
		}
		cl.send(serverEvent{Type: "placementStarted", Pending: pending})
	case "placementCancelled":
		h.controller.CancelPlacement()
	case "placementCommitted":
		kind := hotspot.LinkKind(ev.LinkKind)
		if kind == "" {
			kind = hotspot.LinkNavigate
		}
		h.controller.CommitPlacement(ev.Target, ev.Title, ev.Content, kind)
	case "hotspotRemoved":
		h.controller.RemoveHotspot(ev.HotspotID)
	case "hotspotUpdated":
		h.controller.UpdateHotspot(ev.HotspotID, ev.Field, ev.Value)
	case "reorder":
		h.controller.Reorder(ev.From, ev.To)
	case "saveOrder":
		if err := h.controller.SaveOrder(ctx); err != nil {
			h.logger.Warn("order save failed", "error", err)
		}
	case "keypress":
		h.controller.HandleKey(ev.Key)
	default:
		cl.send(serverEvent{Type: "warning", Message: "unknown event type: " + ev.Type})
	}
}

func (h *Hub) broadcast(ev serverEvent) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		targets = append(targets, cl)
	}
	h.mu.Unlock()

	for _, cl := range targets {
		if err := cl.send(ev); err != nil {
			h.logger.Warn("websocket write failed", "error", err)
			h.mu.Lock()
			delete(h.clients, cl)
			h.mu.Unlock()
			cl.conn.Close()
		}
	}
}

// ShowPanorama implements Presenter.
func (h *Hub) ShowPanorama(view PanoramaView, markers []hotspot.Marker) {
	h.broadcast(serverEvent{Type: "setPanoramaSource", Panorama: &view, Markers: markers})
}

// ShowInfo implements Presenter.
func (h *Hub) ShowInfo(title, html string) {
	h.broadcast(serverEvent{Type: "showInfo", Title: title, Content: html})
}

// ShowWarning implements Presenter.
func (h *Hub) ShowWarning(message string) {
	h.broadcast(serverEvent{Type: "warning", Message: message})
}

// ShowProgress implements Presenter.
func (h *Hub) ShowProgress(done, total int, name string) {
	h.broadcast(serverEvent{Type: "loadProgress", Done: done, Total: total, Name: name})
}

// ShowOrder implements Presenter.
func (h *Hub) ShowOrder(names []string) {
	h.broadcast(serverEvent{Type: "photoOrder", Order: names})
}
