package nav

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ozolins/panotour/internal/db"
	"github.com/ozolins/panotour/internal/hotspot"
)

func newHubServer(t *testing.T) (*httptest.Server, *Controller) {
	t.Helper()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	hub := NewHub()
	cat := &fakeCatalog{folders: map[string][]string{"pietura": tourFiles()}}
	store := hotspot.NewStore(nil, hotspot.NewLocalBackend(d))
	c := NewController(cat, fakeLoader{}, store, hub, true, 450, 20)
	hub.Attach(c)
	t.Cleanup(c.Close)

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return srv, c
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads events until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, wantType string) serverEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var ev serverEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("waiting for %q: %v", wantType, err)
		}
		if ev.Type == wantType {
			return ev
		}
	}
}

func TestHubReplaysViewToLateJoiner(t *testing.T) {
	srv, c := newHubServer(t)
	if err := c.Start(context.Background(), "pietura"); err != nil {
		t.Fatal(err)
	}

	conn := dial(t, srv)

	ev := readUntil(t, conn, "folders")
	if len(ev.Folders) != 1 || ev.Folders[0] != "pietura" {
		t.Errorf("folders = %v", ev.Folders)
	}

	ev = readUntil(t, conn, "setPanoramaSource")
	if ev.Panorama == nil || ev.Panorama.Name != "IMG_01.jpg" || ev.Panorama.Total != 9 {
		t.Errorf("panorama = %+v", ev.Panorama)
	}
}

func TestHubDispatchesNavigation(t *testing.T) {
	srv, c := newHubServer(t)
	if err := c.Start(context.Background(), "pietura"); err != nil {
		t.Fatal(err)
	}

	conn := dial(t, srv)
	readUntil(t, conn, "setPanoramaSource")

	if err := conn.WriteJSON(clientEvent{Type: "next"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := readUntil(t, conn, "setPanoramaSource")
	if ev.Panorama.Name != "IMG_02.jpg" || ev.Panorama.Index != 1 {
		t.Errorf("after next: %+v", ev.Panorama)
	}

	if err := conn.WriteJSON(clientEvent{Type: "keypress", Key: "ArrowLeft"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev = readUntil(t, conn, "setPanoramaSource")
	if ev.Panorama.Name != "IMG_01.jpg" {
		t.Errorf("after ArrowLeft: %+v", ev.Panorama)
	}
}

func TestHubBroadcastsToAllClients(t *testing.T) {
	srv, c := newHubServer(t)
	if err := c.Start(context.Background(), "pietura"); err != nil {
		t.Fatal(err)
	}

	watcher := dial(t, srv)
	driver := dial(t, srv)
	readUntil(t, watcher, "setPanoramaSource")
	readUntil(t, driver, "setPanoramaSource")

	if err := driver.WriteJSON(clientEvent{Type: "next"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Both peers see the move.
	if ev := readUntil(t, driver, "setPanoramaSource"); ev.Panorama.Name != "IMG_02.jpg" {
		t.Errorf("driver saw %+v", ev.Panorama)
	}
	if ev := readUntil(t, watcher, "setPanoramaSource"); ev.Panorama.Name != "IMG_02.jpg" {
		t.Errorf("watcher saw %+v", ev.Panorama)
	}
}

func TestHubRejectsUnknownEvent(t *testing.T) {
	srv, c := newHubServer(t)
	if err := c.Start(context.Background(), "pietura"); err != nil {
		t.Fatal(err)
	}

	conn := dial(t, srv)
	readUntil(t, conn, "setPanoramaSource")

	if err := conn.WriteJSON(clientEvent{Type: "teleport"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := readUntil(t, conn, "warning")
	if !strings.Contains(ev.Message, "teleport") {
		t.Errorf("warning = %q", ev.Message)
	}
}

func TestHubPlacementFlow(t *testing.T) {
	srv, c := newHubServer(t)
	if err := c.Start(context.Background(), "pietura"); err != nil {
		t.Fatal(err)
	}

	conn := dial(t, srv)
	readUntil(t, conn, "setPanoramaSource")

	if err := conn.WriteJSON(clientEvent{Type: "placementRequested", Yaw: 0.4, Pitch: 0.1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, conn, "placementStarted")

	if err := conn.WriteJSON(clientEvent{
		Type:   "placementCommitted",
		Target: "IMG_06.jpg",
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := readUntil(t, conn, "setPanoramaSource")
	if len(ev.Markers) != 1 {
		t.Fatalf("markers = %v", ev.Markers)
	}

	if err := conn.WriteJSON(clientEvent{Type: "hotspotActivated", HotspotID: ev.Markers[0].ID}); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev = readUntil(t, conn, "setPanoramaSource")
	if ev.Panorama.Name != "IMG_06.jpg" {
		t.Errorf("after activation: %+v", ev.Panorama)
	}
}
