package nav

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/ozolins/panotour/internal/assets"
	"github.com/ozolins/panotour/internal/catalog"
	"github.com/ozolins/panotour/internal/db"
	"github.com/ozolins/panotour/internal/hotspot"
)

type fakeCatalog struct {
	folders map[string][]string
}

func (f *fakeCatalog) List(folder string) ([]string, error) {
	files, ok := f.folders[folder]
	if !ok {
		return nil, catalog.ErrUnknownFolder
	}
	return files, nil
}

func (f *fakeCatalog) Folders() []string {
	names := make([]string, 0, len(f.folders))
	for name := range f.folders {
		names = append(names, name)
	}
	return names
}

type fakeLoader struct{}

func (fakeLoader) LoadFolder(ctx context.Context, folder string, files []string, onProgress assets.ProgressFunc) []*assets.Asset {
	out := make([]*assets.Asset, len(files))
	for i, name := range files {
		out[i] = &assets.Asset{Name: name, Path: folder + "/" + name, Loaded: true}
		if onProgress != nil {
			onProgress(i+1, len(files), name)
		}
	}
	return out
}

// recorder captures presenter output for assertions.
type recorder struct {
	mu        sync.Mutex
	panoramas []PanoramaView
	markers   [][]hotspot.Marker
	infos     []string
	warnings  []string
	orders    [][]string
	progress  int
}

func (r *recorder) ShowPanorama(view PanoramaView, markers []hotspot.Marker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panoramas = append(r.panoramas, view)
	r.markers = append(r.markers, markers)
}

func (r *recorder) ShowInfo(title, html string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, title+"|"+html)
}

func (r *recorder) ShowWarning(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, message)
}

func (r *recorder) ShowProgress(done, total int, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress++
}

func (r *recorder) ShowOrder(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, names)
}

func (r *recorder) last() (PanoramaView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.panoramas) == 0 {
		return PanoramaView{}, false
	}
	return r.panoramas[len(r.panoramas)-1], true
}

func tourFiles() []string {
	return []string{
		"IMG_01.jpg", "IMG_02.jpg", "IMG_03.jpg", "IMG_04.jpg",
		"IMG_05.jpg", "IMG_06.jpg", "IMG_07.jpg", "IMG_08.jpg", "IMG_09.jpg",
	}
}

func newTestController(t *testing.T) (*Controller, *recorder, *hotspot.Store) {
	t.Helper()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	store := hotspot.NewStore(nil, hotspot.NewLocalBackend(d))
	rec := &recorder{}
	cat := &fakeCatalog{folders: map[string][]string{
		"pietura":  tourFiles(),
		"spaktele": {"A.jpg", "B.jpg"},
	}}
	c := NewController(cat, fakeLoader{}, store, rec, true, 450, 20)
	t.Cleanup(c.Close)
	return c, rec, store
}

func TestStartPresentsFirstPanorama(t *testing.T) {
	c, rec, _ := newTestController(t)

	if err := c.Start(context.Background(), "pietura"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	view, ok := rec.last()
	if !ok {
		t.Fatal("no panorama presented")
	}
	if view.Name != "IMG_01.jpg" || view.Index != 0 || view.Total != 9 {
		t.Errorf("view = %+v", view)
	}
	if rec.progress != 9 {
		t.Errorf("progress callbacks = %d, want 9", rec.progress)
	}
	if len(rec.orders) == 0 || len(rec.orders[0]) != 9 {
		t.Error("display order not presented")
	}
}

func TestNextPreviousWrap(t *testing.T) {
	c, rec, _ := newTestController(t)
	if err := c.Start(context.Background(), "pietura"); err != nil {
		t.Fatal(err)
	}

	c.Previous()
	if view, _ := rec.last(); view.Name != "IMG_09.jpg" || view.Index != 8 {
		t.Errorf("previous from first = %+v", view)
	}

	c.Next()
	if view, _ := rec.last(); view.Name != "IMG_01.jpg" || view.Index != 0 {
		t.Errorf("next from last = %+v", view)
	}
}

func TestKeyboardNavigation(t *testing.T) {
	c, rec, _ := newTestController(t)
	if err := c.Start(context.Background(), "pietura"); err != nil {
		t.Fatal(err)
	}

	c.HandleKey("ArrowRight")
	if view, _ := rec.last(); view.Name != "IMG_02.jpg" {
		t.Errorf("after ArrowRight: %+v", view)
	}
	c.HandleKey("ArrowLeft")
	if view, _ := rec.last(); view.Name != "IMG_01.jpg" {
		t.Errorf("after ArrowLeft: %+v", view)
	}
	// Unknown keys change nothing.
	before := len(rec.panoramas)
	c.HandleKey("PageDown")
	if len(rec.panoramas) != before {
		t.Error("unmapped key moved the view")
	}
}

func TestSwitchFolderResetsView(t *testing.T) {
	c, rec, _ := newTestController(t)
	ctx := context.Background()
	if err := c.Start(ctx, "pietura"); err != nil {
		t.Fatal(err)
	}
	c.Next()
	c.Next()

	if err := c.SwitchFolder(ctx, "spaktele"); err != nil {
		t.Fatalf("SwitchFolder: %v", err)
	}
	view, _ := rec.last()
	if view.Folder != "spaktele" || view.Name != "A.jpg" || view.Index != 0 || view.Total != 2 {
		t.Errorf("view after switch = %+v", view)
	}
}

// gatedLoader parks the first load until released so a folder switch
// can overtake it.
type gatedLoader struct {
	entered chan struct{}
	release chan struct{}
	first   sync.Once
}

func (g *gatedLoader) LoadFolder(ctx context.Context, folder string, files []string, onProgress assets.ProgressFunc) []*assets.Asset {
	gated := false
	g.first.Do(func() { gated = true })
	if gated {
		close(g.entered)
		<-g.release
	}
	return fakeLoader{}.LoadFolder(ctx, folder, files, onProgress)
}

func TestSupersededLoadDiscardsItsCollection(t *testing.T) {
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx := context.Background()
	store := hotspot.NewStore(nil, hotspot.NewLocalBackend(d))
	seed := []*hotspot.Hotspot{{
		ID:              "1700000000000-aabbccdd",
		AnchorImageName: "IMG_01.jpg",
		LinkKind:        hotspot.LinkNavigate,
		TargetImageName: "IMG_02.jpg",
		Distance:        450,
		Radius:          20,
	}}
	if err := store.Save(ctx, "pietura", seed); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec := &recorder{}
	cat := &fakeCatalog{folders: map[string][]string{
		"pietura":  tourFiles(),
		"spaktele": {"A.jpg", "B.jpg"},
	}}
	gl := &gatedLoader{entered: make(chan struct{}), release: make(chan struct{})}
	c := NewController(cat, gl, store, rec, true, 450, 20)
	t.Cleanup(c.Close)

	done := make(chan struct{})
	go func() {
		c.Start(ctx, "pietura")
		close(done)
	}()
	<-gl.entered

	// Overtake the parked load, then let it finish late.
	if err := c.SwitchFolder(ctx, "spaktele"); err != nil {
		t.Fatalf("SwitchFolder: %v", err)
	}
	close(gl.release)
	<-done

	view, _, ok := c.View()
	if !ok || view.Folder != "spaktele" {
		t.Fatalf("view = %+v, want spaktele", view)
	}
	if got := c.Engine().Collection(); len(got) != 0 {
		t.Errorf("stale hotspot collection installed: %v", got)
	}
	last, _ := rec.last()
	if last.Folder != "spaktele" {
		t.Errorf("last presented folder = %q, want spaktele", last.Folder)
	}
}

func TestSwitchToUnknownFolderWarnsAndKeepsSession(t *testing.T) {
	c, rec, _ := newTestController(t)
	ctx := context.Background()
	if err := c.Start(ctx, "pietura"); err != nil {
		t.Fatal(err)
	}

	if err := c.SwitchFolder(ctx, "nowhere"); err == nil {
		t.Error("expected error for unknown folder")
	}
	if len(rec.warnings) == 0 {
		t.Error("no warning presented")
	}
	// The old tour still navigates.
	c.Next()
	if view, _ := rec.last(); view.Folder != "pietura" || view.Name != "IMG_02.jpg" {
		t.Errorf("view = %+v", view)
	}
}

func TestPlacementCommitAndActivateNavigate(t *testing.T) {
	c, rec, _ := newTestController(t)
	ctx := context.Background()
	if err := c.Start(ctx, "pietura"); err != nil {
		t.Fatal(err)
	}

	c.BeginPlacement(hotspot.Pose{Yaw: 0.5, Pitch: 0.1})
	if err := c.CommitPlacement("IMG_05.jpg", "", "", hotspot.LinkNavigate); err != nil {
		t.Fatalf("CommitPlacement: %v", err)
	}

	markers := c.Engine().MarkersFor("IMG_01.jpg")
	if len(markers) != 1 {
		t.Fatalf("markers = %d, want 1", len(markers))
	}

	c.ActivateHotspot(markers[0].ID)
	view, _ := rec.last()
	if view.Name != "IMG_05.jpg" || view.Index != 4 {
		t.Errorf("view after activation = %+v", view)
	}
}

func TestActivateInfoHotspotShowsContent(t *testing.T) {
	c, rec, _ := newTestController(t)
	ctx := context.Background()
	if err := c.Start(ctx, "pietura"); err != nil {
		t.Fatal(err)
	}

	c.BeginPlacement(hotspot.Pose{})
	if err := c.CommitPlacement("", "Old Tower", "Built in **1873**.", hotspot.LinkInfo); err != nil {
		t.Fatalf("CommitPlacement: %v", err)
	}

	markers := c.Engine().MarkersFor("IMG_01.jpg")
	before := len(rec.panoramas)
	c.ActivateHotspot(markers[0].ID)

	if len(rec.panoramas) != before {
		t.Error("info hotspot moved the view")
	}
	if len(rec.infos) != 1 || !strings.Contains(rec.infos[0], "<strong>1873</strong>") {
		t.Errorf("infos = %v", rec.infos)
	}
}

func TestActivateUnknownHotspotWarns(t *testing.T) {
	c, rec, _ := newTestController(t)
	if err := c.Start(context.Background(), "pietura"); err != nil {
		t.Fatal(err)
	}

	before := len(rec.panoramas)
	c.ActivateHotspot("no-such-hotspot")

	if len(rec.panoramas) != before {
		t.Error("broken hotspot moved the view")
	}
	if len(rec.warnings) == 0 {
		t.Error("no warning presented for broken hotspot")
	}
}

func TestCommitWithoutPlacementWarns(t *testing.T) {
	c, rec, _ := newTestController(t)
	if err := c.Start(context.Background(), "pietura"); err != nil {
		t.Fatal(err)
	}

	if err := c.CommitPlacement("IMG_02.jpg", "", "", hotspot.LinkNavigate); err == nil {
		t.Error("expected error")
	}
	if len(rec.warnings) == 0 {
		t.Error("no warning presented")
	}
}

func TestReorderAndSaveOrder(t *testing.T) {
	c, rec, store := newTestController(t)
	ctx := context.Background()
	if err := c.Start(ctx, "pietura"); err != nil {
		t.Fatal(err)
	}

	if err := c.Reorder(0, 2); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	last := rec.orders[len(rec.orders)-1]
	if last[0] != "IMG_02.jpg" || last[2] != "IMG_01.jpg" {
		t.Errorf("order = %v", last)
	}

	// Navigation keeps the catalog order until the order is saved and
	// the folder reloaded.
	c.Next()
	if view, _ := rec.last(); view.Name != "IMG_02.jpg" {
		t.Errorf("view = %+v", view)
	}

	if err := c.SaveOrder(ctx); err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}
	saved, err := store.LoadOrder(ctx, "pietura")
	if err != nil {
		t.Fatalf("LoadOrder: %v", err)
	}
	if saved[0] != "IMG_02.jpg" {
		t.Errorf("saved order = %v", saved)
	}

	// Reload applies the saved order to the navigation sequence.
	if err := c.SwitchFolder(ctx, "pietura"); err != nil {
		t.Fatal(err)
	}
	if view, _ := rec.last(); view.Name != "IMG_02.jpg" || view.Index != 0 {
		t.Errorf("view after reload = %+v", view)
	}
}

func TestReorderWithInvalidIndices(t *testing.T) {
	c, _, _ := newTestController(t)
	if err := c.Start(context.Background(), "pietura"); err != nil {
		t.Fatal(err)
	}
	if err := c.Reorder(-1, 3); err == nil {
		t.Error("expected error for negative index")
	}
	if err := c.Reorder(0, 99); err == nil {
		t.Error("expected error for out-of-range index")
	}
}

func TestHotspotsFollowFolderSwitch(t *testing.T) {
	c, _, _ := newTestController(t)
	ctx := context.Background()
	if err := c.Start(ctx, "pietura"); err != nil {
		t.Fatal(err)
	}

	c.BeginPlacement(hotspot.Pose{})
	if err := c.CommitPlacement("IMG_02.jpg", "", "", hotspot.LinkNavigate); err != nil {
		t.Fatal(err)
	}
	c.Engine().Wait()

	if err := c.SwitchFolder(ctx, "spaktele"); err != nil {
		t.Fatal(err)
	}
	if got := c.Engine().MarkersFor("IMG_01.jpg"); len(got) != 0 {
		t.Errorf("markers from old folder leaked: %v", got)
	}

	// Switching back restores the persisted collection.
	if err := c.SwitchFolder(ctx, "pietura"); err != nil {
		t.Fatal(err)
	}
	if got := c.Engine().MarkersFor("IMG_01.jpg"); len(got) != 1 {
		t.Errorf("markers after return = %d, want 1", len(got))
	}
}

func TestRemoveHotspotRefreshesMarkers(t *testing.T) {
	c, rec, _ := newTestController(t)
	if err := c.Start(context.Background(), "pietura"); err != nil {
		t.Fatal(err)
	}

	c.BeginPlacement(hotspot.Pose{})
	if err := c.CommitPlacement("IMG_03.jpg", "", "", hotspot.LinkNavigate); err != nil {
		t.Fatal(err)
	}
	markers := c.Engine().MarkersFor("IMG_01.jpg")

	c.RemoveHotspot(markers[0].ID)
	rec.mu.Lock()
	lastMarkers := rec.markers[len(rec.markers)-1]
	rec.mu.Unlock()
	if len(lastMarkers) != 0 {
		t.Errorf("markers after removal = %v", lastMarkers)
	}
}

func TestViewerModeRefusesEditing(t *testing.T) {
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	store := hotspot.NewStore(nil, hotspot.NewLocalBackend(d))
	rec := &recorder{}
	cat := &fakeCatalog{folders: map[string][]string{"pietura": tourFiles()}}
	c := NewController(cat, fakeLoader{}, store, rec, false, 450, 20)
	t.Cleanup(c.Close)
	ctx := context.Background()
	if err := c.Start(ctx, "pietura"); err != nil {
		t.Fatal(err)
	}

	if _, err := c.BeginPlacement(hotspot.Pose{}); err != ErrAuthorOnly {
		t.Errorf("BeginPlacement err = %v, want ErrAuthorOnly", err)
	}
	if err := c.CommitPlacement("IMG_02.jpg", "", "", hotspot.LinkNavigate); err != ErrAuthorOnly {
		t.Errorf("CommitPlacement err = %v, want ErrAuthorOnly", err)
	}
	if err := c.Reorder(0, 1); err != ErrAuthorOnly {
		t.Errorf("Reorder err = %v, want ErrAuthorOnly", err)
	}
	if err := c.SaveOrder(ctx); err != ErrAuthorOnly {
		t.Errorf("SaveOrder err = %v, want ErrAuthorOnly", err)
	}

	// Navigation is untouched by the gate.
	c.Next()
	if view, _ := rec.last(); view.Name != "IMG_02.jpg" {
		t.Errorf("view = %+v", view)
	}
}
