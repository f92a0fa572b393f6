package db

import (
	"testing"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Verify tables exist by selecting from each one.
	tables := []string{"hotspot_documents", "kv_store"}
	for _, table := range tables {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	// Running migrate again should not fail.
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate() error: %v", err)
	}
}

func TestKVRoundTrip(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	if _, ok, _ := d.GetKV("hotspots:pietura"); ok {
		t.Fatal("expected missing key before write")
	}

	if err := d.SetKV("hotspots:pietura", `[]`); err != nil {
		t.Fatalf("SetKV: %v", err)
	}
	if err := d.SetKV("hotspots:pietura", `[{"id":"1"}]`); err != nil {
		t.Fatalf("SetKV overwrite: %v", err)
	}

	got, ok, err := d.GetKV("hotspots:pietura")
	if err != nil {
		t.Fatalf("GetKV: %v", err)
	}
	if !ok || got != `[{"id":"1"}]` {
		t.Errorf("got (%q, %v), want latest value", got, ok)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	defer d.Close()

	if err := d.SetDocument("pietura", `{"hotspots":[]}`); err != nil {
		t.Fatalf("SetDocument: %v", err)
	}
	if err := d.SetDocument("spaktele", `{"hotspots":[]}`); err != nil {
		t.Fatalf("SetDocument: %v", err)
	}

	payload, ok, err := d.GetDocument("pietura")
	if err != nil || !ok {
		t.Fatalf("GetDocument: ok=%v err=%v", ok, err)
	}
	if payload != `{"hotspots":[]}` {
		t.Errorf("got payload %q", payload)
	}

	folders, err := d.ListDocumentFolders()
	if err != nil {
		t.Fatalf("ListDocumentFolders: %v", err)
	}
	if len(folders) != 2 || folders[0] != "pietura" || folders[1] != "spaktele" {
		t.Errorf("got folders %v", folders)
	}
}
