package hotspot

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ozolins/panotour/internal/db"
)

// FolderLister enumerates known tour folders for the export route.
// Satisfied by *catalog.Catalog.
type FolderLister interface {
	Folders() []string
}

// RegisterRoutes mounts the document endpoint (the server side of the
// primary backend) plus the bulk export.
func RegisterRoutes(r chi.Router, d *db.DB, folders FolderLister) {
	r.Get("/api/hotspots/{folder}", getHotspotsHandler(d))
	r.Post("/api/hotspots/{folder}", postHotspotsHandler(d))
	r.Get("/api/orders/{folder}", getOrderHandler(d))
	r.Post("/api/orders/{folder}", postOrderHandler(d))
	r.Get("/api/export", exportHandler(d, folders))
}

func getHotspotsHandler(d *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		folder := chi.URLParam(r, "folder")
		payload, ok, err := d.GetDocument(folder)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "no hotspots for folder", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}
}

func postHotspotsHandler(d *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		folder := chi.URLParam(r, "folder")

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "reading request body", http.StatusBadRequest)
			return
		}

		// Normalize whatever shape the client sent into the envelope,
		// stamping the write time.
		hotspots, err := DecodeHotspots(body)
		if err != nil {
			http.Error(w, "invalid hotspot payload", http.StatusBadRequest)
			return
		}
		if hotspots == nil {
			hotspots = []*Hotspot{}
		}
		doc := Document{
			Hotspots:    hotspots,
			Folder:      folder,
			LastUpdated: time.Now().UTC(),
		}

		payload, err := json.Marshal(doc)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := d.SetDocument(folder, string(payload)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"ok":          true,
			"count":       len(hotspots),
			"lastUpdated": doc.LastUpdated,
		})
	}
}

func getOrderHandler(d *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		folder := chi.URLParam(r, "folder")
		value, ok, err := d.GetKV(orderKey(folder))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "no photo order for folder", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(value))
	}
}

func postOrderHandler(d *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		folder := chi.URLParam(r, "folder")

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "reading request body", http.StatusBadRequest)
			return
		}

		var names []string
		if err := json.Unmarshal(body, &names); err != nil {
			var envelope struct {
				Order []string `json:"order"`
			}
			if err := json.Unmarshal(body, &envelope); err != nil {
				http.Error(w, "invalid photo order payload", http.StatusBadRequest)
				return
			}
			names = envelope.Order
		}

		data, err := json.Marshal(names)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := d.SetKV(orderKey(folder), string(data)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(names)})
	}
}

func exportHandler(d *db.DB, folders FolderLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Known folders: catalog entries plus any folder with a stored
		// document (covering tours whose images were since removed).
		known := make(map[string]bool)
		var order []string
		if folders != nil {
			for _, f := range folders.Folders() {
				if !known[f] {
					known[f] = true
					order = append(order, f)
				}
			}
		}
		stored, err := d.ListDocumentFolders()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		for _, f := range stored {
			if !known[f] {
				known[f] = true
				order = append(order, f)
			}
		}

		store := NewStore(nil, NewDocumentBackend(d))
		doc, err := store.ExportAll(r.Context(), order)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Disposition", `attachment; filename="panotour-export.json"`)
		writeJSON(w, http.StatusOK, doc)
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
