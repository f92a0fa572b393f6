package hotspot

import (
	"encoding/json"
	"fmt"
	"time"
)

// LinkKind says what activating a hotspot does.
type LinkKind string

const (
	LinkNavigate LinkKind = "navigate"
	LinkInfo     LinkKind = "info"
)

// Position is a 3D anchor point on the panorama sphere plus the
// precomputed placement string the presentation layer positions the
// marker with.
type Position struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Placement string  `json:"placement"`
}

// Hotspot is a positioned marker anchored to one panorama. The anchor
// is the image name; AnchorImageIndex is kept only for records written
// by viewers that predate name-based anchoring.
type Hotspot struct {
	ID               string    `json:"id"`
	AnchorImageName  string    `json:"anchorImageName,omitempty"`
	AnchorImageIndex int       `json:"anchorImageIndex"`
	Position         Position  `json:"position"`
	LinkKind         LinkKind  `json:"linkKind"`
	TargetImageName  string    `json:"targetImageName,omitempty"`
	TargetImageIndex *int      `json:"targetImageIndex,omitempty"`
	Title            string    `json:"title,omitempty"`
	Description      string    `json:"description,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	Distance         float64   `json:"distance"`
	Radius           float64   `json:"radius"`
}

// Document is the enveloped payload of the primary backend.
type Document struct {
	Hotspots    []*Hotspot `json:"hotspots"`
	Folder      string     `json:"folder,omitempty"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

// ExportDocument aggregates hotspots and photo orders across folders
// for offline backup and versioning.
type ExportDocument struct {
	Hotspots    map[string][]*Hotspot `json:"hotspots"`
	PhotoOrders map[string][]string   `json:"photoOrders"`
	ExportedAt  time.Time             `json:"exportedAt"`
}

// Marker is the minimal hotspot view the presentation adapter renders.
type Marker struct {
	ID        string   `json:"id"`
	Placement Position `json:"placement"`
	Kind      LinkKind `json:"kind"`
}

// DecodeHotspots parses a stored payload. Two shapes are accepted: a
// bare list of hotspots, or an envelope whose hotspots field holds the
// list. Both normalize to the same slice; duplicated ids keep the first
// occurrence.
func DecodeHotspots(data []byte) ([]*Hotspot, error) {
	var list []*Hotspot
	if err := json.Unmarshal(data, &list); err == nil {
		return dedupe(list), nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding hotspot payload: %w", err)
	}
	return dedupe(doc.Hotspots), nil
}

func dedupe(list []*Hotspot) []*Hotspot {
	seen := make(map[string]bool, len(list))
	out := list[:0]
	for _, h := range list {
		if h == nil || seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		out = append(out, h)
	}
	return out
}
