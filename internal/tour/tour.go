// Package tour holds the in-memory state of one browsing session:
// the active folder, its ordered panorama sequence, and the current
// position. Panoramas are identified by name; indices are positional
// and never used as a stable identity.
package tour

import (
	"context"
	"errors"
	"fmt"

	"github.com/ozolins/panotour/internal/assets"
)

// ErrEmptyTour is returned when a folder loads with no usable catalog.
var ErrEmptyTour = errors.New("tour has no images")

// Cataloger lists the ordered filenames of a folder. Satisfied by
// *catalog.Catalog.
type Cataloger interface {
	List(folder string) ([]string, error)
}

// AssetLoader loads a folder's assets. Satisfied by *assets.Loader.
type AssetLoader interface {
	LoadFolder(ctx context.Context, folder string, files []string, onProgress assets.ProgressFunc) []*assets.Asset
}

// State is the active tour session for one folder. It is rebuilt
// wholesale on folder switch and mutated only by the navigation
// controller.
type State struct {
	Folder       string
	Images       []*assets.Asset
	DisplayOrder []*assets.Asset
	CurrentIndex int
}

// Load builds the state for a folder: the catalog list is fetched, all
// assets loaded (failures tolerated, marked on the asset), a previously
// saved photo order applied by name, and the index reset to 0.
func Load(ctx context.Context, cat Cataloger, loader AssetLoader, folder string, savedOrder []string, onProgress assets.ProgressFunc) (*State, error) {
	files, err := cat.List(folder)
	if err != nil {
		return nil, fmt.Errorf("loading folder %s: %w", folder, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("loading folder %s: %w", folder, ErrEmptyTour)
	}

	images := loader.LoadFolder(ctx, folder, files, onProgress)
	images = applyOrder(images, savedOrder)

	s := &State{
		Folder:       folder,
		Images:       images,
		DisplayOrder: append([]*assets.Asset(nil), images...),
		CurrentIndex: 0,
	}
	return s, nil
}

// applyOrder permutes images to match the saved name order. Saved names
// with no matching image are dropped; images missing from the saved
// order are appended in catalog order.
func applyOrder(images []*assets.Asset, saved []string) []*assets.Asset {
	if len(saved) == 0 {
		return images
	}

	byName := make(map[string]*assets.Asset, len(images))
	for _, img := range images {
		byName[img.Name] = img
	}

	ordered := make([]*assets.Asset, 0, len(images))
	used := make(map[string]bool, len(images))
	for _, name := range saved {
		if img, ok := byName[name]; ok && !used[name] {
			ordered = append(ordered, img)
			used[name] = true
		}
	}
	for _, img := range images {
		if !used[img.Name] {
			ordered = append(ordered, img)
		}
	}
	return ordered
}

// Len returns the number of images in the tour.
func (s *State) Len() int { return len(s.Images) }

// Current returns the displayed panorama, or nil for an empty tour.
func (s *State) Current() *assets.Asset {
	if len(s.Images) == 0 {
		return nil
	}
	return s.Images[s.CurrentIndex]
}

// CurrentImageName is the hotspot join key for the displayed panorama.
func (s *State) CurrentImageName() string {
	if cur := s.Current(); cur != nil {
		return cur.Name
	}
	return ""
}

// Index returns the current navigation index.
func (s *State) Index() int { return s.CurrentIndex }

// Advance moves the current index by direction, wrapping circularly in
// both directions. No-op on an empty tour.
func (s *State) Advance(direction int) {
	n := len(s.Images)
	if n == 0 {
		return
	}
	s.CurrentIndex = ((s.CurrentIndex+direction)%n + n) % n
}

// JumpTo sets the current index to the panorama with the given name and
// reports whether it was found. Lookup is strictly by name so jumps
// stay correct after reordering.
func (s *State) JumpTo(name string) bool {
	idx := s.IndexOf(name)
	if idx < 0 {
		return false
	}
	s.CurrentIndex = idx
	return true
}

// IndexOf returns the navigation index of the named panorama, or -1.
func (s *State) IndexOf(name string) int {
	for i, img := range s.Images {
		if img.Name == name {
			return i
		}
	}
	return -1
}

// HasImage reports whether the tour contains a panorama with the name.
func (s *State) HasImage(name string) bool { return s.IndexOf(name) >= 0 }

// NameAt returns the name of the panorama at a navigation index.
func (s *State) NameAt(i int) (string, bool) {
	if i < 0 || i >= len(s.Images) {
		return "", false
	}
	return s.Images[i].Name, true
}

// Reorder moves one entry of the display order from one position to
// another and reports whether the indices were valid. The navigation
// sequence is untouched until the order is saved and the folder
// reloaded.
func (s *State) Reorder(from, to int) bool {
	n := len(s.DisplayOrder)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return false
	}
	moved := s.DisplayOrder[from]
	s.DisplayOrder = append(s.DisplayOrder[:from], s.DisplayOrder[from+1:]...)
	s.DisplayOrder = append(s.DisplayOrder[:to], append([]*assets.Asset{moved}, s.DisplayOrder[to:]...)...)
	return true
}

// OrderNames returns the display order as a list of image names, the
// form the photo order is persisted in.
func (s *State) OrderNames() []string {
	names := make([]string, len(s.DisplayOrder))
	for i, img := range s.DisplayOrder {
		names[i] = img.Name
	}
	return names
}
