package config

import "github.com/ozolins/panotour/internal/catalog"

// DefaultImagePatterns are the glob patterns used when scanning a tour
// folder for panorama files.
var DefaultImagePatterns = catalog.DefaultPatterns()

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:          5500,
		DataDir:       ".panotour",
		ToursRoot:     ".",
		ImagePatterns: append([]string(nil), DefaultImagePatterns...),
		Assets: AssetsConfig{
			TimeoutSeconds: 10,
			Concurrency:    3,
		},
		Placement: PlacementConfig{
			// The viewer renders the panorama on a sphere of radius 500;
			// anchors sit just inside it.
			Distance: 450,
			Radius:   20,
		},
		RemoteStore: RemoteStoreConfig{
			TimeoutSeconds: 5,
		},
	}
}
