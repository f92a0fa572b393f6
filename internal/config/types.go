package config

// Config is the top-level panotour configuration, corresponding to .panotour.yml.
type Config struct {
	Port          int                 `yaml:"port" koanf:"port"`
	DataDir       string              `yaml:"data_dir" koanf:"data_dir"`
	ToursRoot     string              `yaml:"tours_root" koanf:"tours_root"`
	DefaultFolder string              `yaml:"default_folder" koanf:"default_folder"`
	Folders       map[string][]string `yaml:"folders" koanf:"folders"`
	ImagePatterns []string            `yaml:"image_patterns" koanf:"image_patterns"`
	AuthorMode    bool                `yaml:"author_mode" koanf:"author_mode"`
	AllowAll      bool                `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	Assets        AssetsConfig        `yaml:"assets" koanf:"assets"`
	Placement     PlacementConfig     `yaml:"placement" koanf:"placement"`
	RemoteStore   RemoteStoreConfig   `yaml:"remote_store" koanf:"remote_store"`
}

// AssetsConfig tunes the panorama asset loader.
type AssetsConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	Concurrency    int `yaml:"concurrency" koanf:"concurrency"`
}

// PlacementConfig tunes hotspot placement geometry.
type PlacementConfig struct {
	Distance float64 `yaml:"distance" koanf:"distance"` // anchor distance from the viewer
	Radius   float64 `yaml:"radius" koanf:"radius"`     // default marker size
}

// RemoteStoreConfig points the hotspot store at its primary backend.
// An empty URL means no remote backend: the store runs on the local
// fallback alone, as the viewer does when served from a static host.
type RemoteStoreConfig struct {
	URL            string `yaml:"url" koanf:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}
