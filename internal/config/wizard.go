package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/manifoldco/promptui"
)

// detectTourFolders lists subdirectories of root that contain at least
// one image file, as candidates for tour folders.
func detectTourFolders(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	var folders []string
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		for _, pat := range DefaultImagePatterns {
			matches, _ := filepath.Glob(filepath.Join(root, e.Name(), pat))
			if len(matches) > 0 {
				folders = append(folders, e.Name())
				break
			}
		}
	}
	return folders
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to the given path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to panotour! Let's set up your tour server.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Tours root.
	rootPrompt := promptui.Prompt{
		Label:   "Directory containing your panorama folders",
		Default: ".",
	}
	root, err := rootPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("tours root: %w", err)
	}
	cfg.ToursRoot = root

	folders := detectTourFolders(root)
	if len(folders) > 0 {
		fmt.Printf("Detected tour folders: %v\n\n", folders)
	} else {
		fmt.Println("No tour folders with images found yet; you can add them later.")
		fmt.Println()
	}

	// 2. Default folder.
	if len(folders) > 0 {
		folderPrompt := promptui.Select{
			Label: "Folder to open on startup",
			Items: folders,
		}
		_, defaultFolder, err := folderPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("default folder: %w", err)
		}
		cfg.DefaultFolder = defaultFolder
	}

	// 3. Port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	// 4. Author mode.
	authorPrompt := promptui.Select{
		Label: "Enable author mode (hotspot editing)",
		Items: []string{"yes", "no"},
	}
	authorIdx, _, err := authorPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("author mode: %w", err)
	}
	cfg.AuthorMode = authorIdx == 0

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	fmt.Printf("\nConfiguration written to %s\n", path)

	return cfg, nil
}
