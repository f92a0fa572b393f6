package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ozolins/panotour/internal/catalog"
	"github.com/ozolins/panotour/internal/config"
	"github.com/ozolins/panotour/internal/db"
	"github.com/ozolins/panotour/internal/hotspot"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all hotspots and photo orders as JSON",
	Long:  `Aggregates the hotspot collections and saved photo orders of every known folder into one JSON document, for backup or migration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		database, err := db.Open(filepath.Join(cfg.DataDir, "panotour.db"))
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		cat := catalog.New(cfg.ToursRoot, cfg.Folders, cfg.ImagePatterns)

		// Catalog folders plus any folder that only exists as stored
		// data.
		seen := make(map[string]bool)
		var folders []string
		for _, f := range cat.Folders() {
			seen[f] = true
			folders = append(folders, f)
		}
		stored, err := database.ListDocumentFolders()
		if err != nil {
			return fmt.Errorf("listing stored folders: %w", err)
		}
		for _, f := range stored {
			if !seen[f] {
				folders = append(folders, f)
			}
		}

		store := hotspot.NewStore(hotspot.NewDocumentBackend(database), hotspot.NewLocalBackend(database))
		doc, err := store.ExportAll(context.Background(), folders)
		if err != nil {
			return fmt.Errorf("exporting: %w", err)
		}

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding export: %w", err)
		}

		if exportOut == "" || exportOut == "-" {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(exportOut, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", exportOut, err)
		}
		fmt.Fprintf(os.Stderr, "Exported %d folders to %s\n", len(folders), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
