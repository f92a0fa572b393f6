package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ozolins/panotour/internal/assets"
	"github.com/ozolins/panotour/internal/catalog"
	"github.com/ozolins/panotour/internal/config"
)

var preloadCmd = &cobra.Command{
	Use:   "preload [folder...]",
	Short: "Warm the asset cache for tour folders",
	Long:  `Loads every panorama of the given folders (all known folders when none are named) and reports images that fail to load, so broken tours surface before viewers hit them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		cat := catalog.New(cfg.ToursRoot, cfg.Folders, cfg.ImagePatterns)
		folders := args
		if len(folders) == 0 {
			folders = cat.Folders()
		}
		if len(folders) == 0 {
			return fmt.Errorf("no tour folders found under %s", cfg.ToursRoot)
		}

		loader := assets.NewLoader(
			&assets.FileFetcher{Root: cfg.ToursRoot},
			time.Duration(cfg.Assets.TimeoutSeconds)*time.Second,
			cfg.Assets.Concurrency,
		)

		ctx := context.Background()
		failed := 0
		for _, folder := range folders {
			files, err := cat.List(folder)
			if err != nil {
				return fmt.Errorf("reading folder %s: %w", folder, err)
			}

			bar := progressbar.NewOptions(len(files),
				progressbar.OptionSetDescription("Loading "+folder),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			results := loader.LoadFolder(ctx, folder, files, func(done, total int, name string) {
				bar.Describe(folder + "/" + name)
				_ = bar.Set(done)
			})
			_ = bar.Finish()

			for _, a := range results {
				if !a.Loaded {
					failed++
					fmt.Fprintf(os.Stderr, "  failed: %s/%s: %s\n", folder, a.Name, a.Err)
				}
			}
			fmt.Printf("%s: %d images\n", folder, len(results))
		}

		fmt.Printf("Cached %d assets", loader.CacheSize())
		if failed > 0 {
			fmt.Printf(", %d failed", failed)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(preloadCmd)
}
