package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ozolins/panotour/internal/assets"
	"github.com/ozolins/panotour/internal/catalog"
	"github.com/ozolins/panotour/internal/config"
	"github.com/ozolins/panotour/internal/db"
	"github.com/ozolins/panotour/internal/hotspot"
	"github.com/ozolins/panotour/internal/nav"
	"github.com/ozolins/panotour/internal/server"
)

var (
	servePort   int
	serveFolder string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tour server",
	Long: `Starts the panotour server: panorama files, the hotspot document
endpoint, and the websocket session every connected viewer shares.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if servePort != 0 {
			cfg.Port = servePort
		}
		if serveFolder != "" {
			cfg.DefaultFolder = serveFolder
		}

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		dbPath := filepath.Join(cfg.DataDir, "panotour.db")
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		cat := catalog.New(cfg.ToursRoot, cfg.Folders, cfg.ImagePatterns)
		watcher, err := catalog.Watch(cat)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: filesystem watch unavailable: %v\n", err)
		} else {
			defer watcher.Close()
		}

		loader := assets.NewLoader(
			&assets.FileFetcher{Root: cfg.ToursRoot},
			time.Duration(cfg.Assets.TimeoutSeconds)*time.Second,
			cfg.Assets.Concurrency,
		)

		// The session's primary store is the remote endpoint when one
		// is configured, otherwise the server's own document table.
		// Either way the local key-value store takes writes the primary
		// misses.
		var primary hotspot.Backend
		if cfg.RemoteStore.URL != "" {
			primary = hotspot.NewRemoteBackend(cfg.RemoteStore.URL,
				time.Duration(cfg.RemoteStore.TimeoutSeconds)*time.Second)
		} else {
			primary = hotspot.NewDocumentBackend(database)
		}
		store := hotspot.NewStore(primary, hotspot.NewLocalBackend(database))

		hub := nav.NewHub()
		controller := nav.NewController(cat, loader, store, hub,
			cfg.AuthorMode, cfg.Placement.Distance, cfg.Placement.Radius)
		hub.Attach(controller)
		defer controller.Close()

		srv := server.New(server.Config{
			Port:     cfg.Port,
			DataDir:  cfg.DataDir,
			AllowAll: cfg.AllowAll,
		}, database, cat)

		r := srv.Router()
		hotspot.RegisterRoutes(r, database, cat)
		r.Handle("/ws", hub)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		folder := cfg.DefaultFolder
		if folder == "" {
			if folders := cat.Folders(); len(folders) > 0 {
				folder = folders[0]
			}
		}
		if folder != "" {
			if err := controller.Start(ctx, folder); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not open %s: %v\n", folder, err)
			}
		}

		// Warm the cache for the remaining folders so later switches
		// open instantly. Best effort; shutdown cancels it.
		go func() {
			for _, f := range cat.Folders() {
				if ctx.Err() != nil {
					return
				}
				if f == folder {
					continue
				}
				if files, err := cat.List(f); err == nil {
					loader.Preload(ctx, f, files, nil)
				}
			}
		}()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "panotour server v%s starting on port %d\n", Version, cfg.Port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "  Tours: %s\n", cfg.ToursRoot)

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override the configured port")
	serveCmd.Flags().StringVar(&serveFolder, "folder", "", "folder to open on startup")
	rootCmd.AddCommand(serveCmd)
}
