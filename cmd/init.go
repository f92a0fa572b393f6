package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ozolins/panotour/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a panotour config interactively",
	Long:  `Walks through tour folder detection, the starting folder, and server settings, then writes the config file.`,
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := os.Stat(cfgFile); err == nil {
			fmt.Fprintf(os.Stderr, "Config %s already exists; delete it first to reinitialize.\n", cfgFile)
			os.Exit(1)
		}

		cfg, err := config.RunWizard(cfgFile)
		exitOnError(err)

		fmt.Printf("Wrote %s\n", cfgFile)
		fmt.Printf("  Tours root: %s\n", cfg.ToursRoot)
		if cfg.DefaultFolder != "" {
			fmt.Printf("  Starting folder: %s\n", cfg.DefaultFolder)
		}
		fmt.Printf("  Port: %d\n", cfg.Port)
		fmt.Println("\nRun `panotour serve` to start the tour server.")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
