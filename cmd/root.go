package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "panotour",
	Short: "360-degree virtual tour server with hotspot authoring",
	Long: `Panotour serves folders of equirectangular panoramas as navigable
virtual tours. Viewers step through panoramas in a circular sequence
and jump between them through positioned hotspots; author mode places
new hotspots, edits their geometry, and reorders the photo sequence.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".panotour.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
