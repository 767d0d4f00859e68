package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "orbitsim",
	Short: "Plan and simulate orbital transfers",
	Long: `orbitsim plans Hohmann transfers with a phasing orbit between circular
orbits, and runs sessions where groups of spacecraft fly them.

Settings are read from orbital.toml in the --config directory, or in the
directory named by ORBITAL_CONFIG.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory of orbital.toml")
	rootCmd.AddCommand(planCmd, runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
