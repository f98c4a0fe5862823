package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tobyms/pgsite/internal/cli"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string

	// Persistent flags
	cfgFile string
	verbose int
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "pgsite",
	Short: "PostgreSQL content for static sites",
	Long: `pgsite - PostgreSQL content for static sites

pgsite generates insertion and read SQL from an annotated .sql schema and
moves markdown content in and out of PostgreSQL for static-site rendering.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}

		return nil
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupGeneration = "generation"
	groupDatabase   = "database"
	groupUtility    = "utility"
)

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover pgsite.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupGeneration, Title: "Generation:"},
		&cobra.Group{ID: groupDatabase, Title: "Database:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	generateCmd.GroupID = groupGeneration
	classifyCmd.GroupID = groupGeneration
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(classifyCmd)

	ingestCmd.GroupID = groupDatabase
	readCmd.GroupID = groupDatabase
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(readCmd)

	doctorCmd.GroupID = groupUtility
	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// verbosef prints progress output to stderr when -v is set.
func verbosef(format string, args ...any) {
	if verbose > 0 && !quiet {
		fmt.Fprintln(os.Stderr, infoStyle.Render(fmt.Sprintf(format, args...)))
	}
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveBool returns true if any of the provided values is true.
func resolveBool(values ...bool) bool {
	for _, v := range values {
		if v {
			return true
		}
	}
	return false
}
