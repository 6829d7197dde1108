package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/outfitforge/bundleengine/internal/version"
)

var (
	// Global flags shared by every subcommand.
	fixturesPath string
	rulesetPath  string
	configPath   string
	verbose      bool

	// sharedLogger is the request-scoped logger every command derives its
	// own scoped logger from via Logger.With(...).
	sharedLogger hclog.Logger

	rootCmd = &cobra.Command{
		Use:   "bundleengine",
		Short: "Wardrobe bundle assembly engine demo harness",
		Long: `bundleengine is a demo command-line harness over the bundle assembly
engine. It loads a wardrobe/catalog/profile fixture and a rule set from disk
and drives generate, replace, and explain against them.

This is not the engine's production interface; a real deployment embeds the
internal/engine package directly against its own index, profile store, and
wear-history store.`,
		Version:      version.Short(),
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and runs it. Called
// once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// fatih/color auto-detects TTYs on most platforms, but honor the
	// narrower isatty check directly so piping stdout (e.g. `| less`) while
	// stderr remains a terminal still disables color deterministically.
	color.NoColor = !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())

	sharedLogger = hclog.New(&hclog.LoggerOptions{
		Name:  "bundleengine",
		Level: hclog.Info,
	})

	rootCmd.PersistentFlags().StringVarP(&fixturesPath, "fixtures", "f", "fixtures.json", "path to a wardrobe/catalog/profile fixture file (JSON)")
	rootCmd.PersistentFlags().StringVarP(&rulesetPath, "ruleset", "r", "ruleset.yaml", "path to a rule set document (YAML)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a process config file (YAML); BUNDLEENGINE_* env vars always apply")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")

	rootCmd.SetVersionTemplate(version.String() + "\n")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(replaceCmd)
}

// logger returns the request-scoped logger for a command invocation,
// honoring --verbose.
func logger() hclog.Logger {
	if verbose {
		sharedLogger.SetLevel(hclog.Debug)
	}
	return sharedLogger
}

// versionCmd prints build version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}
