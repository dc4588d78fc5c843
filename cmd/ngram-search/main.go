package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	configFile string
	dsnFlag    string
	logLevel   string

	// Build information, set with -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ngram-search",
	Short: "Switch the CMS full-text index between the default and the ngram parser",
	Long: "Installs or removes MySQL's ngram full-text parser on the fulltext_search table " +
		"of a CMS database, the way the extension lifecycle does on activation and deactivation.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ngram-search %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
		fmt.Printf("Go version: %s, OS/Arch: %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.ExpandEnv("$HOME/.ngram-search/config.yaml"), "Path to config file")
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "MySQL DSN, overrides the config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	setupCommands()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
		os.Exit(1)
	}
}
