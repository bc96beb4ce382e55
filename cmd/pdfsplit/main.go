package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	logpkg "github.com/local/pdfsplitter/internal/logger"
)

var (
	quiet    bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "pdfsplit",
	Short:         "Split and merge PDF files into a ZIP archive",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logpkg.InitConsole(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
