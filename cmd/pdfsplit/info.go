package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/local/pdfsplitter/internal/filetype"
	"github.com/local/pdfsplitter/internal/pdfdoc"
)

var infoCmd = &cobra.Command{
	Use:   "info <input.pdf>",
	Short: "Print the name and page count of a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "File: %s • %d pages\n", doc.Name(), doc.PageCount())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// loadFile reads a PDF from disk, rejecting anything that is not a PDF by content.
func loadFile(path string) (*pdfdoc.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)
	if err := filetype.New().RequirePDF(name, data); err != nil {
		return nil, err
	}
	return pdfdoc.FromBytes(name, data)
}
