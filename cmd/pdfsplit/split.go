package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/local/pdfsplitter/internal/archive"
	"github.com/local/pdfsplitter/internal/naming"
	"github.com/local/pdfsplitter/internal/orchestrator"
	"github.com/local/pdfsplitter/internal/pdfdoc"
	"github.com/local/pdfsplitter/internal/selection"
)

var (
	mode     string
	ranges   string
	every    int
	oddEven  string
	suffix   string
	output   string
	zipLevel int
)

var splitCmd = &cobra.Command{
	Use:   "split <input.pdf> [more.pdf...]",
	Short: "Split or merge PDFs and write the results as a ZIP",
	Long: `Split or merge PDF files and write every output PDF into one ZIP archive.

Modes:
  each_page        one file per page                    (page_N)
  custom_ranges    one file per run in --ranges         (pages_S-E)
  every_n          consecutive chunks of --every pages  (part_K)
  odd_even         odd and/or even pages                (odd_pages, even_pages)
  merge_all        the whole document as one file       (merged_all)
  merge_multiple   all inputs concatenated in order     (merged_files)

Examples:
  pdfsplit split in.pdf
  pdfsplit split in.pdf --mode custom_ranges --ranges 1-3,7
  pdfsplit split in.pdf --mode every_n --every 10 --out chunks.zip
  pdfsplit split a.pdf b.pdf --mode merge_multiple --suffix ""`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSplit,
}

func init() {
	rootCmd.AddCommand(splitCmd)
	splitCmd.Flags().StringVarP(&mode, "mode", "m", string(selection.EachPage), "Split mode")
	splitCmd.Flags().StringVarP(&ranges, "ranges", "r", "", "Page ranges for custom_ranges (e.g. 1-3,5,8-10)")
	splitCmd.Flags().IntVarP(&every, "every", "n", 5, "Pages per chunk for every_n")
	splitCmd.Flags().StringVar(&oddEven, "odd-even", string(selection.Odd), "Parity for odd_even: odd, even or both")
	splitCmd.Flags().StringVarP(&suffix, "suffix", "s", "split", "Suffix appended to each output file name")
	splitCmd.Flags().StringVarP(&output, "out", "o", naming.DefaultArchiveName, "Output ZIP path")
	splitCmd.Flags().IntVar(&zipLevel, "zip-level", 0, "Deflate level 1-9 (0 uses the default)")
}

func runSplit(cmd *cobra.Command, args []string) error {
	docs := make([]*pdfdoc.Document, 0, len(args))
	for _, a := range args {
		doc, err := loadFile(a)
		if err != nil {
			return err
		}
		if !quiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "File: %s • %d pages\n", doc.Name(), doc.PageCount())
		}
		docs = append(docs, doc)
	}

	var bar *progressbar.ProgressBar
	opts := orchestrator.Options{
		Mode:        selection.Mode(mode),
		RangeExpr:   ranges,
		ChunkSize:   every,
		OddEven:     oddEven,
		Suffix:      suffix,
		ArchiveName: filepath.Base(output),
		Progress: func(done, total int) {
			if quiet {
				return
			}
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("assembling"),
					progressbar.OptionShowCount())
			}
			_ = bar.Set(done)
		},
	}

	svc := orchestrator.New(orchestrator.Dependencies{Archiver: archive.New(zipLevel)})
	res, err := svc.Run(cmd.Context(), opts, docs)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if errors.Is(err, orchestrator.ErrEmptySelection) {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: no pages matched the selection; nothing written")
		return nil
	}
	if err != nil {
		return err
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(output, res.Archive, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d files)\n", output, len(res.Files))
	return nil
}
