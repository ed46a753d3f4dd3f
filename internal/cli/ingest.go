package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docrag/internal/adapter/fs"
	"docrag/internal/domain"
	"docrag/internal/port"
)

var (
	ingestIncludes []string
	ingestExcludes []string
	ingestNoBar    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest documents into the vector store",
	Long: `Load, split and embed documents so they can be queried.

Each path may be a file or a directory. Directories are walked with the
include and exclude globs from the config unless overridden by flags.

Examples:
  docrag ingest ./handbook
  docrag ingest policy.pdf notes.md
  docrag ingest ./docs --include "**/*.md"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringSliceVar(&ingestIncludes, "include", nil, "include globs (default from config)")
	ingestCmd.Flags().StringSliceVar(&ingestExcludes, "exclude", nil, "exclude globs (default from config)")
	ingestCmd.Flags().BoolVar(&ingestNoBar, "no-progress", false, "disable the progress bar")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	includes, excludes := cfg.Ingest.Includes, cfg.Ingest.Excludes
	if len(ingestIncludes) > 0 {
		includes = ingestIncludes
	}
	if len(ingestExcludes) > 0 {
		excludes = ingestExcludes
	}
	walker := fs.NewWalker(includes, excludes)

	var files []port.FileInfo
	for _, p := range args {
		found, err := walker.Walk(p)
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", p, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return errors.New("no matching files found")
	}

	svc, err := buildServices(ctx, cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Printf("Ingesting %d files (embedding: %s/%s)\n", len(files), svc.embedder.Provider(), svc.embedder.ModelName())

	var bar *progressbar.ProgressBar
	if !ingestNoBar {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Println()
			}),
		)
	}

	var (
		total    domain.IngestResult
		warnings []string
	)
	start := time.Now()
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := os.ReadFile(f.Path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", f.RelPath, err))
		} else {
			res, err := svc.ingest.Ingest(ctx, []domain.Upload{{Filename: filepath.Base(f.Path), Data: data}})
			switch {
			case errors.Is(err, domain.ErrUpstreamAuth), errors.Is(err, domain.ErrDimensionMismatch), errors.Is(err, domain.ErrQuotaExhausted):
				return fmt.Errorf("ingestion failed: %w", err)
			case err != nil:
				warnings = append(warnings, fmt.Sprintf("%s: %v", f.RelPath, err))
			default:
				total.FilesProcessed += res.FilesProcessed
				total.ChunksCreated += res.ChunksCreated
				for _, fr := range res.Files {
					if fr.Skipped {
						warnings = append(warnings, fmt.Sprintf("%s: skipped (%s)", f.RelPath, fr.Reason))
					}
				}
			}
		}

		if bar != nil {
			bar.Set(i + 1)
			if done := i + 1; done < len(files) {
				rate := float64(done) / time.Since(start).Seconds()
				if rate > 0 {
					eta := time.Duration(float64(len(files)-done)/rate) * time.Second
					bar.Describe(fmt.Sprintf("[cyan]Ingesting[reset] ETA: %s", formatDuration(eta)))
				}
			}
		}
	}

	count, err := svc.store.Count(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\nIngestion complete in %s:\n", formatDuration(time.Since(start)))
	fmt.Printf("  Files processed: %d\n", total.FilesProcessed)
	fmt.Printf("  Chunks created:  %d\n", total.ChunksCreated)
	fmt.Printf("  Store records:   %d\n", count)

	if len(warnings) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
