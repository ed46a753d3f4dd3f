package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the collection and ingested documents",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	svc, err := buildServices(ctx, cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer svc.Close()

	info := svc.store.Info()
	count, err := svc.store.Count(ctx)
	if err != nil {
		return err
	}
	docs, err := svc.catalog.ListDocuments(ctx)
	if err != nil {
		return err
	}

	if statusJSON {
		return printJSON(map[string]any{
			"collection": info,
			"records":    count,
			"documents":  docs,
		})
	}

	fmt.Printf("Collection: %s (%s)\n", info.Name, cfg.Store.Backend)
	fmt.Printf("  Embedding: %s/%s, %d dims, %s\n", info.Provider, info.EmbeddingModel, info.Dimension, info.Metric)
	fmt.Printf("  Records:   %d\n", count)
	fmt.Printf("  Documents: %d\n", len(docs))
	for _, d := range docs {
		fmt.Printf("    - %s (%s, %d chunks, %s)\n", d.Filename, d.FileType, d.Chunks, d.IngestedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
