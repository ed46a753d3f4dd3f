package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docrag/internal/domain"
	"docrag/internal/usecase"
)

var (
	queryText  string
	queryTopK  int
	queryJSON  bool
	queryDebug bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ask a question about the ingested documents",
	Long: `Answer a question from the most relevant chunks, citing the sources used.

With --debug only retrieval runs and the scored chunks are printed.

Examples:
  docrag query -q "how many vacation days do new hires get?"
  docrag query -q "termination clause" --top-k 5 --debug --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.Flags().BoolVar(&queryDebug, "debug", false, "show retrieved chunks instead of an answer")
	queryCmd.MarkFlagRequired("query")
}

type debugChunk struct {
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_id"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

type answerOutput struct {
	Answer    string            `json:"answer"`
	Status    string            `json:"status"`
	Grounded  bool              `json:"grounded"`
	Citations []domain.Citation `json:"sources"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	svc, err := buildServices(ctx, cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer svc.Close()

	q := domain.Query{Question: queryText, TopK: queryTopK}

	if queryDebug {
		res, err := svc.retrieve.Retrieve(ctx, q)
		if err != nil {
			return fmt.Errorf("retrieval failed: %w", err)
		}
		chunks := make([]debugChunk, len(res.Results))
		for i, r := range res.Results {
			chunks[i] = debugChunk{
				Filename:   r.Record.Filename,
				ChunkIndex: r.Record.ChunkIndex,
				Score:      r.Score,
				Text:       r.Record.Text,
			}
		}
		if queryJSON {
			return printJSON(chunks)
		}
		if len(chunks) == 0 {
			fmt.Println("No results found.")
			return nil
		}
		fmt.Printf("Found %d results for: %s\n\n", len(chunks), res.Question)
		for i, c := range chunks {
			fmt.Printf("--- [%d] %s#%d (score: %.3f) ---\n", i+1, c.Filename, c.ChunkIndex, c.Score)
			fmt.Println(usecase.Preview(c.Text, 500))
			fmt.Println()
		}
		return nil
	}

	ans, err := svc.answer.Ask(ctx, q)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return printJSON(answerOutput{
			Answer:    ans.Text,
			Status:    string(ans.Status),
			Grounded:  ans.Grounded,
			Citations: ans.Citations,
		})
	}

	fmt.Println(ans.Text)
	if len(ans.Citations) > 0 {
		fmt.Printf("\nSources (%d chunks):\n", ans.ChunksUsed)
		for _, c := range ans.Citations {
			fmt.Printf("  - %s#%d: %s\n", c.Filename, c.ChunkIndex, c.Preview)
		}
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
