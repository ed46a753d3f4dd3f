package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docrag/internal/domain"
)

var (
	promptQuestion string
	promptTopK     int
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompt that would be sent to the generator",
	Long: `Retrieve context for a question and print the rendered system and user
prompts without calling the generation model.

Examples:
  docrag prompt -q "what is the refund window?"
  docrag prompt -q "who approves expenses?" -k 5 > prompt.txt`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptQuestion, "query", "q", "", "question (required)")
	promptCmd.Flags().IntVarP(&promptTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	promptCmd.MarkFlagRequired("query")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	svc, err := buildServices(ctx, cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer svc.Close()

	p, err := svc.answer.Prompt(ctx, domain.Query{Question: promptQuestion, TopK: promptTopK})
	if err != nil {
		return fmt.Errorf("failed to build prompt: %w", err)
	}

	fmt.Println("=== SYSTEM ===")
	fmt.Println(p.System)
	fmt.Println()
	fmt.Println("=== USER ===")
	fmt.Println(p.User)
	return nil
}
