package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docrag/config"
)

// Version is set at build time with -ldflags "-X docrag/internal/cli.Version=...".
var Version = "dev"

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "docrag - Ask questions about your documents",
	Long: `docrag ingests PDF, DOCX, Markdown and text files into a vector store
and answers questions grounded in their content, citing the chunks it used.

Example usage:
  docrag ingest ./docs                     # Ingest a directory
  docrag query -q "what is the refund policy?"
  docrag serve                             # Start the HTTP API`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

// Execute runs the root command. Cancelling ctx stops long-running commands.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
