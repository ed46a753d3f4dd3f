package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every record and archived upload",
	Long: `Empty the collection and remove archived uploads. The collection keeps
its embedding model, so new documents must use the same one.

Example:
  docrag reset --yes`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm the reset")
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		return errors.New("refusing to reset without --yes")
	}
	cfg := GetConfig()
	ctx := cmd.Context()

	svc, err := buildServices(ctx, cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer svc.Close()

	res, err := svc.ingest.Clear(ctx)
	if err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	fmt.Printf("Removed %d records and %d archived files\n", res.RecordsRemoved, res.FilesRemoved)
	return nil
}
