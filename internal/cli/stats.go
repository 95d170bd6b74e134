package cli

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index contents",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Documents: %d\n", stats.Documents)
	cmd.Printf("Chunks:    %d\n", stats.Chunks)
	for model, n := range stats.PerModel {
		cmd.Printf("  %s: %d embeddings\n", model, n)
	}
	return nil
}
