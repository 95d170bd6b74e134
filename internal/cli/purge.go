package cli

import (
	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge <document-id>...",
	Short: "Remove documents from the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	for _, id := range args {
		if err := a.indexer.DeleteDocument(cmd.Context(), id); err != nil {
			return err
		}
		cmd.Printf("Purged %s\n", id)
	}
	return nil
}
