package cli

import (
	"github.com/spf13/cobra"

	"github.com/refseek/refseek/internal/indexer"
	"github.com/refseek/refseek/internal/models"
)

var (
	indexForce    bool
	indexItemType string
	indexDocType  string
)

var indexCmd = &cobra.Command{
	Use:   "index [paths...]",
	Short: "Index files or directories into the library",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "reindex even if content is unchanged")
	indexCmd.Flags().StringVar(&indexItemType, "item-type", "", "tag indexed documents with an item type")
	indexCmd.Flags().StringVar(&indexDocType, "doc-type", "", "tag indexed documents with a doc type")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	total := &models.IndexReport{}
	for _, path := range args {
		report, err := indexPathTagged(cmd, a, path)
		if err != nil {
			return err
		}
		total.Indexed += report.Indexed
		total.Skipped += report.Skipped
		total.Failed += report.Failed
		total.Chunks += report.Chunks
		total.Failures = append(total.Failures, report.Failures...)
	}

	cmd.Printf("Indexed %d, skipped %d, failed %d (%d chunks)\n",
		total.Indexed, total.Skipped, total.Failed, total.Chunks)
	for _, f := range total.Failures {
		cmd.Printf("  failed %s: %s\n", f.DocumentID, f.Reason)
	}
	if total.Failed > 0 && total.Indexed == 0 && total.Skipped == 0 {
		return &ExitError{Code: ExitFailure}
	}
	return nil
}

// indexPathTagged runs intake for one path with the CLI's tag flags applied.
func indexPathTagged(cmd *cobra.Command, a *app, path string) (*models.IndexReport, error) {
	inputs, failures, err := indexer.CollectInputs(path)
	if err != nil {
		return nil, err
	}
	for _, input := range inputs {
		input.ItemType = indexItemType
		input.DocType = indexDocType
	}
	report, err := a.indexer.IndexDocuments(cmd.Context(), inputs, indexForce)
	if err != nil {
		return nil, err
	}
	report.Failed += len(failures)
	report.Failures = append(report.Failures, failures...)
	return report, nil
}
