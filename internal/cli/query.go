package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/refseek/refseek/internal/retrieval"
	"github.com/refseek/refseek/internal/storage"
)

var (
	queryTopK      int
	queryItemTypes []string
	queryDocTypes  []string
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Retrieve cited passages answering a question",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of passages to retrieve (default from config)")
	queryCmd.Flags().StringSliceVar(&queryItemTypes, "item-type", nil, "restrict to item types")
	queryCmd.Flags().StringSliceVar(&queryDocTypes, "doc-type", nil, "restrict to doc types")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	topK := queryTopK
	if topK == 0 {
		topK = a.cfg.Search.TopK
	}
	filters := storage.Filters{ItemTypes: queryItemTypes, DocTypes: queryDocTypes}
	answer, err := a.retriever.RetrieveForAnswer(cmd.Context(), args[0], topK, filters)
	if err != nil {
		return retrievalExit(err)
	}
	if len(answer.Groups) == 0 {
		cmd.Println("No matches.")
		return &ExitError{Code: ExitNoMatches}
	}

	if queryJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}
	for _, group := range answer.Groups {
		title := group.Title
		if title == "" {
			title = group.DocumentID
		}
		cmd.Printf("%s (score %.3f)\n", title, group.BestScore)
		for _, p := range group.Passages {
			cmd.Printf("  %s %s\n", p.Citation, snippet(p.Text, 160))
		}
		cmd.Println()
	}
	return nil
}

// retrievalExit translates retrieval errors into exit codes scripts can act on.
func retrievalExit(err error) error {
	if errors.Is(err, retrieval.ErrNotIndexed) {
		return &ExitError{Code: ExitNotIndexed, Err: err}
	}
	if errors.Is(err, retrieval.ErrModelChanged) || errors.Is(err, storage.ErrDimensionMismatch) {
		return &ExitError{Code: ExitNotIndexed, Err: fmt.Errorf("%w (run index --force)", err)}
	}
	return err
}

// snippet truncates text for terminal output.
func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-1]) + "…"
}
