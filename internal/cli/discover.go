package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/refseek/refseek/internal/storage"
)

var (
	discoverTopN      int
	discoverItemTypes []string
	discoverDocTypes  []string
	discoverJSON      bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover <text>",
	Short: "Rank library documents by relevance to a topic",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().IntVarP(&discoverTopN, "top-n", "n", 0, "number of sources to return (default from config)")
	discoverCmd.Flags().StringSliceVar(&discoverItemTypes, "item-type", nil, "restrict to item types")
	discoverCmd.Flags().StringSliceVar(&discoverDocTypes, "doc-type", nil, "restrict to doc types")
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	topN := discoverTopN
	if topN == 0 {
		topN = a.cfg.Search.DiscoverTopN
	}
	filters := storage.Filters{ItemTypes: discoverItemTypes, DocTypes: discoverDocTypes}
	sources, err := a.retriever.DiscoverSources(cmd.Context(), args[0], topN, filters)
	if err != nil {
		return retrievalExit(err)
	}
	if len(sources) == 0 {
		cmd.Println("No matches.")
		return &ExitError{Code: ExitNoMatches}
	}

	if discoverJSON {
		data, err := json.MarshalIndent(sources, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}
	for i, src := range sources {
		title := src.Title
		if title == "" {
			title = src.DocumentID
		}
		cmd.Printf("%2d. %s (score %.3f, %d hits)\n", i+1, title, src.Score, src.ChunkHits)
		loc := src.EvidenceLocation
		if loc != "" {
			loc = " [" + loc + "]"
		}
		cmd.Printf("    %s%s\n", snippet(src.Evidence, 140), loc)
	}
	return nil
}
