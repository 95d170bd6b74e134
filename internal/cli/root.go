// Package cli implements the refseek command-line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Exit codes. Scripts branch on these: 2 means the index is empty or stale
// for the request, 3 means the query simply matched nothing.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitNotIndexed = 2
	ExitNoMatches  = 3
)

// ExitError carries a process exit code up to main.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

var (
	cfgPath   string
	debugFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "refseek",
	Short: "Local semantic search over a reference library",
	Long: `refseek indexes local documents (pdf, html, markdown, plain text) into a
SQLite-backed vector store and answers natural-language queries with cited
passages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
