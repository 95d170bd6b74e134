package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/refseek/refseek/internal/indexer"
	"github.com/refseek/refseek/internal/server"
	"github.com/refseek/refseek/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, optionally watching intake directories",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(a.cfg.Watch.Directories) > 0 {
		w := watcher.New(
			a.cfg.Watch.Directories,
			a.cfg.Watch.Extensions,
			func(path string) {
				if _, err := a.indexer.IndexPath(context.Background(), path, false); err != nil {
					a.logger.Warn("watch index failed", zap.String("path", path), zap.Error(err))
				}
			},
			func(path string) {
				if err := a.indexer.DeleteDocument(context.Background(), indexer.FileDocID(path)); err != nil {
					a.logger.Warn("watch delete failed", zap.String("path", path), zap.Error(err))
				}
			},
			watcher.WithLogger(a.logger),
			watcher.WithDebounce(a.cfg.Watch.Debounce),
		)
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	srv := server.NewServer(a.retriever, a.indexer, a.store, &a.cfg.Server, a.logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
