package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"notebook/internal/api"
	"notebook/internal/mcp"
	"notebook/internal/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.Default()

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		blobs, err := openBlobs()
		if err != nil {
			return err
		}
		defer blobs.Close()

		handlers := api.NewHandlers(store, blobs, api.Options{
			PublicBaseURL:  cfg.PublicBaseURL,
			MaxUploadBytes: cfg.MaxUploadBytes,
			Logger:         logger,
		})

		router := mux.NewRouter()
		if cfg.MCPEnabled {
			mcpServer := mcp.NewMCPServer(handlers.Query(), handlers.Tags(), version)
			router.PathPrefix("/mcp").Handler(mcpServer.Handler())
		}
		handlers.Register(router)
		// Wrapped outside the router so preflight requests reach CORS before method matching.
		var handler http.Handler = middleware.CORS(cfg.CORSOrigin)(router)
		handler = middleware.Logging(logger)(handler)
		handler = middleware.Recovery(logger)(handler)

		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server started", "addr", cfg.ListenAddr, "db", cfg.DBDriver, "blobs", cfg.BlobBackend, "mcp", cfg.MCPEnabled)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
