package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"notebook/internal/blob"
	"notebook/internal/config"
	"notebook/internal/store/sqlstore"
)

var (
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "notebook",
	Short: "Markdown notes with tags, search and image uploads",
	Long: `Notebook serves a JSON API for Markdown notes with tags, pinning,
search and image uploads, plus a read-only MCP endpoint for assistants.
Configuration comes from the environment or a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		level := cfg.SlogLevel()
		if verbose {
			level = slog.LevelDebug
		}
		opts := &slog.HandlerOptions{Level: level}
		var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if cfg.LogFormat == "json" {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		}
		slog.SetDefault(slog.New(handler))
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func openStore() (*sqlstore.SQLStore, error) {
	s, err := sqlstore.New(cfg.DBDriver, cfg.DBConn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", cfg.DBDriver)
	}
	return s, nil
}

func openBlobs() (blob.Store, error) {
	switch cfg.BlobBackend {
	case "bolt":
		return blob.NewBoltStore(cfg.BlobDBPath)
	default:
		return blob.NewFSStore(cfg.UploadDir)
	}
}
