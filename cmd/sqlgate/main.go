package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomyedwab/sqlgate/audit"
	"github.com/tomyedwab/sqlgate/dispatch"
	"github.com/tomyedwab/sqlgate/gate"
	"github.com/tomyedwab/sqlgate/server"
	"github.com/tomyedwab/sqlgate/storage"
)

const version = "1.0.0"

type options struct {
	host            string
	dbPath          string
	collectMetadata bool
	enableWAL       bool
	foreignKeys     bool
	extensions      []string
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:     "sqlgate",
		Short:   "HTTP gateway for a local SQLite database",
		Long:    "sqlgate serves a single SQLite database file over one HTTP POST endpoint.\nCallers submit statement text and bound parameters as JSON and receive result rows as JSON.",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "127.0.0.1:8080", "address to listen on")
	cmd.Flags().StringVar(&opts.dbPath, "db-path", "", "path to the SQLite database file")
	cmd.Flags().BoolVar(&opts.collectMetadata, "collect-metadata", false, "record request payloads and execution windows in the database")
	cmd.Flags().BoolVar(&opts.enableWAL, "wal", true, "enable write-ahead logging")
	cmd.Flags().BoolVar(&opts.foreignKeys, "foreign-keys", false, "enforce foreign key constraints")
	cmd.Flags().StringArrayVar(&opts.extensions, "extension", nil, "SQLite extension module to load at startup (repeatable)")
	cmd.MarkFlagRequired("db-path")

	return cmd
}

func run(opts *options) error {
	logger := slog.Default()
	logger.Info("Starting sqlgate",
		"host", opts.host,
		"db_path", opts.dbPath,
		"collect_metadata", opts.collectMetadata)

	db, err := storage.Open(storage.Config{
		DBPath:      opts.dbPath,
		EnableWAL:   opts.enableWAL,
		ForeignKeys: opts.foreignKeys,
		Extensions:  opts.extensions,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	var auditLogger *audit.Logger
	if opts.collectMetadata {
		logger.Debug("Request metadata collection enabled")
		auditLogger, err = audit.NewLogger(db, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize the audit table: %w", err)
		}
	}

	// A malformed bind address must fail before any traffic is accepted.
	listener, err := net.Listen("tcp", opts.host)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.host, err)
	}

	g := gate.New(db)
	defer g.Close()

	srv := server.New(g, dispatch.New(logger), auditLogger, logger, version)
	httpServer := &http.Server{Handler: srv.Router()}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received signal, shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down HTTP server", "error", err)
		}
	}()

	logger.Info("Listening", "addr", listener.Addr().String())
	if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}

	logger.Info("Shutdown complete")
	return nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	if err := newRootCommand().Execute(); err != nil {
		logger.Error("sqlgate failed", "error", err)
		os.Exit(1)
	}
}
