// Package serve implements the HTTP service subcommand.
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clinmap/clinmap-go/internal/api"
	"github.com/clinmap/clinmap-go/internal/artifact"
	"github.com/clinmap/clinmap-go/internal/conf"
	"github.com/clinmap/clinmap-go/internal/errors"
	"github.com/clinmap/clinmap-go/internal/knowledge"
	"github.com/clinmap/clinmap-go/internal/logging"
	"github.com/clinmap/clinmap-go/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func logLevel(settings *conf.Settings) slog.Level {
	if settings.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Command creates the serve subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mapping HTTP service",
		Long:  "Start the HTTP service exposing training, prediction, validation, mapping persistence and document export.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Server.Host, "host", viper.GetString("server.host"), "Interface to listen on")
	cmd.Flags().IntVar(&settings.Server.Port, "port", viper.GetInt("server.port"), "Port to listen on")
	cmd.Flags().StringVar(&settings.Storage.KnowledgeDB, "knowledgedb", viper.GetString("storage.knowledgedb"), "Path to the knowledge base sqlite file")
	cmd.Flags().StringVar(&settings.Storage.ModelPath, "modelpath", viper.GetString("storage.modelpath"), "Directory for persisted model artifacts")
	cmd.Flags().StringVar(&settings.Storage.UploadPath, "uploadpath", viper.GetString("storage.uploadpath"), "Directory for uploaded documents")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

func runServer(ctx context.Context, settings *conf.Settings) error {
	logger := logging.Structured().With("service", "serve")

	if settings.Main.Log.Enabled {
		fileLogger, closeLogger, err := logging.NewFileLogger(
			filepath.Join(settings.Main.Log.Path, "clinmap.log"),
			"serve",
			logLevel(settings),
			logging.FileLoggerOptions{
				MaxSizeMB:  settings.Main.Log.MaxSize,
				MaxBackups: settings.Main.Log.MaxBackups,
				MaxAgeDays: settings.Main.Log.MaxAge,
			},
		)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeLogger(); err != nil {
				logger.Error("failed to close log file", "error", err)
			}
		}()
		logger = fileLogger
	}

	kb := knowledge.New(settings.Storage.KnowledgeDB)
	if err := kb.Open(); err != nil {
		return err
	}
	defer func() {
		if err := kb.Close(); err != nil {
			logger.Error("failed to close knowledge database", "error", err)
		}
	}()

	artifacts, err := artifact.NewStore(settings.Storage.ModelPath)
	if err != nil {
		return err
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return errors.New(err).
			Component("serve").
			Category(errors.CategoryConfiguration).
			Build()
	}

	controller, err := api.New(settings, kb, artifacts, metrics)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := controller.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("shutting down", "reason", "context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return controller.Shutdown(shutdownCtx)
}
