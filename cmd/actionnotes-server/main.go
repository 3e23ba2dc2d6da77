package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/at-ishikawa/actionnotes/internal/actionitem"
	"github.com/at-ishikawa/actionnotes/internal/bootstrap"
	"github.com/at-ishikawa/actionnotes/internal/config"
	"github.com/at-ishikawa/actionnotes/internal/database"
	"github.com/at-ishikawa/actionnotes/internal/extract"
	"github.com/at-ishikawa/actionnotes/internal/inference/openai"
	"github.com/at-ishikawa/actionnotes/internal/metrics"
	"github.com/at-ishikawa/actionnotes/internal/note"
	"github.com/at-ishikawa/actionnotes/internal/server"
	"github.com/at-ishikawa/actionnotes/internal/service"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "actionnotes-server",
		Short:         "Action notes HTTP API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", os.Getenv("ACTIONNOTES_CONFIG"), "config file path")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	app := bootstrap.New()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}
	setupLogger(cfg.Debug)

	srv, err := newHTTPServer(ctx, app, cfg)
	if err != nil {
		return err
	}

	return app.Run(ctx, func(ctx context.Context) error {
		slog.Default().Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}

// newHTTPServer wires storage, extraction and the API, and registers their
// shutdown hooks on app.
func newHTTPServer(ctx context.Context, app *bootstrap.App, cfg *config.Config) (*http.Server, error) {
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database.Connect() > %w", err)
	}
	app.AddShutdownHook(func(ctx context.Context) error {
		return db.Close()
	})

	openaiClient := openai.NewClient(cfg.OpenAI)
	app.AddShutdownHook(func(ctx context.Context) error {
		return openaiClient.Close()
	})
	if cfg.OpenAI.APIKey == "" {
		slog.Default().Warn("openai.api_key is not set; model extraction only works against endpoints without authentication",
			"base_url", cfg.OpenAI.BaseURL,
		)
	}

	m := metrics.New()
	svc := service.New(
		note.NewDBRepository(db),
		actionitem.NewDBRepository(db),
		extract.NewModelExtractor(openaiClient, m),
		m,
	)
	api := server.New(svc, m, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           h2c.NewHandler(api.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	app.AddShutdownHook(srv.Shutdown)
	return srv, nil
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}

func setupLogger(debugMode bool) {
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		})),
	)
}
