package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/actionnotes/internal/actionitem"
	"github.com/at-ishikawa/actionnotes/internal/config"
	"github.com/at-ishikawa/actionnotes/internal/database"
	"github.com/at-ishikawa/actionnotes/internal/extract"
	"github.com/at-ishikawa/actionnotes/internal/inference/openai"
	"github.com/at-ishikawa/actionnotes/internal/note"
	"github.com/at-ishikawa/actionnotes/internal/service"
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load()
}

type application struct {
	cfg     *config.Config
	service *service.Service
	close   func()
}

// openApplication loads the configuration and wires storage and extraction.
// The caller must call close when done.
func openApplication(ctx context.Context) (*application, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		setupLogger(true)
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database.Connect() > %w", err)
	}
	client := openai.NewClient(cfg.OpenAI)

	svc := service.New(
		note.NewDBRepository(db),
		actionitem.NewDBRepository(db),
		extract.NewModelExtractor(client, nil),
		nil,
	)
	return &application{
		cfg:     cfg,
		service: svc,
		close: func() {
			_ = client.Close()
			_ = db.Close()
		},
	}, nil
}

// readInput returns the contents of the file named by args, or stdin when
// no file or "-" is given.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("io.ReadAll(stdin) > %w", err)
		}
		return string(content), nil
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("os.ReadFile(%s) > %w", args[0], err)
	}
	return string(content), nil
}

func parseID(name, value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %q", name, value)
	}
	return id, nil
}
