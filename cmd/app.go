package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/library-kiosk/internal/circulation"
	"github.com/kozaktomas/library-kiosk/internal/config"
	"github.com/kozaktomas/library-kiosk/internal/database"
	"github.com/kozaktomas/library-kiosk/internal/events"
	"github.com/kozaktomas/library-kiosk/internal/logging"
	"github.com/kozaktomas/library-kiosk/internal/metrics"
	"github.com/rs/zerolog"

	// Storage drivers register themselves with the database package.
	_ "github.com/kozaktomas/library-kiosk/internal/database/postgres"
	_ "github.com/kozaktomas/library-kiosk/internal/database/sqlstore"
)

// app is the wired kiosk shared by all commands.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	store     database.RecordStore
	publisher events.Publisher
	metrics   *metrics.Metrics
	kiosk     *circulation.Kiosk
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.Setup(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	store, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Database.Driver, err)
	}
	logger.Debug().Str("driver", cfg.Database.Driver).Msg("record store opened")

	publisher, err := events.New(cfg.Events)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to connect event publisher: %w", err)
	}

	m := metrics.New()
	return &app{
		cfg:       cfg,
		log:       logger,
		store:     store,
		publisher: publisher,
		metrics:   m,
		kiosk:     circulation.NewKiosk(store, cfg, publisher, m, logger),
	}, nil
}

func (a *app) Close() error {
	return errors.Join(a.publisher.Close(), a.store.Close())
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
