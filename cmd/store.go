package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/carebridge/leadsync-cli/internal/store"
	"github.com/carebridge/leadsync-cli/pkg/geocode"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("database URL is required (LEADSYNC_STORE_DATABASE_URL)")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initGeocoder() geocode.Client {
	opts := []geocode.Option{
		geocode.WithTimeout(time.Duration(cfg.Geocode.TimeoutSecs) * time.Second),
		geocode.WithRateLimit(cfg.Geocode.RequestsPerSec),
	}
	if cfg.Geocode.BaseURL != "" {
		opts = append(opts, geocode.WithBaseURL(cfg.Geocode.BaseURL))
	}
	return geocode.NewClient(opts...)
}
