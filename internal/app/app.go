// Package app loads reference data and rule tables into a ready engine.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"wilayasapi/internal/db"
	"wilayasapi/internal/lookup"
	"wilayasapi/internal/rate"
	"wilayasapi/internal/refdata"
	"wilayasapi/internal/rules"
)

type Options struct {
	// DatabaseURL selects the Postgres reference source when set.
	DatabaseURL string
	DataDir     string
	RulesPath   string
	Currency    string
}

type App struct {
	Lookup *lookup.Service
	Engine *rate.Engine
	Tables *rules.Tables
	// Source names where the reference data came from.
	Source string
}

// Load reads everything once. Any error means the process must not serve.
func Load(ctx context.Context, opts Options, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	store, source, err := loadStore(ctx, opts)
	if err != nil {
		return nil, err
	}
	tables, err := rules.Load(opts.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	lk := lookup.New(store)
	log.Info("reference data loaded",
		zap.String("source", source),
		zap.Int("regions", store.Len()),
		zap.Int("weight_ranges", len(tables.WeightRanges)),
		zap.Strings("package_types", tables.PackageTypeKeys()),
		zap.Strings("delivery_options", tables.DeliveryOptionKeys()))

	return &App{
		Lookup: lk,
		Engine: rate.NewEngine(lk, tables, rate.WithCurrency(opts.Currency), rate.WithLogger(log)),
		Tables: tables,
		Source: source,
	}, nil
}

func loadStore(ctx context.Context, opts Options) (*refdata.Store, string, error) {
	if opts.DatabaseURL == "" {
		src := refdata.JSONSource{Dir: opts.DataDir}
		store, err := src.Load(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("load reference data: %w", err)
		}
		return store, src.Name(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := db.NewPool(ctx, opts.DatabaseURL)
	if err != nil {
		return nil, "", fmt.Errorf("connect db: %w", err)
	}
	// The store is fully in memory once loaded.
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return nil, "", fmt.Errorf("database ping failed: %w", err)
	}
	src := refdata.PostgresSource{DB: pool}
	store, err := src.Load(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load reference data: %w", err)
	}
	return store, src.Name(), nil
}
