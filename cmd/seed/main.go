package main

import (
	"context"
	"errors"

	"folio/internal/config"
	"folio/internal/currency"
	"folio/internal/database"
	"folio/internal/models"
	"github.com/shopspring/decimal"
)

// Seeds the sample holdings into the SQL store named by STORE_BACKEND.
func main() {
	cfg, err := config.Load()
	logger := cfg.NewLogger()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	backend, dsn := cfg.StoreDSN()
	if backend != database.BackendPostgres && backend != database.BackendSQLite {
		logger.Fatalf("seed needs a postgres or sqlite STORE_BACKEND, got %q", backend)
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, backend, dsn, logger)
	if err != nil {
		logger.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()
	repo := database.New(db, logger)

	samples := []models.NewHolding{
		{
			Symbol:               "AAPL",
			Name:                 "Apple Inc",
			Quantity:             10,
			CostBasisPerUnit:     decimal.RequireFromString("243.04"),
			PurchaseCurrency:     currency.USD,
			DividendPerUnit:      decimal.NewFromInt(1),
			DividendYieldPercent: decimal.RequireFromString("0.41"),
		},
		{
			Symbol:           "TSLA",
			Name:             "Tesla, Inc",
			Quantity:         10,
			CostBasisPerUnit: decimal.NewFromInt(350),
			PurchaseCurrency: currency.USD,
		},
	}
	rates := currency.DefaultRates()
	for _, s := range samples {
		if err := s.Validate(rates); err != nil {
			logger.Fatalf("sample %s: %v", s.Symbol, err)
		}
		err := repo.CreateHolding(ctx, s.Holding())
		switch {
		case errors.Is(err, models.ErrDuplicateSymbol):
			logger.Warnf("%s already seeded; skipping", s.Symbol)
		case err != nil:
			logger.Fatalf("seed %s: %v", s.Symbol, err)
		default:
			logger.Infof("seeded %s (%d @ %s %s)", s.Symbol, s.Quantity, s.CostBasisPerUnit, s.PurchaseCurrency)
		}
	}
}
