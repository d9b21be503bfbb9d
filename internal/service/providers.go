package service

import (
	"context"

	"folio/internal/models"
	"github.com/shopspring/decimal"
)

// PriceProvider returns the live per-unit price of a symbol in the holding's
// purchase currency.
type PriceProvider interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// HoldingStore is the canonical holdings collection.
type HoldingStore interface {
	ListHoldings(ctx context.Context) ([]models.Holding, error)
	CreateHolding(ctx context.Context, h models.Holding) error
	DeleteHolding(ctx context.Context, symbol string) error
}

// PriceRecorder is implemented by stores that can persist refreshed prices.
type PriceRecorder interface {
	RecordPrices(ctx context.Context, holdings []models.Holding) error
}

type Searcher interface {
	SearchStocks(ctx context.Context, query string) (models.SearchResult, error)
}
