package collector

import (
	"context"
	"errors"
	"time"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

// ErrUnsupported is returned by fetchers that lack an endpoint.
var ErrUnsupported = errors.New("not supported by data source")

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchDaily returns daily rows for code with start <= date <= end, in
	// provider order. Rows are not cleaned.
	FetchDaily(ctx context.Context, code string, start, end time.Time) ([]model.RawBar, error)
	FetchStockList(ctx context.Context) ([]model.StockInfo, error)
	Name() string
}
