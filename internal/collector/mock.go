package collector

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

// MockFetcher returns deterministic synthetic data for demos and tests.
type MockFetcher struct {
	Price  float64
	Stocks []model.StockInfo
	Err    error
	calls  atomic.Int32
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls reports how many FetchDaily calls were made.
func (m *MockFetcher) Calls() int { return int(m.calls.Load()) }

func (m *MockFetcher) FetchDaily(_ context.Context, _ string, start, end time.Time) ([]model.RawBar, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	var bars []model.RawBar
	i := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p := m.Price * (1 + 0.05*math.Sin(float64(i)/7))
		bars = append(bars, model.RawBar{
			TradeDate: d.Format(model.TradeDateLayout),
			Open:      model.F(p * 0.998),
			High:      model.F(p * 1.01),
			Low:       model.F(p * 0.99),
			Close:     model.F(p),
			Volume:    model.F(1e6 + float64(i%5)*1e5),
		})
		i++
	}
	return bars, nil
}

func (m *MockFetcher) FetchStockList(_ context.Context) ([]model.StockInfo, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Stocks, nil
}
