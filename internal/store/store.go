// Package store keeps raw daily bars and the stock list between runs.
package store

import (
	"fmt"
	"sort"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

// BarStore persists provider rows per instrument code.
type BarStore interface {
	// LatestDate returns the newest stored trade date (YYYYMMDD).
	LatestDate(code string) (string, bool, error)
	Load(code string) ([]model.RawBar, error)
	// Merge folds rows into the stored history and returns the new row count.
	// A row for an existing trade date replaces the stored one.
	Merge(code string, rows []model.RawBar) (int, error)
	SaveStockList(list []model.StockInfo) error
	LoadStockList() ([]model.StockInfo, error)
	Close() error
}

// Open returns the store selected by driver: "csv" (files under dir) or
// "sqlite" (database at path).
func Open(driver, dir, sqlitePath string) (BarStore, error) {
	switch driver {
	case "", "csv":
		return NewCSVStore(dir)
	case "sqlite":
		return NewSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// mergeRows combines old and new rows by trade date, newest copy wins,
// ascending order.
func mergeRows(old, fresh []model.RawBar) []model.RawBar {
	byDate := make(map[string]model.RawBar, len(old)+len(fresh))
	for _, r := range old {
		byDate[r.TradeDate] = r
	}
	for _, r := range fresh {
		byDate[r.TradeDate] = r
	}
	out := make([]model.RawBar, 0, len(byDate))
	for _, r := range byDate {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradeDate < out[j].TradeDate })
	return out
}
