// Package cleaner turns provider rows into a validated model.Series.
package cleaner

import (
	"fmt"
	"sort"
	"time"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

// Policy controls how rows are cleaned.
type Policy struct {
	// Start and End bound the kept dates (inclusive). Zero means open.
	Start time.Time
	End   time.Time
	// FillMissing carries the previous row's value into missing fields.
	// Without it, rows with a missing field are dropped.
	FillMissing bool
}

// DefaultPolicy forward-fills missing fields over the full date range.
func DefaultPolicy() Policy { return Policy{FillMissing: true} }

type dated struct {
	date time.Time
	row  model.RawBar
}

// Clean parses, sorts, de-duplicates (last row wins) and fills rows, then
// builds the Series. Rows with unparsable dates are dropped. The result
// must still satisfy the Series invariants; violations are returned as
// model.ErrInvalidInput rather than repaired.
func Clean(code string, rows []model.RawBar, p Policy) (*model.Series, error) {
	parsed := make([]dated, 0, len(rows))
	for _, r := range rows {
		d, err := ParseDate(r.TradeDate)
		if err != nil {
			continue
		}
		parsed = append(parsed, dated{date: d, row: r})
	}
	sort.SliceStable(parsed, func(i, j int) bool { return parsed[i].date.Before(parsed[j].date) })

	unique := parsed[:0]
	for _, d := range parsed {
		if n := len(unique); n > 0 && unique[n-1].date.Equal(d.date) {
			unique[n-1] = d
			continue
		}
		unique = append(unique, d)
	}

	bars := make([]model.Bar, 0, len(unique))
	var prev *model.Bar
	for _, d := range unique {
		bar, ok := fill(d, prev, p.FillMissing)
		if !ok {
			continue
		}
		bars = append(bars, bar)
		prev = &bars[len(bars)-1]
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no usable rows for %s", model.ErrInvalidInput, code)
	}
	series, err := model.NewSeries(code, bars)
	if err != nil {
		return nil, err
	}
	if p.Start.IsZero() && p.End.IsZero() {
		return series, nil
	}
	return series.Between(p.Start, p.End)
}

func fill(d dated, prev *model.Bar, carry bool) (model.Bar, bool) {
	bar := model.Bar{Date: d.date}
	fields := []struct {
		src  *float64
		dst  *float64
		last func(model.Bar) float64
	}{
		{d.row.Open, &bar.Open, func(b model.Bar) float64 { return b.Open }},
		{d.row.High, &bar.High, func(b model.Bar) float64 { return b.High }},
		{d.row.Low, &bar.Low, func(b model.Bar) float64 { return b.Low }},
		{d.row.Close, &bar.Close, func(b model.Bar) float64 { return b.Close }},
		{d.row.Volume, &bar.Volume, func(b model.Bar) float64 { return b.Volume }},
	}
	for _, f := range fields {
		switch {
		case f.src != nil:
			*f.dst = *f.src
		case carry && prev != nil:
			*f.dst = f.last(*prev)
		default:
			return model.Bar{}, false
		}
	}
	return bar, true
}

// ParseDate accepts the provider's YYYYMMDD layout and YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(model.TradeDateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse trade date %q: %w", s, err)
	}
	return t, nil
}

// StockName returns the display name for code, or code itself when the
// list has no entry.
func StockName(list []model.StockInfo, code string) string {
	for _, s := range list {
		if s.Code == code && s.Name != "" {
			return s.Name
		}
	}
	return code
}
