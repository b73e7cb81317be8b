package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Error kinds shared by the series model and the indicator engine.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInsufficientData = errors.New("insufficient data")
)

// Bar represents a single daily candlestick.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is an ordered, validated run of daily bars for one instrument.
// Build it with NewSeries; the zero value is an empty series that every
// indicator rejects.
type Series struct {
	code string
	bars []Bar
}

// NewSeries validates bars and returns a Series holding its own copy of them.
func NewSeries(code string, bars []Bar) (*Series, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: series %q is empty", ErrInvalidInput, code)
	}
	for i, b := range bars {
		if err := b.validate(); err != nil {
			return nil, fmt.Errorf("%w: bar %d (%s): %v", ErrInvalidInput, i, b.Date.Format(DateLayout), err)
		}
		if i > 0 && !calendarDay(b.Date).After(calendarDay(bars[i-1].Date)) {
			return nil, fmt.Errorf("%w: bar %d (%s) is not after %s", ErrInvalidInput, i,
				b.Date.Format(DateLayout), bars[i-1].Date.Format(DateLayout))
		}
	}
	cp := make([]Bar, len(bars))
	copy(cp, bars)
	return &Series{code: code, bars: cp}, nil
}

// calendarDay drops the clock time so bars compare by trading day.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (b Bar) validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}, {"volume", b.Volume},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s is not finite", f.name)
		}
		if f.v < 0 {
			return fmt.Errorf("%s is negative", f.name)
		}
	}
	if b.Low > b.High {
		return errors.New("low above high")
	}
	if b.Open < b.Low || b.Open > b.High || b.Close < b.Low || b.Close > b.High {
		return errors.New("open/close outside low-high range")
	}
	return nil
}

// Code returns the instrument code, e.g. "000001.SZ".
func (s *Series) Code() string {
	if s == nil {
		return ""
	}
	return s.code
}

// Len returns the number of bars. A nil series has length 0.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.bars)
}

// Bar returns the i-th bar.
func (s *Series) Bar(i int) Bar { return s.bars[i] }

// Bars returns a copy of the bars.
func (s *Series) Bars() []Bar {
	if s == nil {
		return nil
	}
	cp := make([]Bar, len(s.bars))
	copy(cp, s.bars)
	return cp
}

// Closes returns a freshly allocated slice of close prices.
func (s *Series) Closes() []float64 {
	return s.column(func(b Bar) float64 { return b.Close })
}

// Highs returns a freshly allocated slice of high prices.
func (s *Series) Highs() []float64 {
	return s.column(func(b Bar) float64 { return b.High })
}

// Lows returns a freshly allocated slice of low prices.
func (s *Series) Lows() []float64 {
	return s.column(func(b Bar) float64 { return b.Low })
}

// Volumes returns a freshly allocated slice of volumes.
func (s *Series) Volumes() []float64 {
	return s.column(func(b Bar) float64 { return b.Volume })
}

func (s *Series) column(pick func(Bar) float64) []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = pick(s.bars[i])
	}
	return out
}

// Between returns the sub-series with start <= date <= end, compared by
// calendar day. A zero start or end leaves that side open.
func (s *Series) Between(start, end time.Time) (*Series, error) {
	var bars []Bar
	for _, b := range s.bars {
		d := calendarDay(b.Date)
		if !start.IsZero() && d.Before(calendarDay(start)) {
			continue
		}
		if !end.IsZero() && d.After(calendarDay(end)) {
			continue
		}
		bars = append(bars, b)
	}
	return NewSeries(s.code, bars)
}

// DateLayout is the calendar-day layout used in logs and exports.
const DateLayout = "2006-01-02"

// TradeDateLayout is the compact layout used by the data provider.
const TradeDateLayout = "20060102"
