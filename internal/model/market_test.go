package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func flatBar(i int, p float64) Bar {
	return Bar{Date: day(i), Open: p, High: p, Low: p, Close: p, Volume: 100}
}

func TestNewSeries_Valid(t *testing.T) {
	bars := []Bar{flatBar(0, 10), flatBar(1, 11), flatBar(3, 12)}
	s, err := NewSeries("000001.SZ", bars)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "000001.SZ", s.Code())
	assert.Equal(t, []float64{10, 11, 12}, s.Closes())

	// the series owns its bars
	bars[0].Close = 99
	assert.Equal(t, 10.0, s.Bar(0).Close)
}

func TestNewSeries_Rejects(t *testing.T) {
	tests := []struct {
		name string
		bars []Bar
	}{
		{"empty", nil},
		{"duplicate date", []Bar{flatBar(0, 10), flatBar(0, 11)}},
		{"same day, different hour", []Bar{flatBar(1, 10), {Date: day(1).Add(15 * time.Hour), Open: 11, High: 11, Low: 11, Close: 11}}},
		{"descending", []Bar{flatBar(2, 10), flatBar(1, 11)}},
		{"nan close", []Bar{{Date: day(0), Open: 1, High: 2, Low: 1, Close: math.NaN()}}},
		{"inf volume", []Bar{{Date: day(0), Open: 1, High: 1, Low: 1, Close: 1, Volume: math.Inf(1)}}},
		{"negative", []Bar{{Date: day(0), Open: -1, High: 1, Low: -1, Close: 1}}},
		{"low above high", []Bar{{Date: day(0), Open: 1, High: 1, Low: 2, Close: 1}}},
		{"close outside range", []Bar{{Date: day(0), Open: 1, High: 2, Low: 1, Close: 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSeries("X", tt.bars)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSeries_Between(t *testing.T) {
	s, err := NewSeries("X", []Bar{flatBar(0, 1), flatBar(1, 2), flatBar(2, 3), flatBar(3, 4)})
	require.NoError(t, err)

	sub, err := s.Between(day(1), day(2))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, sub.Closes())

	_, err = s.Between(day(10), time.Time{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLine_Accessors(t *testing.T) {
	l := NewLine(4)
	l.Set(2, 5)
	l.Set(3, 6)

	_, ok := l.At(0)
	assert.False(t, ok)
	v, ok := l.At(3)
	assert.True(t, ok)
	assert.Equal(t, 6.0, v)
	_, ok = l.At(10)
	assert.False(t, ok)

	assert.Equal(t, 2, l.FirstDefined())
	last, ok := l.Last()
	assert.True(t, ok)
	assert.Equal(t, 6.0, last)
	assert.Equal(t, []float64{-1, -1, 5, 6}, l.Floats(-1))
	assert.Equal(t, -1, NewLine(3).FirstDefined())
}
