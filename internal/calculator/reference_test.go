package calculator

import (
	"testing"

	"github.com/markcheno/go-talib"
	"github.com/stretchr/testify/require"
)

// zigzag never repeats a close, so no window is free of gains or losses.
func zigzag(n int) []float64 {
	out := make([]float64, n)
	p := 50.0
	for i := range out {
		switch i % 4 {
		case 0:
			p += 1.7
		case 1:
			p -= 0.9
		case 2:
			p += 0.4
		default:
			p -= 1.3
		}
		out[i] = p + float64(i)*0.05
	}
	return out
}

func TestSMA_MatchesTalib(t *testing.T) {
	closes := zigzag(120)
	s := series(t, closes...)
	for _, n := range []int{5, 10, 20, 60} {
		got, err := SMA(s, n)
		require.NoError(t, err)
		want := talib.Sma(closes, n)
		for i := n - 1; i < len(closes); i++ {
			assertClose(t, "sma", got[i].Value, want[i], 1e-9)
		}
	}
}

func TestRSI_MatchesTalibWilder(t *testing.T) {
	closes := zigzag(120)
	s := series(t, closes...)
	for _, n := range []int{6, 14, 24} {
		got, err := RSI(s, RSIParams{Period: n})
		require.NoError(t, err)
		want := talib.Rsi(closes, n)
		for i := n; i < len(closes); i++ {
			assertClose(t, "rsi", got[i].Value, want[i], 1e-6)
		}
	}
}
