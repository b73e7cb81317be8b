package calculator

import (
	"fmt"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

// RSI computes the Wilder-smoothed relative strength index over period n.
// The first value, at index n, averages the gains and losses of the first
// n changes; indices below n are undefined. A window without losses reads 100.
func RSI(s *model.Series, p RSIParams) (model.Line, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := checkSeries(s); err != nil {
		return nil, err
	}
	n := p.Period
	if s.Len() < n+1 {
		return nil, fmt.Errorf("%w: rsi(%d) needs %d bars, got %d", ErrInsufficientData, n, n+1, s.Len())
	}

	closes := s.Closes()
	out := model.NewLine(len(closes))

	var avgGain, avgLoss float64
	for i := 1; i <= n; i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(n)
	avgLoss /= float64(n)
	out.Set(n, rsiValue(avgGain, avgLoss))

	for i := n + 1; i < len(closes); i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain = (avgGain*float64(n-1) + gain) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + loss) / float64(n)
		out.Set(i, rsiValue(avgGain, avgLoss))
	}
	return out, nil
}

func split(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
