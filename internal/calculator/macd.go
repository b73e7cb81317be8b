package calculator

import (
	"fmt"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

// MACD computes DIF = EMA(fast) - EMA(slow), DEA = EMA(DIF, signal) and the
// histogram 2*(DIF-DEA). All three lines are defined from the first bar.
func MACD(s *model.Series, p MACDParams) (model.MACDLines, error) {
	if err := p.validate(); err != nil {
		return model.MACDLines{}, err
	}
	if err := checkSeries(s); err != nil {
		return model.MACDLines{}, err
	}
	if s.Len() < 2 {
		return model.MACDLines{}, fmt.Errorf("%w: macd needs at least 2 bars, got %d", ErrInvalidParameter, s.Len())
	}

	closes := s.Closes()
	fast := emaOf(closes, p.Fast)
	slow := emaOf(closes, p.Slow)

	dif := make([]float64, len(closes))
	for i := range closes {
		dif[i] = fast[i] - slow[i]
	}
	dea := emaOf(dif, p.Signal)

	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = 2 * (dif[i] - dea[i])
	}
	return model.MACDLines{
		DIF:  model.LineOf(dif),
		DEA:  model.LineOf(dea),
		Hist: model.LineOf(hist),
	}, nil
}
