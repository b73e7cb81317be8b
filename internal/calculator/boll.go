package calculator

import (
	"math"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

// Bollinger computes the middle band SMA(period) and upper/lower bands at
// K sample standard deviations. Positions before period-1 are undefined.
func Bollinger(s *model.Series, p BollParams) (model.BollLines, error) {
	if err := p.validate(); err != nil {
		return model.BollLines{}, err
	}
	if err := checkSeries(s); err != nil {
		return model.BollLines{}, err
	}

	closes := s.Closes()
	mid := smaOf(closes, p.Period)
	upper := model.NewLine(len(closes))
	lower := model.NewLine(len(closes))

	for i := p.Period - 1; i < len(closes); i++ {
		m := mid[i].Value
		var ss float64
		for _, c := range closes[i-p.Period+1 : i+1] {
			ss += (c - m) * (c - m)
		}
		sd := math.Sqrt(ss / float64(p.Period-1))
		upper.Set(i, m+p.K*sd)
		lower.Set(i, m-p.K*sd)
	}
	return model.BollLines{Upper: upper, Mid: mid, Lower: lower}, nil
}
