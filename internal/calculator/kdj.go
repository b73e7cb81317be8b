package calculator

import (
	"github.com/coffeeliuwei/stock-training/internal/model"
)

const kdjSeed = 50.0

// KDJ computes the stochastic K, D and J lines. RSV uses the trailing n-bar
// high/low range, shortened for the first n-1 bars; a flat range gives 50.
// K and D start at 50 and are smoothed with factors 1/m1 and 1/m2.
func KDJ(s *model.Series, p KDJParams) (model.KDJLines, error) {
	if err := p.validate(); err != nil {
		return model.KDJLines{}, err
	}
	if err := checkSeries(s); err != nil {
		return model.KDJLines{}, err
	}

	closes := s.Closes()
	hh, ll := trailingRange(s.Highs(), s.Lows(), p.N)

	size := len(closes)
	rsv := make([]float64, size)
	k := make([]float64, size)
	d := make([]float64, size)
	j := make([]float64, size)
	m1, m2 := float64(p.M1), float64(p.M2)

	for i := range closes {
		rsv[i] = 100 * position(closes[i], hh[i], ll[i])
		if i == 0 {
			k[0], d[0] = kdjSeed, kdjSeed
		} else {
			k[i] = k[i-1]*(m1-1)/m1 + rsv[i]/m1
			d[i] = d[i-1]*(m2-1)/m2 + k[i]/m2
		}
		j[i] = 3*k[i] - 2*d[i]
	}
	return model.KDJLines{
		RSV: model.LineOf(rsv),
		K:   model.LineOf(k),
		D:   model.LineOf(d),
		J:   model.LineOf(j),
	}, nil
}
