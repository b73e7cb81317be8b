package calculator

import (
	"github.com/coffeeliuwei/stock-training/internal/model"
)

// SMA computes the simple moving average of closes over n bars. Positions
// before index n-1 are undefined; a series shorter than n yields a line with
// no defined points.
func SMA(s *model.Series, n int) (model.Line, error) {
	if n <= 0 {
		return nil, invalidParam("sma window %d must be positive", n)
	}
	if err := checkSeries(s); err != nil {
		return nil, err
	}
	return smaOf(s.Closes(), n), nil
}

// SMAOf is SMA over an arbitrary sequence.
func SMAOf(values []float64, n int) (model.Line, error) {
	if n <= 0 {
		return nil, invalidParam("sma window %d must be positive", n)
	}
	return smaOf(values, n), nil
}

func smaOf(values []float64, n int) model.Line {
	out := model.NewLine(len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out.Set(i, sum/float64(n))
		}
	}
	return out
}

// EMA computes the exponential moving average of closes with
// alpha = 2/(n+1), seeded with the first close. Every position is defined.
func EMA(s *model.Series, n int) (model.Line, error) {
	if n <= 0 {
		return nil, invalidParam("ema window %d must be positive", n)
	}
	if err := checkSeries(s); err != nil {
		return nil, err
	}
	return model.LineOf(emaOf(s.Closes(), n)), nil
}

// EMAOf is EMA over an arbitrary sequence, seeded with its first value.
func EMAOf(values []float64, n int) (model.Line, error) {
	if n <= 0 {
		return nil, invalidParam("ema window %d must be positive", n)
	}
	return model.LineOf(emaOf(values, n)), nil
}

func emaOf(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(n+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// VolumeMA is SMA over volumes.
func VolumeMA(s *model.Series, n int) (model.Line, error) {
	if n <= 0 {
		return nil, invalidParam("volume ma window %d must be positive", n)
	}
	if err := checkSeries(s); err != nil {
		return nil, err
	}
	return smaOf(s.Volumes(), n), nil
}
