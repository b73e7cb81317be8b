package calculator

import (
	"sync"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

// ComputeAll runs every indicator family selected by p over s. Parameters
// are checked before any computation. The families run concurrently since
// they only read s.
func ComputeAll(s *model.Series, p Params) (*model.IndicatorSet, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := checkSeries(s); err != nil {
		return nil, err
	}

	set := &model.IndicatorSet{
		Code:     s.Code(),
		Len:      s.Len(),
		MA:       make(map[int]model.Line, len(p.MA)),
		VolumeMA: make(map[int]model.Line, len(p.VolumeMA)),
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	run := func(fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}

	for _, n := range p.MA {
		n := n
		run(func() error {
			l, err := SMA(s, n)
			if err != nil {
				return err
			}
			mu.Lock()
			set.MA[n] = l
			mu.Unlock()
			return nil
		})
	}
	for _, n := range p.VolumeMA {
		n := n
		run(func() error {
			l, err := VolumeMA(s, n)
			if err != nil {
				return err
			}
			mu.Lock()
			set.VolumeMA[n] = l
			mu.Unlock()
			return nil
		})
	}
	run(func() (err error) {
		if s.Len() < 2 {
			set.MACD = undefinedMACD(s.Len())
			return nil
		}
		set.MACD, err = MACD(s, p.MACD)
		return err
	})
	run(func() (err error) {
		if s.Len() < p.RSI.Period+1 {
			set.RSI = model.NewLine(s.Len())
			return nil
		}
		set.RSI, err = RSI(s, p.RSI)
		return err
	})
	run(func() (err error) {
		set.KDJ, err = KDJ(s, p.KDJ)
		return err
	})
	run(func() (err error) {
		set.Boll, err = Bollinger(s, p.Boll)
		return err
	})

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return set, nil
}

func undefinedMACD(n int) model.MACDLines {
	return model.MACDLines{DIF: model.NewLine(n), DEA: model.NewLine(n), Hist: model.NewLine(n)}
}

// Latest returns the last defined value of l.
func Latest(l model.Line) (float64, bool) { return l.Last() }
