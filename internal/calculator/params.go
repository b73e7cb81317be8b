package calculator

// MACDParams configures MACD.
type MACDParams struct {
	Fast   int `yaml:"fast"`
	Slow   int `yaml:"slow"`
	Signal int `yaml:"signal"`
}

// RSIParams configures RSI.
type RSIParams struct {
	Period int `yaml:"period"`
}

// KDJParams configures KDJ: RSV window N and smoothing factors M1, M2.
type KDJParams struct {
	N  int `yaml:"n"`
	M1 int `yaml:"m1"`
	M2 int `yaml:"m2"`
}

// BollParams configures Bollinger bands.
type BollParams struct {
	Period int     `yaml:"period"`
	K      float64 `yaml:"k"`
}

// Params selects every indicator computed by ComputeAll.
type Params struct {
	MA       []int      `yaml:"ma"`
	VolumeMA []int      `yaml:"volume_ma"`
	MACD     MACDParams `yaml:"macd"`
	RSI      RSIParams  `yaml:"rsi"`
	KDJ      KDJParams  `yaml:"kdj"`
	Boll     BollParams `yaml:"boll"`
}

// DefaultMACDParams returns the classic 12/26/9 MACD.
func DefaultMACDParams() MACDParams { return MACDParams{Fast: 12, Slow: 26, Signal: 9} }

// DefaultRSIParams returns a 14-day RSI.
func DefaultRSIParams() RSIParams { return RSIParams{Period: 14} }

// DefaultKDJParams returns KDJ(9,3,3).
func DefaultKDJParams() KDJParams { return KDJParams{N: 9, M1: 3, M2: 3} }

// DefaultBollParams returns 20-day bands at two standard deviations.
func DefaultBollParams() BollParams { return BollParams{Period: 20, K: 2} }

// DefaultParams returns the conventional charting set. Each call returns a
// fresh value.
func DefaultParams() Params {
	return Params{
		MA:       []int{5, 10, 20, 30, 60},
		VolumeMA: []int{5, 10, 20},
		MACD:     DefaultMACDParams(),
		RSI:      DefaultRSIParams(),
		KDJ:      DefaultKDJParams(),
		Boll:     DefaultBollParams(),
	}
}

// Validate checks the parameter constraints of every family without
// touching any data.
func (p Params) Validate() error {
	for _, n := range p.MA {
		if n <= 0 {
			return invalidParam("ma window %d must be positive", n)
		}
	}
	for _, n := range p.VolumeMA {
		if n <= 0 {
			return invalidParam("volume ma window %d must be positive", n)
		}
	}
	if err := p.MACD.validate(); err != nil {
		return err
	}
	if err := p.RSI.validate(); err != nil {
		return err
	}
	if err := p.KDJ.validate(); err != nil {
		return err
	}
	return p.Boll.validate()
}

func (p MACDParams) validate() error {
	if p.Fast <= 0 || p.Slow <= 0 || p.Signal <= 0 {
		return invalidParam("macd windows (%d,%d,%d) must be positive", p.Fast, p.Slow, p.Signal)
	}
	if p.Fast >= p.Slow {
		return invalidParam("macd fast %d must be below slow %d", p.Fast, p.Slow)
	}
	return nil
}

func (p RSIParams) validate() error {
	if p.Period < 1 {
		return invalidParam("rsi period %d must be at least 1", p.Period)
	}
	return nil
}

func (p KDJParams) validate() error {
	if p.N < 1 || p.M1 < 1 || p.M2 < 1 {
		return invalidParam("kdj (n=%d,m1=%d,m2=%d) must all be at least 1", p.N, p.M1, p.M2)
	}
	return nil
}

func (p BollParams) validate() error {
	if p.Period < 2 {
		return invalidParam("boll period %d must be at least 2", p.Period)
	}
	if p.K <= 0 {
		return invalidParam("boll width %.2f must be positive", p.K)
	}
	return nil
}
