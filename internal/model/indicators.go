package model

// Point is one position of an indicator line. Points inside an indicator's
// warm-up region have Defined == false and carry no value.
type Point struct {
	Value   float64
	Defined bool
}

// Line is an indicator output aligned with its input series: Line[i]
// belongs to Bar i.
type Line []Point

// NewLine returns a line of n undefined points.
func NewLine(n int) Line { return make(Line, n) }

// LineOf wraps fully defined values.
func LineOf(values []float64) Line {
	l := make(Line, len(values))
	for i, v := range values {
		l[i] = Point{Value: v, Defined: true}
	}
	return l
}

// Set marks position i as defined with value v.
func (l Line) Set(i int, v float64) { l[i] = Point{Value: v, Defined: true} }

// At returns the value at i and whether it is defined.
func (l Line) At(i int) (float64, bool) {
	if i < 0 || i >= len(l) {
		return 0, false
	}
	return l[i].Value, l[i].Defined
}

// Floats renders the line as plain numbers, using fill for undefined points.
func (l Line) Floats(fill float64) []float64 {
	out := make([]float64, len(l))
	for i, p := range l {
		if p.Defined {
			out[i] = p.Value
		} else {
			out[i] = fill
		}
	}
	return out
}

// FirstDefined returns the index of the first defined point, or -1.
func (l Line) FirstDefined() int {
	for i, p := range l {
		if p.Defined {
			return i
		}
	}
	return -1
}

// Last returns the last defined value.
func (l Line) Last() (float64, bool) {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].Defined {
			return l[i].Value, true
		}
	}
	return 0, false
}

// MACDLines holds the three MACD outputs.
type MACDLines struct {
	DIF  Line
	DEA  Line
	Hist Line
}

// KDJLines holds the stochastic outputs, including the raw RSV.
type KDJLines struct {
	RSV Line
	K   Line
	D   Line
	J   Line
}

// BollLines holds Bollinger band outputs.
type BollLines struct {
	Upper Line
	Mid   Line
	Lower Line
}

// IndicatorSet bundles every indicator computed for one series.
type IndicatorSet struct {
	Code     string
	Len      int
	MA       map[int]Line
	VolumeMA map[int]Line
	MACD     MACDLines
	RSI      Line
	KDJ      KDJLines
	Boll     BollLines
}

// StockInfo is one row of the provider's stock list.
type StockInfo struct {
	Code     string
	Symbol   string
	Name     string
	Area     string
	Industry string
	Market   string
	ListDate string
}
