// Package report renders a series and its indicators for people: console
// tables, spreadsheet exports and chat digests.
package report

import (
	"fmt"
	"sort"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

// column is one exported field. value reports false for undefined points.
type column struct {
	name  string
	value func(i int) (float64, bool)
}

func lineColumn(name string, l model.Line) column {
	return column{name: name, value: l.At}
}

func barColumn(name string, s *model.Series, pick func(model.Bar) float64) column {
	return column{name: name, value: func(i int) (float64, bool) { return pick(s.Bar(i)), true }}
}

func sortedWindows(m map[int]model.Line) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// exportColumns lists every field of the export formats, named like the
// columns of the charting tool's data frames.
func exportColumns(s *model.Series, set *model.IndicatorSet) []column {
	cols := []column{
		barColumn("open", s, func(b model.Bar) float64 { return b.Open }),
		barColumn("high", s, func(b model.Bar) float64 { return b.High }),
		barColumn("low", s, func(b model.Bar) float64 { return b.Low }),
		barColumn("close", s, func(b model.Bar) float64 { return b.Close }),
		barColumn("volume", s, func(b model.Bar) float64 { return b.Volume }),
	}
	for _, n := range sortedWindows(set.MA) {
		cols = append(cols, lineColumn(fmt.Sprintf("ma%d", n), set.MA[n]))
	}
	for _, n := range sortedWindows(set.VolumeMA) {
		cols = append(cols, lineColumn(fmt.Sprintf("volume_ma%d", n), set.VolumeMA[n]))
	}
	return append(cols,
		lineColumn("macd", set.MACD.DIF),
		lineColumn("macd_signal", set.MACD.DEA),
		lineColumn("macd_hist", set.MACD.Hist),
		lineColumn("rsi", set.RSI),
		lineColumn("kdj_k", set.KDJ.K),
		lineColumn("kdj_d", set.KDJ.D),
		lineColumn("kdj_j", set.KDJ.J),
		lineColumn("boll_upper", set.Boll.Upper),
		lineColumn("boll_mid", set.Boll.Mid),
		lineColumn("boll_lower", set.Boll.Lower),
	)
}

// consoleColumns is the narrower set shown in the terminal: close, the three
// shortest moving averages, MACD, RSI and KDJ.
func consoleColumns(s *model.Series, set *model.IndicatorSet) []column {
	cols := []column{barColumn("Close", s, func(b model.Bar) float64 { return b.Close })}
	for i, n := range sortedWindows(set.MA) {
		if i == 3 {
			break
		}
		cols = append(cols, lineColumn(fmt.Sprintf("MA%d", n), set.MA[n]))
	}
	return append(cols,
		lineColumn("DIF", set.MACD.DIF),
		lineColumn("DEA", set.MACD.DEA),
		lineColumn("MACD", set.MACD.Hist),
		lineColumn("RSI", set.RSI),
		lineColumn("K", set.KDJ.K),
		lineColumn("D", set.KDJ.D),
		lineColumn("J", set.KDJ.J),
	)
}

func checkAligned(s *model.Series, set *model.IndicatorSet) error {
	if s == nil || set == nil {
		return fmt.Errorf("report: nil series or indicator set")
	}
	if set.Len != s.Len() {
		return fmt.Errorf("report: indicator set covers %d bars, series has %d", set.Len, s.Len())
	}
	return nil
}
