package report

import (
	"fmt"
	"html"
	"strings"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

// Zone thresholds for the digest labels.
const (
	RSIOverbought = 70
	RSIOversold   = 30
	JOverbought   = 100
	JOversold     = 0
)

// RSIZone labels the latest RSI value.
func RSIZone(v float64) string {
	switch {
	case v > RSIOverbought:
		return "超买"
	case v < RSIOversold:
		return "超卖"
	default:
		return "中性"
	}
}

// JZone labels the latest KDJ J value.
func JZone(v float64) string {
	switch {
	case v > JOverbought:
		return "超买"
	case v < JOversold:
		return "超卖"
	default:
		return "中性"
	}
}

// cross reports a DIF/DEA crossing on the last bar.
func cross(m model.MACDLines) string {
	n := len(m.Hist)
	prev, ok1 := m.Hist.At(n - 2)
	cur, ok2 := m.Hist.At(n - 1)
	if !ok1 || !ok2 {
		return ""
	}
	switch {
	case prev <= 0 && cur > 0:
		return " 金叉"
	case prev >= 0 && cur < 0:
		return " 死叉"
	}
	return ""
}

// Digest formats the latest values of the series as a Telegram HTML message.
func Digest(info model.StockInfo, s *model.Series, set *model.IndicatorSet) string {
	if checkAligned(s, set) != nil || s.Len() == 0 {
		return ""
	}
	var b strings.Builder

	last := s.Bar(s.Len() - 1)
	name := info.Name
	if name == "" {
		name = s.Code()
	}
	b.WriteString(fmt.Sprintf("📊 <b>%s</b> (%s) | %s\n\n", html.EscapeString(name), html.EscapeString(s.Code()),
		last.Date.Format(model.DateLayout)))

	b.WriteString(fmt.Sprintf("收盘价: %.2f", last.Close))
	if s.Len() > 1 {
		prev := s.Bar(s.Len() - 2).Close
		if prev > 0 {
			b.WriteString(fmt.Sprintf(" (%+.2f%%)", (last.Close-prev)/prev*100))
		}
	}
	b.WriteString("\n")

	var mas []string
	for _, n := range sortedWindows(set.MA) {
		if v, ok := set.MA[n].Last(); ok {
			mas = append(mas, fmt.Sprintf("MA%d %.2f", n, v))
		}
	}
	if len(mas) > 0 {
		b.WriteString(strings.Join(mas, " | ") + "\n")
	}
	b.WriteString("\n")

	if dif, ok := set.MACD.DIF.Last(); ok {
		dea, _ := set.MACD.DEA.Last()
		hist, _ := set.MACD.Hist.Last()
		b.WriteString(fmt.Sprintf("MACD: DIF %.3f DEA %.3f 柱 %+.3f%s\n", dif, dea, hist, cross(set.MACD)))
	}
	if rsi, ok := set.RSI.Last(); ok {
		b.WriteString(fmt.Sprintf("RSI: %.1f (%s)\n", rsi, RSIZone(rsi)))
	} else {
		b.WriteString("RSI: 数据不足\n")
	}
	if j, ok := set.KDJ.J.Last(); ok {
		k, _ := set.KDJ.K.Last()
		d, _ := set.KDJ.D.Last()
		b.WriteString(fmt.Sprintf("KDJ: K %.1f D %.1f J %.1f (%s)\n", k, d, j, JZone(j)))
	}
	if mid, ok := set.Boll.Mid.Last(); ok {
		up, _ := set.Boll.Upper.Last()
		low, _ := set.Boll.Lower.Last()
		b.WriteString(fmt.Sprintf("BOLL: %.2f / %.2f / %.2f\n", up, mid, low))
	}
	return b.String()
}
