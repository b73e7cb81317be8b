package model

// RawBar is a provider row before cleaning. TradeDate uses TradeDateLayout;
// a nil field is missing in the source.
type RawBar struct {
	TradeDate string   `json:"trade_date"`
	Open      *float64 `json:"open"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Close     *float64 `json:"close"`
	Volume    *float64 `json:"vol"`
	Amount    *float64 `json:"amount"`
}

// F returns a pointer to v, for building RawBar fields.
func F(v float64) *float64 { return &v }
