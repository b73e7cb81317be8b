package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

const (
	tushareURL = "http://api.tushare.pro"
	// marketBSE is excluded from the stock list.
	marketBSE = "北交所"
)

// TushareFetcher implements Fetcher on the Tushare Pro HTTP API.
type TushareFetcher struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewTushareFetcher creates a fetcher with optional proxy support.
func NewTushareFetcher(token, proxyURL string) *TushareFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TushareFetcher{
		BaseURL: tushareURL,
		Token:   token,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (f *TushareFetcher) Name() string { return "tushare" }

type tushareRequest struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

// call posts one API request and returns the rows keyed by field name.
func (f *TushareFetcher) call(ctx context.Context, api string, params map[string]string, fields string) ([]map[string]gjson.Result, error) {
	body, err := json.Marshal(tushareRequest{APIName: api, Token: f.Token, Params: params, Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tushare %s: %w", api, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tushare read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tushare: status %d, body: %s", resp.StatusCode, string(raw))
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("tushare %s: invalid json response", api)
	}

	res := gjson.ParseBytes(raw)
	if code := res.Get("code").Int(); code != 0 {
		return nil, fmt.Errorf("tushare %s: api error %d: %s", api, code, res.Get("msg").String())
	}

	names := res.Get("data.fields").Array()
	items := res.Get("data.items").Array()
	rows := make([]map[string]gjson.Result, 0, len(items))
	for _, item := range items {
		values := item.Array()
		row := make(map[string]gjson.Result, len(names))
		for i, name := range names {
			if i < len(values) {
				row[name.String()] = values[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (f *TushareFetcher) FetchDaily(ctx context.Context, code string, start, end time.Time) ([]model.RawBar, error) {
	rows, err := f.call(ctx, "daily", map[string]string{
		"ts_code":    code,
		"start_date": start.Format(model.TradeDateLayout),
		"end_date":   end.Format(model.TradeDateLayout),
	}, "ts_code,trade_date,open,high,low,close,vol,amount")
	if err != nil {
		return nil, err
	}

	bars := make([]model.RawBar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, model.RawBar{
			TradeDate: r["trade_date"].String(),
			Open:      optional(r["open"]),
			High:      optional(r["high"]),
			Low:       optional(r["low"]),
			Close:     optional(r["close"]),
			Volume:    optional(r["vol"]),
			Amount:    optional(r["amount"]),
		})
	}
	return bars, nil
}

// FetchStockList returns listed stocks, excluding the Beijing exchange and
// delisted entries.
func (f *TushareFetcher) FetchStockList(ctx context.Context) ([]model.StockInfo, error) {
	rows, err := f.call(ctx, "stock_basic", map[string]string{
		"exchange":    "",
		"list_status": "L",
	}, "ts_code,symbol,name,area,industry,market,list_date,is_hs,delist_date")
	if err != nil {
		return nil, err
	}

	list := make([]model.StockInfo, 0, len(rows))
	for _, r := range rows {
		if r["market"].String() == marketBSE || r["delist_date"].String() != "" {
			continue
		}
		list = append(list, model.StockInfo{
			Code:     r["ts_code"].String(),
			Symbol:   r["symbol"].String(),
			Name:     r["name"].String(),
			Area:     r["area"].String(),
			Industry: r["industry"].String(),
			Market:   r["market"].String(),
			ListDate: r["list_date"].String(),
		})
	}
	return list, nil
}

func optional(v gjson.Result) *float64 {
	if v.Type != gjson.Number {
		return nil
	}
	f := v.Float()
	return &f
}
