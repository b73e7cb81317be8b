package collector

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/coffeeliuwei/stock-training/internal/cleaner"
	"github.com/coffeeliuwei/stock-training/internal/model"
	"github.com/coffeeliuwei/stock-training/internal/store"
)

func date(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestTushareFetcher_FetchDaily(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(`{"code":0,"msg":"","data":{
			"fields":["ts_code","trade_date","open","high","low","close","vol","amount"],
			"items":[
				["000001.SZ","20240103",10.1,10.5,9.9,10.2,12345.0,67890.0],
				["000001.SZ","20240102",10.0,10.3,9.8,null,11111.0,null]
			]}}`))
	}))
	defer srv.Close()

	f := NewTushareFetcher("tok", "")
	f.BaseURL = srv.URL

	bars, err := f.FetchDaily(context.Background(), "000001.SZ", date("2024-01-01"), date("2024-01-05"))
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, "daily", gjson.Get(gotBody, "api_name").String())
	assert.Equal(t, "tok", gjson.Get(gotBody, "token").String())
	assert.Equal(t, "20240101", gjson.Get(gotBody, "params.start_date").String())
	assert.Equal(t, "20240105", gjson.Get(gotBody, "params.end_date").String())

	assert.Equal(t, "20240103", bars[0].TradeDate)
	assert.Equal(t, 10.2, *bars[0].Close)
	assert.Equal(t, 12345.0, *bars[0].Volume)
	assert.Nil(t, bars[1].Close)
	assert.Nil(t, bars[1].Amount)
}

func TestTushareFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":40101,"msg":"token invalid","data":null}`))
	}))
	defer srv.Close()

	f := NewTushareFetcher("bad", "")
	f.BaseURL = srv.URL
	_, err := f.FetchDaily(context.Background(), "000001.SZ", date("2024-01-01"), date("2024-01-05"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token invalid")
}

func TestTushareFetcher_FetchStockList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"msg":"","data":{
			"fields":["ts_code","symbol","name","area","industry","market","list_date","is_hs","delist_date"],
			"items":[
				["000001.SZ","000001","平安银行","深圳","银行","主板","19910403","S",null],
				["830799.BJ","830799","艾融软件","上海","软件服务","北交所","20191227","N",null],
				["600001.SH","600001","邯郸钢铁","河北","普钢","主板","19980122","N","20091229"]
			]}}`))
	}))
	defer srv.Close()

	f := NewTushareFetcher("tok", "")
	f.BaseURL = srv.URL
	list, err := f.FetchStockList(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "000001.SZ", list[0].Code)
	assert.Equal(t, "平安银行", list[0].Name)
	assert.Equal(t, "银行", list[0].Industry)
}

func TestYahooFetcher_FetchDaily(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		// 2024-01-02 and 2024-01-03 01:30 UTC, 09:30 in Shanghai
		w.Write([]byte(`{"chart":{"result":[{
			"meta":{"gmtoffset":28800},
			"timestamp":[1704159000,1704245400,1704331800],
			"indicators":{"quote":[{
				"open":[10.0,10.2,null],
				"high":[10.5,10.6,null],
				"low":[9.8,10.0,null],
				"close":[10.2,10.4,null],
				"volume":[1000,2000,null]
			}]}}],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	bars, err := f.FetchDaily(context.Background(), "600000.SH", date("2024-01-01"), date("2024-01-05"))
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/600000.SS", gotPath)
	require.Len(t, bars, 2)
	assert.Equal(t, "20240102", bars[0].TradeDate)
	assert.Equal(t, "20240103", bars[1].TradeDate)
	assert.Equal(t, 10.4, *bars[1].Close)
	assert.Equal(t, 2000.0, *bars[1].Volume)
}

func TestYahooFetcher_StockListUnsupported(t *testing.T) {
	_, err := NewYahooFetcher("").FetchStockList(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	v, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.data == nil {
		c.data = make(map[string][]byte)
	}
	c.data[key] = value
	return nil
}

func TestCachedFetcher_HitAndMiss(t *testing.T) {
	mock := &MockFetcher{Price: 10}
	cache := &mapCache{}
	f := NewCachedFetcher(mock, cache, time.Hour)
	start, end := date("2024-01-01"), date("2024-01-31")

	first, err := f.FetchDaily(context.Background(), "000001.SZ", start, end)
	require.NoError(t, err)
	second, err := f.FetchDaily(context.Background(), "000001.SZ", start, end)
	require.NoError(t, err)

	assert.Equal(t, 1, mock.Calls())
	assert.Equal(t, first, second)
	assert.Contains(t, cache.data, "stockchart:daily:mock:000001.SZ:20240101:20240131")
	assert.Equal(t, "mock", f.Name())
}

func TestCachedFetcher_BypassesBrokenCache(t *testing.T) {
	mock := &MockFetcher{Price: 10}
	f := NewCachedFetcher(mock, &mapCache{err: errors.New("connection refused")}, time.Hour)

	bars, err := f.FetchDaily(context.Background(), "000001.SZ", date("2024-01-01"), date("2024-01-05"))
	require.NoError(t, err)
	assert.Len(t, bars, 5)
	assert.Equal(t, 1, mock.Calls())
}

func newTestCollector(t *testing.T, f Fetcher, now time.Time) (*Collector, store.BarStore) {
	t.Helper()
	st, err := store.NewCSVStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	c := NewCollector(f, st, date("2024-01-01"))
	c.Backoff = time.Millisecond
	c.now = func() time.Time { return now }
	return c, st
}

func TestCollector_SyncIsIncremental(t *testing.T) {
	mock := &MockFetcher{Price: 10, Stocks: []model.StockInfo{{Code: "000001.SZ", Name: "平安银行"}}}
	c, st := newTestCollector(t, mock, date("2024-01-31"))

	_, err := c.RefreshStockList(context.Background())
	require.NoError(t, err)

	results, err := c.Sync(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 23, results[0].Total)

	latest, ok, err := st.LatestDate("000001.SZ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "20240131", latest)

	// already current: no second fetch
	results, err = c.Sync(context.Background(), []string{"000001.SZ"})
	require.NoError(t, err)
	assert.True(t, results[0].UpToDate)
	assert.Equal(t, 1, mock.Calls())

	// a week later only the new days are requested
	c.now = func() time.Time { return date("2024-02-07") }
	results, err = c.Sync(context.Background(), []string{"000001.SZ"})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 5, results[0].Fetched)
	assert.Equal(t, 28, results[0].Total)
}

func TestCollector_SyncRejectsUnknownCode(t *testing.T) {
	mock := &MockFetcher{Price: 10, Stocks: []model.StockInfo{{Code: "000001.SZ"}}}
	c, _ := newTestCollector(t, mock, date("2024-01-31"))
	_, err := c.RefreshStockList(context.Background())
	require.NoError(t, err)

	results, err := c.Sync(context.Background(), []string{"999999.SZ"})
	require.NoError(t, err)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "999999.SZ")
	assert.Zero(t, mock.Calls())
}

func TestCollector_SyncWithoutCodes(t *testing.T) {
	c, _ := newTestCollector(t, &MockFetcher{Price: 10}, date("2024-01-31"))
	_, err := c.Sync(context.Background(), nil)
	assert.Error(t, err)
}

func TestCollector_SyncRetries(t *testing.T) {
	mock := &MockFetcher{Price: 10, Err: errors.New("timeout")}
	c, _ := newTestCollector(t, mock, date("2024-01-31"))

	results, err := c.Sync(context.Background(), []string{"000001.SZ"})
	require.NoError(t, err)
	require.Error(t, results[0].Err)
	assert.True(t, strings.Contains(results[0].Err.Error(), "all 3 attempts failed"))
	assert.Equal(t, 3, mock.Calls())
}

func TestCollector_SyncManyCodes(t *testing.T) {
	var stocks []model.StockInfo
	for _, code := range []string{"000001.SZ", "000002.SZ", "600000.SH", "600036.SH", "300750.SZ"} {
		stocks = append(stocks, model.StockInfo{Code: code})
	}
	mock := &MockFetcher{Price: 20, Stocks: stocks}
	c, _ := newTestCollector(t, mock, date("2024-01-31"))
	c.Workers = 2
	_, err := c.RefreshStockList(context.Background())
	require.NoError(t, err)

	results, err := c.Sync(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, len(stocks))
	for i, r := range results {
		assert.Equal(t, stocks[i].Code, r.Code)
		assert.NoError(t, r.Err)
	}
	assert.Equal(t, len(stocks), mock.Calls())
}

func TestCollector_Series(t *testing.T) {
	c, _ := newTestCollector(t, &MockFetcher{Price: 10}, date("2024-01-31"))

	_, err := c.Series("000001.SZ", cleaner.DefaultPolicy())
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	results, err := c.Sync(context.Background(), []string{"000001.SZ"})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)

	s, err := c.Series("000001.SZ", cleaner.Policy{Start: date("2024-01-15"), FillMissing: true})
	require.NoError(t, err)
	assert.Equal(t, 13, s.Len())
	assert.Equal(t, date("2024-01-15"), s.Bar(0).Date)
}
