package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffeeliuwei/stock-training/internal/calculator"
	"github.com/coffeeliuwei/stock-training/internal/collector"
	"github.com/coffeeliuwei/stock-training/internal/model"
	"github.com/coffeeliuwei/stock-training/internal/recorder"
	"github.com/coffeeliuwei/stock-training/internal/store"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, text)
	return nil
}

func (r *recordingNotifier) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func newTestScheduler(t *testing.T, fetcher collector.Fetcher, watchlist []string) (*Scheduler, *recordingNotifier) {
	t.Helper()
	st, err := store.NewCSVStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	col := collector.NewCollector(fetcher, st, time.Now().AddDate(0, -3, 0))
	col.Backoff = time.Millisecond
	n := &recordingNotifier{}
	return NewScheduler(context.Background(), col, n, calculator.DefaultParams(), watchlist), n
}

func TestRunNow_SendsDigestPerCode(t *testing.T) {
	mock := &collector.MockFetcher{Price: 12, Stocks: []model.StockInfo{
		{Code: "000001.SZ", Name: "平安银行"},
		{Code: "600000.SH", Name: "浦发银行"},
	}}
	s, n := newTestScheduler(t, mock, []string{"000001.SZ", "600000.SH"})
	_, err := s.Collector.RefreshStockList(context.Background())
	require.NoError(t, err)

	s.RunNow()

	msgs := n.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "平安银行")
	assert.Contains(t, msgs[0], "RSI:")
	assert.Contains(t, msgs[1], "浦发银行")
}

func TestRunNow_ReportsFailures(t *testing.T) {
	s, n := newTestScheduler(t, &collector.MockFetcher{Err: errors.New("upstream down")}, []string{"000001.SZ"})

	s.RunNow()

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "部分股票处理失败")
	assert.Contains(t, msgs[0], "upstream down")
}

func TestRunNow_EscapesProviderErrors(t *testing.T) {
	body := errors.New("tushare: status 502, body: <html><b>Bad Gateway</b> & retry</html>")
	s, n := newTestScheduler(t, &collector.MockFetcher{Err: body}, []string{"000001.SZ"})

	s.RunNow()

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "<b>部分股票处理失败</b>")
	assert.Contains(t, msgs[0], "&lt;html&gt;&lt;b&gt;Bad Gateway&lt;/b&gt; &amp; retry&lt;/html&gt;")
	assert.NotContains(t, msgs[0], "<html>")
}

func TestHandleCommand(t *testing.T) {
	s, n := newTestScheduler(t, &collector.MockFetcher{Price: 8}, []string{"000001.SZ"})

	assert.Contains(t, s.HandleCommand("/help"), "/quote")
	assert.Contains(t, s.HandleCommand(""), "/quote")
	assert.Contains(t, s.HandleCommand("/quote"), "用法")
	assert.Contains(t, s.HandleCommand("/watchlist"), "000001.SZ")

	// nothing stored yet
	assert.Contains(t, s.HandleCommand("/quote 000001.SZ"), "❌")

	assert.Empty(t, s.HandleCommand("/sync"))
	require.Len(t, n.messages(), 1)

	reply := s.HandleCommand("/quote 000001.sz")
	assert.Contains(t, reply, "000001.SZ")
	assert.Contains(t, reply, "KDJ:")
}

func TestRegister(t *testing.T) {
	s, _ := newTestScheduler(t, &collector.MockFetcher{Price: 8}, nil)
	require.NoError(t, s.Register("0 30 16 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("not a cron spec"))
}

func TestRunNow_JournalsSyncRuns(t *testing.T) {
	s, _ := newTestScheduler(t, &collector.MockFetcher{Price: 8}, []string{"000001.SZ"})
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer rec.Close()
	s.Recorder = rec

	s.RunNow()
	s.RunNow()

	last, err := rec.LastSync("000001.SZ")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Empty(t, last.Err)

	reply := s.HandleCommand("/status 000001.sz")
	assert.Contains(t, reply, "<b>000001.SZ</b> 上次同步")
	assert.NotContains(t, reply, "失败")
	assert.Contains(t, s.HandleCommand("/status 600000.SH"), "暂无同步记录")
}

func TestHandleCommand_Status(t *testing.T) {
	s, _ := newTestScheduler(t, &collector.MockFetcher{Err: errors.New("a < b")}, []string{"000001.SZ"})
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer rec.Close()
	s.Recorder = rec

	assert.Contains(t, s.HandleCommand("/status"), "用法")
	s.RunNow()
	reply := s.HandleCommand("/status 000001.SZ")
	assert.Contains(t, reply, "失败: ")
	assert.Contains(t, reply, "a &lt; b")

	// the default journal keeps nothing
	s.Recorder = recorder.NewNoopRecorder()
	assert.Contains(t, s.HandleCommand("/status 000001.SZ"), "暂无同步记录")
}
