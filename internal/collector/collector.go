package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/coffeeliuwei/stock-training/internal/cleaner"
	"github.com/coffeeliuwei/stock-training/internal/metrics"
	"github.com/coffeeliuwei/stock-training/internal/model"
	"github.com/coffeeliuwei/stock-training/internal/store"
)

// SyncResult reports the outcome of syncing one code.
type SyncResult struct {
	RunID    string
	Code     string
	Fetched  int
	Total    int
	UpToDate bool
	Err      error
	Elapsed  time.Duration
}

// Collector keeps the bar store current and loads cleaned series from it.
type Collector struct {
	Fetcher   Fetcher
	Store     store.BarStore
	Metrics   *metrics.Metrics
	StartDate time.Time
	Workers   int
	Retries   int
	Backoff   time.Duration

	now func() time.Time
}

// NewCollector creates a Collector with three retries and four workers.
func NewCollector(fetcher Fetcher, st store.BarStore, startDate time.Time) *Collector {
	return &Collector{
		Fetcher:   fetcher,
		Store:     st,
		StartDate: startDate,
		Workers:   4,
		Retries:   3,
		Backoff:   time.Second,
		now:       time.Now,
	}
}

// RefreshStockList downloads the stock list and stores it.
func (c *Collector) RefreshStockList(ctx context.Context) ([]model.StockInfo, error) {
	list, err := c.Fetcher.FetchStockList(ctx)
	c.Metrics.Fetch(c.Fetcher.Name(), err)
	if err != nil {
		return nil, fmt.Errorf("fetch stock list: %w", err)
	}
	if err := c.Store.SaveStockList(list); err != nil {
		return nil, fmt.Errorf("save stock list: %w", err)
	}
	logrus.Infof("saved %d stocks", len(list))
	return list, nil
}

// Sync brings every code up to date. An empty codes list means every code
// in the stored stock list. Codes missing from a non-empty stock list fail
// without a fetch.
func (c *Collector) Sync(ctx context.Context, codes []string) ([]SyncResult, error) {
	started := time.Now()
	runID := uuid.NewString()

	list, err := c.Store.LoadStockList()
	if err != nil {
		return nil, fmt.Errorf("load stock list: %w", err)
	}
	if len(codes) == 0 {
		for _, s := range list {
			codes = append(codes, s.Code)
		}
	}
	if len(codes) == 0 {
		return nil, errors.New("no codes to sync: stock list is empty")
	}
	known := make(map[string]bool, len(list))
	for _, s := range list {
		known[s.Code] = true
	}

	logrus.WithField("run", runID).Infof("syncing %d codes from %s", len(codes), c.Fetcher.Name())

	results := make([]SyncResult, len(codes))
	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				code := codes[i]
				if len(known) > 0 && !known[code] {
					results[i] = SyncResult{RunID: runID, Code: code, Err: fmt.Errorf("code %s is not in the stock list", code)}
					continue
				}
				t0 := time.Now()
				results[i] = c.syncOne(ctx, code)
				results[i].RunID = runID
				results[i].Elapsed = time.Since(t0)
			}
		}()
	}
	for i := range codes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			logrus.WithField("run", runID).Errorf("sync %s: %v", r.Code, r.Err)
		}
	}
	c.Metrics.SyncDone(started)
	logrus.WithField("run", runID).Infof("sync finished: %d ok, %d failed in %v",
		len(results)-failed, failed, time.Since(started).Round(time.Millisecond))
	return results, nil
}

func (c *Collector) syncOne(ctx context.Context, code string) SyncResult {
	res := SyncResult{Code: code}
	today := c.clock()

	start := c.StartDate
	latest, ok, err := c.Store.LatestDate(code)
	if err != nil {
		res.Err = fmt.Errorf("latest date: %w", err)
		return res
	}
	if ok {
		last, err := cleaner.ParseDate(latest)
		if err != nil {
			res.Err = err
			return res
		}
		if !last.Before(truncateDay(today)) {
			logrus.Infof("%s is up to date", code)
			res.UpToDate = true
			return res
		}
		start = last.AddDate(0, 0, 1)
	}

	logrus.Infof("downloading %s from %s to %s", code,
		start.Format(model.TradeDateLayout), today.Format(model.TradeDateLayout))
	rows, err := c.fetchWithRetry(ctx, code, start, today)
	if err != nil {
		res.Err = err
		return res
	}
	if len(rows) == 0 {
		logrus.Warnf("%s has no data in the requested range", code)
		return res
	}

	total, err := c.Store.Merge(code, rows)
	if err != nil {
		res.Err = fmt.Errorf("merge: %w", err)
		return res
	}
	res.Fetched, res.Total = len(rows), total
	c.Metrics.SyncedBars(code, len(rows))
	logrus.Infof("%s synced, %d rows stored", code, total)
	return res
}

// fetchWithRetry retries with exponential backoff.
func (c *Collector) fetchWithRetry(ctx context.Context, code string, start, end time.Time) ([]model.RawBar, error) {
	attempts := c.Retries
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		rows, err := c.Fetcher.FetchDaily(ctx, code, start, end)
		c.Metrics.Fetch(c.Fetcher.Name(), err)
		if err == nil {
			return rows, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		backoff := c.Backoff * time.Duration(1<<uint(i))
		logrus.Warnf("fetch %s failed (attempt %d/%d): %v, retrying in %v", code, i+1, attempts, err, backoff)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("fetch %s: all %d attempts failed: %w", code, attempts, lastErr)
}

// Series loads the stored rows for code and cleans them into a Series.
func (c *Collector) Series(code string, p cleaner.Policy) (*model.Series, error) {
	rows, err := c.Store.Load(code)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", code, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no stored data for %s, fetch it first", model.ErrInvalidInput, code)
	}
	return cleaner.Clean(code, rows, p)
}

func (c *Collector) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
