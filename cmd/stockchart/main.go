package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coffeeliuwei/stock-training/internal/calculator"
	"github.com/coffeeliuwei/stock-training/internal/cleaner"
	"github.com/coffeeliuwei/stock-training/internal/collector"
	"github.com/coffeeliuwei/stock-training/internal/config"
	"github.com/coffeeliuwei/stock-training/internal/metrics"
	"github.com/coffeeliuwei/stock-training/internal/model"
	"github.com/coffeeliuwei/stock-training/internal/notifier"
	"github.com/coffeeliuwei/stock-training/internal/recorder"
	"github.com/coffeeliuwei/stock-training/internal/report"
	"github.com/coffeeliuwei/stock-training/internal/scheduler"
	"github.com/coffeeliuwei/stock-training/internal/store"
)

type options struct {
	configPath string
	fetch      bool
	updateList bool
	show       bool
	serve      bool
	codes      string
	start      string
	end        string
	rows       int
	export     string
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("stockchart", flag.ContinueOnError)
	o := &options{}
	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	fs.StringVar(&o.configPath, "config", defaultConfig, "path to the YAML config")
	fs.BoolVar(&o.fetch, "fetch", false, "download or update daily bars")
	fs.BoolVar(&o.updateList, "update-list", false, "refresh the stock list")
	fs.BoolVar(&o.show, "show", false, "print indicators for -code")
	fs.BoolVar(&o.serve, "serve", false, "run the scheduled sync and Telegram bot")
	fs.StringVar(&o.codes, "code", "", "stock code(s), comma separated, e.g. 000001.SZ")
	fs.StringVar(&o.start, "start", "", "first date (YYYY-MM-DD or YYYYMMDD), default one year ago")
	fs.StringVar(&o.end, "end", "", "last date (YYYY-MM-DD or YYYYMMDD), default today")
	fs.IntVar(&o.rows, "rows", 20, "days shown by -show, 0 for all")
	fs.StringVar(&o.export, "export", "", "write indicators to a .xlsx or .csv file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if !o.fetch && !o.updateList && !o.show && !o.serve && o.export == "" {
		fs.Usage()
		return nil, errors.New("no action given")
	}
	return o, nil
}

func (o *options) codeList() []string {
	var out []string
	for _, c := range strings.Split(o.codes, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, strings.ToUpper(c))
		}
	}
	return out
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("config validation: %v", err)
	}

	st, err := store.Open(cfg.Storage.Driver, cfg.Storage.DataDir, cfg.Storage.SQLitePath)
	if err != nil {
		logrus.Fatalf("open store: %v", err)
	}
	defer st.Close()

	fetcher, closeCache := newFetcher(cfg)
	defer closeCache()
	logrus.Infof("data source: %s, store: %s", fetcher.Name(), cfg.Storage.Driver)

	startDate, _ := cfg.Start()
	col := collector.NewCollector(fetcher, st, startDate)
	col.Workers = cfg.DataSource.Workers
	m := metrics.New()
	col.Metrics = m

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, cfg, col, m); err != nil {
		logrus.Errorf("%v", err)
		cancel()
		st.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options, cfg *config.Config, col *collector.Collector, m *metrics.Metrics) error {
	if opts.updateList {
		if _, err := col.RefreshStockList(ctx); err != nil {
			return err
		}
	}
	if opts.fetch {
		if err := fetch(ctx, col, opts.codeList()); err != nil {
			return err
		}
	}
	if opts.show || opts.export != "" {
		if err := show(opts, cfg, col, m); err != nil {
			return err
		}
	}
	if opts.serve {
		return serve(ctx, cfg, col, m)
	}
	return nil
}

// newFetcher builds the configured fetcher, wrapped in the Redis cache when
// one is configured and reachable.
func newFetcher(cfg *config.Config) (collector.Fetcher, func()) {
	var f collector.Fetcher
	switch cfg.DataSource.Provider {
	case "yahoo":
		f = collector.NewYahooFetcher(cfg.Proxy)
	case "mock":
		f = &collector.MockFetcher{Price: 10, Stocks: []model.StockInfo{{Code: "000001.SZ", Name: "平安银行"}}}
	default:
		f = collector.NewTushareFetcher(cfg.DataSource.Token, cfg.Proxy)
	}
	if cfg.Cache.RedisAddr == "" {
		return f, func() {}
	}
	cache, err := collector.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.Password, cfg.Cache.DB)
	if err != nil {
		logrus.Warnf("init redis cache failed, fetching uncached: %v", err)
		return f, func() {}
	}
	return collector.NewCachedFetcher(f, cache, cfg.Cache.TTL), func() { cache.Close() }
}

func fetch(ctx context.Context, col *collector.Collector, codes []string) error {
	results, err := col.Sync(ctx, codes)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case r.UpToDate:
			fmt.Printf("%s 数据已是最新\n", r.Code)
		default:
			fmt.Printf("%s 新增 %d 条, 共 %d 条\n", r.Code, r.Fetched, r.Total)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d codes failed to sync", failed, len(results))
	}
	return nil
}

func show(opts *options, cfg *config.Config, col *collector.Collector, m *metrics.Metrics) error {
	codes := opts.codeList()
	if len(codes) != 1 {
		return errors.New("-show and -export need exactly one -code")
	}
	code := codes[0]

	policy := cleaner.DefaultPolicy()
	policy.Start = time.Now().AddDate(-1, 0, 0)
	if opts.start != "" {
		t, err := cleaner.ParseDate(opts.start)
		if err != nil {
			return fmt.Errorf("-start: %w", err)
		}
		policy.Start = t
	}
	if opts.end != "" {
		t, err := cleaner.ParseDate(opts.end)
		if err != nil {
			return fmt.Errorf("-end: %w", err)
		}
		policy.End = t
	}

	series, err := col.Series(code, policy)
	if err != nil {
		return err
	}
	started := time.Now()
	set, err := calculator.ComputeAll(series, cfg.Params())
	if err != nil {
		return fmt.Errorf("compute indicators: %w", err)
	}
	m.Computed(started)

	info := model.StockInfo{Code: code}
	if list, err := col.Store.LoadStockList(); err == nil {
		info.Name = cleaner.StockName(list, code)
	}

	if opts.show {
		if err := report.Console(os.Stdout, info, series, set, opts.rows); err != nil {
			return err
		}
	}
	if opts.export != "" {
		if err := report.Export(opts.export, series, set); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		logrus.Infof("indicators written to %s", opts.export)
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config, col *collector.Collector, m *metrics.Metrics) error {
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	sched := scheduler.NewScheduler(ctx, col, tn, cfg.Params(), cfg.Watchlist)
	sched.Metrics = m
	if cfg.Storage.HistoryPath != "" {
		rec, err := recorder.NewSQLiteRecorder(cfg.Storage.HistoryPath)
		if err != nil {
			logrus.Warnf("init sqlite recorder failed, using noop: %v", err)
		} else {
			sched.Recorder = rec
			defer rec.Close()
		}
	}
	if err := sched.Register(cfg.Schedule.SyncCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.Errorf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
		logrus.Infof("metrics listening on %s", cfg.MetricsAddr)
	}

	go tn.StartPolling(ctx, sched.HandleCommand)
	logrus.Info("telegram polling started")

	if os.Getenv("RUN_ON_START") == "true" {
		logrus.Info("RUN_ON_START enabled, executing daily task now")
		go sched.RunNow()
	}

	logrus.Info("stockchart is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	logrus.Info("shutdown signal received, stopping...")
	return nil
}
