package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/coffeeliuwei/stock-training/internal/calculator"
	"github.com/coffeeliuwei/stock-training/internal/cleaner"
	"github.com/coffeeliuwei/stock-training/internal/collector"
	"github.com/coffeeliuwei/stock-training/internal/metrics"
	"github.com/coffeeliuwei/stock-training/internal/model"
	"github.com/coffeeliuwei/stock-training/internal/recorder"
	"github.com/coffeeliuwei/stock-training/internal/report"
)

// Notifier delivers digests.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the daily sync job and chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Notifier  Notifier
	Recorder  recorder.Recorder
	Metrics   *metrics.Metrics
	Params    calculator.Params
	Watchlist []string
	// Lookback is how much history the digest indicators are computed over.
	Lookback time.Duration
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, n Notifier, params calculator.Params, watchlist []string) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Notifier:  n,
		Recorder:  recorder.NewNoopRecorder(),
		Params:    params,
		Watchlist: watchlist,
		Lookback:  365 * 24 * time.Hour,
		Ctx:       ctx,
	}
}

// Register adds the daily sync job.
func (s *Scheduler) Register(syncCron string) error {
	if _, err := s.Cron.AddFunc(syncCron, s.dailyTask); err != nil {
		return fmt.Errorf("register sync task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	logrus.Info("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logrus.Info("scheduler stopped")
}

// RunNow executes the daily task immediately.
func (s *Scheduler) RunNow() {
	s.dailyTask()
}

func (s *Scheduler) dailyTask() {
	logrus.Info("running daily sync")
	started := time.Now()

	results, err := s.Collector.Sync(s.Ctx, s.Watchlist)
	if err != nil {
		runID := uuid.NewString()
		logrus.WithField("run", runID).Errorf("daily sync: %v", err)
		s.notify(runID, "failure", "", "❌ 日线同步失败: "+html.EscapeString(err.Error()))
		return
	}
	runID := results[0].RunID
	log := logrus.WithField("run", runID)
	s.recordSync(results, started)

	var failed []string
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, failureLine(r.Code, r.Err))
			continue
		}
		msg, err := s.quote(r.Code)
		if err != nil {
			log.Errorf("digest %s: %v", r.Code, err)
			failed = append(failed, failureLine(r.Code, err))
			continue
		}
		s.notify(runID, "digest", r.Code, msg)
	}
	if len(failed) > 0 {
		s.notify(runID, "failure", "", "⚠️ <b>部分股票处理失败</b>\n\n"+strings.Join(failed, "\n"))
	}
	log.Infof("daily task done, %d codes, %d failed", len(results), len(failed))
}

// failureLine renders one failed code for the HTML failure summary.
// Provider errors can carry raw response bodies.
func failureLine(code string, err error) string {
	return html.EscapeString(code) + ": " + html.EscapeString(err.Error())
}

func (s *Scheduler) recordSync(results []collector.SyncResult, started time.Time) {
	runs := make([]recorder.SyncRun, 0, len(results))
	for _, r := range results {
		run := recorder.SyncRun{
			RunID:    r.RunID,
			Code:     r.Code,
			Fetched:  r.Fetched,
			Total:    r.Total,
			UpToDate: r.UpToDate,
			Started:  started,
			Duration: r.Elapsed,
		}
		if r.Err != nil {
			run.Err = r.Err.Error()
		}
		runs = append(runs, run)
	}
	if err := s.Recorder.RecordSync(runs); err != nil {
		logrus.Errorf("record sync: %v", err)
	}
}

// quote computes the digest for code from stored data.
func (s *Scheduler) quote(code string) (string, error) {
	policy := cleaner.DefaultPolicy()
	policy.Start = time.Now().Add(-s.Lookback)
	series, err := s.Collector.Series(code, policy)
	if err != nil {
		return "", err
	}

	started := time.Now()
	set, err := calculator.ComputeAll(series, s.Params)
	if err != nil {
		return "", fmt.Errorf("compute indicators: %w", err)
	}
	s.Metrics.Computed(started)

	info := model.StockInfo{Code: code}
	if list, err := s.Collector.Store.LoadStockList(); err == nil {
		info.Name = cleaner.StockName(list, code)
	}
	return report.Digest(info, series, set), nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch fields[0] {
	case "/quote", "行情":
		if len(fields) < 2 {
			return "用法: /quote 000001.SZ"
		}
		code := strings.ToUpper(fields[1])
		msg, err := s.quote(code)
		if err != nil {
			return "❌ " + failureLine(code, err)
		}
		return msg
	case "/status", "状态":
		if len(fields) < 2 {
			return "用法: /status 000001.SZ"
		}
		return s.status(strings.ToUpper(fields[1]))
	case "/sync", "同步":
		s.dailyTask()
		return ""
	case "/watchlist", "自选":
		if len(s.Watchlist) == 0 {
			return "自选列表为空"
		}
		return "自选列表:\n• " + strings.Join(s.Watchlist, "\n• ")
	default:
		return helpText
	}
}

const helpText = "可用命令:\n• /quote 代码 查看指标\n• /status 代码 查看上次同步\n• /sync 立即同步自选\n• /watchlist 查看自选列表"

// status describes the newest journaled sync of code.
func (s *Scheduler) status(code string) string {
	run, err := s.Recorder.LastSync(code)
	if err != nil {
		return "❌ " + failureLine(code, err)
	}
	if run == nil {
		return fmt.Sprintf("%s 暂无同步记录", html.EscapeString(code))
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%s</b> 上次同步 %s (%v)\n", html.EscapeString(code),
		run.Started.Format("2006-01-02 15:04:05"), run.Duration.Round(time.Millisecond)))
	switch {
	case run.Err != "":
		b.WriteString("失败: " + html.EscapeString(run.Err))
	case run.UpToDate:
		b.WriteString("数据已是最新")
	default:
		b.WriteString(fmt.Sprintf("新增 %d 条, 共 %d 条", run.Fetched, run.Total))
	}
	return b.String()
}

// notify sends text and journals the delivery.
func (s *Scheduler) notify(runID, kind, code, text string) {
	if s.Notifier == nil {
		return
	}
	d := &recorder.Delivery{RunID: runID, Kind: kind, Code: code, OK: true}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		logrus.Errorf("send notification: %v", err)
		d.OK, d.Err = false, err.Error()
	}
	if err := s.Recorder.RecordDelivery(d); err != nil {
		logrus.Errorf("record delivery: %v", err)
	}
}
