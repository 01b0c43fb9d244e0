// Package scheduler は価格更新処理を一定間隔で実行します。
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"finance_backend/internal/feature/pricerefresh/usecase"
	"finance_backend/internal/platform/config"
)

const (
	// DefaultInterval は更新間隔の既定値です。
	DefaultInterval = time.Hour
	// DefaultTimeout は1回の更新処理に許される時間の既定値です。
	DefaultTimeout = 5 * time.Minute
)

// Job は1回分の更新処理です。
type Job interface {
	RefreshAll(ctx context.Context) usecase.Report
}

// Config はスケジューラーの設定です。
type Config struct {
	Interval   time.Duration // 実行間隔
	Timeout    time.Duration // 1回あたりのタイムアウト（Interval 未満）
	RunOnStart bool          // Start 直後に1回実行するか
}

// LoadConfig は環境変数からスケジューラー設定を読み込みます。
func LoadConfig() Config {
	return Config{
		Interval:   config.Duration("PRICE_REFRESH_INTERVAL", DefaultInterval),
		Timeout:    config.Duration("PRICE_REFRESH_TIMEOUT", DefaultTimeout),
		RunOnStart: config.Bool("PRICE_REFRESH_ON_START", false),
	}
}

// Scheduler runs a Job every Interval. Ticks never overlap: a tick that
// fires while the previous one is still running is skipped.
type Scheduler struct {
	cron *cron.Cron
	job  Job
	cfg  Config
	log  *slog.Logger

	mu sync.Mutex // held while a tick runs
	wg sync.WaitGroup
}

// New creates a Scheduler and registers the job. It does not start it.
func New(job Job, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Timeout >= cfg.Interval {
		logger.Warn("price refresh timeout must be shorter than the interval; clamping",
			"interval", cfg.Interval, "timeout", cfg.Timeout)
		cfg.Timeout = cfg.Interval / 2
	}

	cronLog := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	s := &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		job:  job,
		cfg:  cfg,
		log:  logger,
	}
	schedule := fmt.Sprintf("@every %s", cfg.Interval)
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("register price refresh %q: %w", schedule, err)
	}
	return s, nil
}

// Config returns the effective configuration after defaults were applied.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Start starts the cron loop and, if configured, runs one tick immediately in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("price refresh scheduler started", "interval", s.cfg.Interval, "timeout", s.cfg.Timeout)
	if s.cfg.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.tick()
		}()
	}
}

// Stop stops scheduling new ticks and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("price refresh scheduler stopped")
}

// RunNow runs one refresh synchronously, waiting for any running tick first.
func (s *Scheduler) RunNow(ctx context.Context) usecase.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx)
}

func (s *Scheduler) tick() {
	if !s.mu.TryLock() {
		s.log.Info("price refresh still running; skipping tick")
		return
	}
	defer s.mu.Unlock()
	s.run(context.Background())
}

func (s *Scheduler) run(parent context.Context) usecase.Report {
	ctx, cancel := context.WithTimeout(parent, s.cfg.Timeout)
	defer cancel()
	return s.job.RefreshAll(ctx)
}
