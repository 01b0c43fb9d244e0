package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
	"gorm.io/gorm"

	"finance_backend/internal/app/di"
	portfolioadapters "finance_backend/internal/feature/portfolio/adapters"
	"finance_backend/internal/feature/pricerefresh/scheduler"
	refreshusecase "finance_backend/internal/feature/pricerefresh/usecase"
	"finance_backend/internal/platform/db"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or update the database schema" }
func (*migrateCmd) Usage() string {
	return `pricectl migrate

  Connects to the configured database and migrates every table.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := db.LoadConfigFromEnv()
	cfg.RunMigrations = true
	gdb, err := db.OpenDB(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	closeDB(gdb)
	return subcommands.ExitSuccess
}

type refreshCmd struct {
	out io.Writer
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "refresh the stored price of every held ticker once" }
func (*refreshCmd) Usage() string {
	return `pricectl refresh

  Runs one price refresh against the configured database and provider,
  using the same timeout as the background scheduler.
`
}
func (*refreshCmd) SetFlags(*flag.FlagSet) {}

func (c *refreshCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	gdb, err := db.OpenDB(db.LoadConfigFromEnv())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closeDB(gdb)
	market, err := di.NewMarketClient(di.LoadMarketConfig())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	logger := slog.Default()
	refresher := refreshusecase.NewRefresher(portfolioadapters.NewHoldingRepository(gdb), market, logger)
	sched, err := scheduler.New(refresher, scheduler.LoadConfig(), logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	return reportStatus(c.out, sched.RunNow(ctx))
}

// reportStatus は更新結果を出力し、一覧取得の失敗または失敗銘柄があれば ExitFailure を返します。
func reportStatus(w io.Writer, rep refreshusecase.Report) subcommands.ExitStatus {
	if rep.Err != nil {
		fmt.Fprintf(w, "refresh failed: %v\n", rep.Err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(w, "tickers: %d, updated: %d, took %s\n", rep.Tickers, rep.Updated, rep.Duration.Round(time.Millisecond))
	if len(rep.Failed) > 0 {
		fmt.Fprintf(w, "failed: %s\n", strings.Join(rep.Failed, ", "))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func closeDB(gdb *gorm.DB) {
	sqlDB, err := gdb.DB()
	if err != nil {
		slog.Warn("failed to get database handle", "error", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
}
