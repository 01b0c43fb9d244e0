package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	refreshusecase "finance_backend/internal/feature/pricerefresh/usecase"
)

func TestReportStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		rep        refreshusecase.Report
		wantStatus subcommands.ExitStatus
		wantOut    string
	}{
		{
			name:       "success: all updated",
			rep:        refreshusecase.Report{Tickers: 2, Updated: 2, Duration: 1500 * time.Millisecond},
			wantStatus: subcommands.ExitSuccess,
			wantOut:    "tickers: 2, updated: 2, took 1.5s\n",
		},
		{
			name:       "failure: some tickers failed",
			rep:        refreshusecase.Report{Tickers: 2, Updated: 1, Failed: []string{"BAD"}},
			wantStatus: subcommands.ExitFailure,
			wantOut:    "tickers: 2, updated: 1, took 0s\nfailed: BAD\n",
		},
		{
			name:       "failure: tickers could not be listed",
			rep:        refreshusecase.Report{Err: errors.New("list tickers: db down")},
			wantStatus: subcommands.ExitFailure,
			wantOut:    "refresh failed: list tickers: db down\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			assert.Equal(t, tt.wantStatus, reportStatus(&out, tt.rep))
			assert.Equal(t, tt.wantOut, out.String())
		})
	}
}

func TestCloseDB(t *testing.T) {
	t.Parallel()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)

	closeDB(gdb)

	sqlDB, err := gdb.DB()
	assert.NoError(t, err)
	assert.Error(t, sqlDB.Ping(), "database must be closed")
}
