package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/subcommands"

	"finance_backend/internal/app/di"
	"finance_backend/internal/feature/marketdata/domain"
	"finance_backend/internal/feature/marketdata/domain/entity"
	"finance_backend/internal/feature/marketdata/usecase"
)

// market is the subset of the market data client the commands use.
type market interface {
	FetchLatestPrices(ctx context.Context, tickers []string) map[string]entity.QuoteResult
	FetchHistory(ctx context.Context, ticker string, window int) (entity.HistoricalSeries, error)
}

type marketFactory func() (market, error)

func newMarket() (market, error) {
	return di.NewMarketClient(di.LoadMarketConfig())
}

func commands(out io.Writer, newMarket marketFactory) []subcommands.Command {
	return []subcommands.Command{
		&quoteCmd{out: out, newMarket: newMarket},
		&historyCmd{out: out, newMarket: newMarket},
	}
}

type quoteCmd struct {
	out       io.Writer
	newMarket marketFactory
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "fetch the latest price of one or more tickers" }
func (*quoteCmd) Usage() string {
	return `pricectl quote <ticker>...

  Fetches the latest price of each ticker from the configured provider.
  Tickers that fail are listed with their error kind; the exit status is
  non-zero if any ticker failed.
`
}
func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "at least one ticker is required")
		return subcommands.ExitUsageError
	}
	m, err := c.newMarket()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	tickers := f.Args()
	results := m.FetchLatestPrices(ctx, tickers)

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TICKER\tPRICE\tOBSERVED")
	status := subcommands.ExitSuccess
	for _, t := range tickers {
		t = domain.NormalizeTicker(t)
		r, ok := results[t]
		switch {
		case !ok:
			fmt.Fprintf(w, "%s\t-\t%s\n", t, "not_found")
			status = subcommands.ExitFailure
		case r.Err != nil:
			fmt.Fprintf(w, "%s\t-\t%s\n", t, domain.Kind(r.Err))
			status = subcommands.ExitFailure
		default:
			fmt.Fprintf(w, "%s\t%s\t%s\n", t, r.Quote.Price.StringFixed(2), r.Quote.ObservedAt.Format("2006-01-02 15:04"))
		}
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return status
}

type historyCmd struct {
	out       io.Writer
	newMarket marketFactory
	window    int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "print the trailing daily closes of a ticker" }
func (*historyCmd) Usage() string {
	return `pricectl history [-window <days>] <ticker>

  Prints the daily closing prices of the ticker, oldest first.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.window, "window", usecase.DefaultHistoryWindow, "Number of trailing trading days to fetch.")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "exactly one ticker is required")
		return subcommands.ExitUsageError
	}
	m, err := c.newMarket()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	series, err := m.FetchHistory(ctx, strings.TrimSpace(f.Arg(0)), c.window)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", domain.Kind(err), err)
		return subcommands.ExitFailure
	}
	for _, dc := range series.Closes {
		fmt.Fprintf(c.out, "%s %s\n", dc.Date.Format("2006-01-02"), dc.Close.StringFixed(2))
	}
	return subcommands.ExitSuccess
}
