package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/app"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/config"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/currency"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/logging"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
)

// open loads the configuration and builds the application. Logs go to
// stderr at warn level unless LOG_LEVEL says otherwise.
func open() (*app.App, *zap.Logger, error) {
	if os.Getenv("LOG_LEVEL") == "" {
		os.Setenv("LOG_LEVEL", "warn")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, "console")
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(cfg, nil, nil, logger)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

type snapshotCmd struct {
	items bool
}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "value the portfolio now and record today's total" }
func (*snapshotCmd) Usage() string {
	return `portfolioctl snapshot [-items]

  Resolves live prices for every item, prints the totals and records the
  total value as today's history point.
`
}

func (c *snapshotCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.items, "items", false, "Print every item, not only the totals.")
}

func (c *snapshotCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, logger, err := open()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()
	defer logger.Sync() //nolint:errcheck

	snapshot, err := a.Snapshot.BuildSnapshot(ctx)
	if err != nil && !errors.Is(err, apperrors.ErrFailedToPersistHistory) {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	cur := a.Rates.Settlement()
	if c.items {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "Item\tQty\tUnit\tValue\tChange\t%\tSource\t")
		for _, it := range snapshot.Items {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
				it.Name, it.Quantity,
				currency.Format(it.UnitPrice, cur),
				currency.Format(it.Value, cur),
				currency.Format(it.ChangeValue, cur),
				it.ChangePercent.StringFixed(2),
				it.PriceSource,
			)
		}
		w.Flush()
		fmt.Println()
	}

	t := snapshot.Totals
	fmt.Printf("Value:    %s\n", currency.Format(t.Value, cur))
	fmt.Printf("Baseline: %s\n", currency.Format(t.Baseline, cur))
	fmt.Printf("Change:   %s (%s%%)\n", currency.Format(t.ChangeValue, cur), t.ChangePercent.StringFixed(2))
	fmt.Printf("Items:    %d, cases: %d\n", t.ItemsCount, t.CasesCount)

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type historyCmd struct {
	limit int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "print the recorded daily portfolio values" }
func (*historyCmd) Usage() string {
	return `portfolioctl history [-n <points>]
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 30, "Number of most recent points to print (1-90).")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.limit < 1 || c.limit > 90 {
		fmt.Fprintln(os.Stderr, apperrors.ErrInvalidLimit)
		return subcommands.ExitUsageError
	}

	a, logger, err := open()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()
	defer logger.Sync() //nolint:errcheck

	points, err := a.History.History(ctx, c.limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	printHistory(points, a.Rates.Settlement())
	return subcommands.ExitSuccess
}

type rebuildCmd struct{}

func (*rebuildCmd) Name() string     { return "rebuild" }
func (*rebuildCmd) Synopsis() string { return "rebuild the history log from upstream price series" }
func (*rebuildCmd) Usage() string {
	return `portfolioctl rebuild

  Fetches every item's listing, merges the embedded price series and
  replaces the recorded history with the result.
`
}

func (*rebuildCmd) SetFlags(*flag.FlagSet) {}

func (*rebuildCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, logger, err := open()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()
	defer logger.Sync() //nolint:errcheck

	points, err := a.History.Rebuild(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	printHistory(points, a.Rates.Settlement())
	return subcommands.ExitSuccess
}

type imageCmd struct{}

func (*imageCmd) Name() string     { return "image" }
func (*imageCmd) Synopsis() string { return "resolve and cache the image of items" }
func (*imageCmd) Usage() string {
	return `portfolioctl image <marketHashName>...
`
}

func (*imageCmd) SetFlags(*flag.FlagSet) {}

func (*imageCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, apperrors.ErrMissingMarketHashName)
		return subcommands.ExitUsageError
	}

	a, logger, err := open()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.Close()
	defer logger.Sync() //nolint:errcheck

	status := subcommands.ExitSuccess
	for _, name := range f.Args() {
		ref, err := a.Images.ResolveItemImage(ctx, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Printf("%s\t%s\n", name, ref)
	}
	return status
}

func printHistory(points []model.HistoryPoint, cur string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, p := range points {
		fmt.Fprintf(w, "%s\t%s\n", p.Date, currency.Format(p.Value, cur))
	}
	w.Flush()
}
