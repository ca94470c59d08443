package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cyoung/polydata/internal/app"
	"github.com/cyoung/polydata/internal/config"
	"github.com/cyoung/polydata/internal/domain"
	"github.com/cyoung/polydata/internal/export"
	"github.com/cyoung/polydata/internal/extract"
	"github.com/cyoung/polydata/internal/locator"
	"github.com/cyoung/polydata/internal/platform/polymarket"
)

func parseLocatorArg(args []string) (locator.Ref, error) {
	if len(args) == 0 {
		return locator.Ref{}, fmt.Errorf("a market or event locator is required")
	}
	return locator.Parse(args[0])
}

func resolveMarketArg(ctx context.Context, args []string, deps *app.Dependencies) (*domain.Market, error) {
	ref, err := parseLocatorArg(args)
	if err != nil {
		return nil, err
	}
	if ref.Kind == locator.KindEvent {
		return nil, fmt.Errorf("%q names an event; this command needs a market", args[0])
	}
	return deps.Resolver.Market(ctx, ref.Slug())
}

func extractOptions(fs *flag.FlagSet, cfg *config.Config) (*string, *int, func() (extract.Options, error)) {
	interval := fs.String("interval", cfg.Extract.Interval, "history fidelity: 1m, 1h, 6h, 1d, 1w or max")
	days := fs.Int("days", cfg.Extract.DaysBack, "days of history when the market has no start date")
	startStr := fs.String("start", "", "history start date (YYYY-MM-DD), overrides the market's start date")
	endStr := fs.String("end", "", "history end date (YYYY-MM-DD), overrides the market's end date")
	return interval, days, func() (extract.Options, error) {
		iv, err := domain.ParseInterval(*interval)
		if err != nil {
			return extract.Options{}, err
		}
		start, err := parseDateFlag("start", *startStr)
		if err != nil {
			return extract.Options{}, err
		}
		end, err := parseDateFlag("end", *endStr)
		if err != nil {
			return extract.Options{}, err
		}
		return extract.Options{
			Interval:    iv,
			DaysBack:    *days,
			StartDate:   start,
			EndDate:     end,
			MarketDelay: cfg.Extract.MarketDelay.Duration,
			ReleaseHint: cfg.Extract.ReleaseMemory,
		}, nil
	}
}

func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("-%s %q must be a YYYY-MM-DD date", name, value)
	}
	return &t, nil
}

func runExtract(ctx context.Context, args []string, cfg *config.Config, deps *app.Dependencies) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	_, _, buildOpts := extractOptions(fs, cfg)
	format := fs.String("format", cfg.Export.Format, "output format: csv or json")
	outDir := fs.String("out", cfg.Export.Dir, "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ref, err := parseLocatorArg(fs.Args())
	if err != nil {
		return err
	}
	opts, err := buildOpts()
	if err != nil {
		return err
	}
	if *format != "csv" && *format != "json" {
		return fmt.Errorf("format %q must be csv or json", *format)
	}

	eventData, marketData, report, err := deps.Extractor.ExtractRef(ctx, ref, opts)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	name := fmt.Sprintf("%s_%s.%s", ref.Slug(), opts.Interval, *format)
	switch {
	case marketData != nil && *format == "csv":
		err = export.WriteMarketCSV(&buf, marketData)
	case marketData != nil:
		err = export.WriteMarketJSON(&buf, marketData)
	case eventData != nil && *format == "csv":
		err = export.WriteEventCSV(&buf, eventData)
	case eventData != nil:
		err = export.WriteEventJSON(&buf, eventData)
	default:
		printReport(report)
		return nil
	}
	if err != nil {
		return err
	}

	path := filepath.Join(*outDir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", path, buf.Len())

	if deps.Uploader != nil {
		key, err := deps.Uploader.Upload(ctx, report.RunID, name, buf.Bytes(), report.StartedAt)
		if err != nil {
			return err
		}
		fmt.Printf("uploaded %s\n", key)
	}
	printReport(report)
	return nil
}

func printReport(r *extract.Report) {
	succeeded, failed, skipped := r.Counts()
	fmt.Printf("run %s: %d ok, %d failed, %d skipped in %s\n",
		r.RunID, succeeded, failed, skipped, r.Duration.Round(time.Millisecond))
	for _, m := range r.Markets {
		switch m.Outcome {
		case "ok":
			fmt.Printf("  %-40s %d points\n", m.Slug, m.Points)
		default:
			fmt.Printf("  %-40s %s (%s)\n", m.Slug, m.Outcome, m.Reason)
		}
	}
}

func runEvent(ctx context.Context, args []string, deps *app.Dependencies) error {
	ref, err := parseLocatorArg(args)
	if err != nil {
		return err
	}
	ev, err := deps.Resolver.Event(ctx, ref.Slug())
	if err != nil {
		return err
	}
	fmt.Printf("%s\n  title: %s\n  active: %t  closed: %t\n  volume: %.0f  liquidity: %.0f\n  markets: %d\n",
		ev.Slug, ev.Title, ev.Active, ev.Closed, ev.Volume, ev.Liquidity, len(ev.Markets))
	for i := range ev.Markets {
		m := &ev.Markets[i]
		status := "active"
		if m.IsInactiveNegRiskOption() {
			status = "placeholder"
		} else if !m.Active || m.Closed {
			status = "inactive"
		}
		fmt.Printf("  - %-40s %s\n", m.Slug, status)
	}
	return nil
}

func runInfo(ctx context.Context, args []string, deps *app.Dependencies) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	refresh := fs.Bool("refresh", false, "drop the cached resolution and refetch from the APIs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *refresh {
		ref, err := parseLocatorArg(fs.Args())
		if err != nil {
			return err
		}
		if err := deps.Resolver.InvalidateMarket(ctx, ref.Slug()); err != nil {
			return err
		}
	}
	m, err := resolveMarketArg(ctx, fs.Args(), deps)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n  question: %s\n  condition: %s\n  active: %t  closed: %t  archived: %t\n",
		m.Slug, m.Question, m.ConditionID, m.Active, m.Closed, m.Archived)
	if m.NegRisk {
		fmt.Printf("  neg_risk: %s\n", m.NegRiskMarketID)
	}
	if m.StartDate != nil {
		fmt.Printf("  start: %s\n", m.StartDate.Format(time.RFC3339))
	}
	if m.EndDate != nil {
		fmt.Printf("  end: %s\n", m.EndDate.Format(time.RFC3339))
	}
	for i, outcome := range m.Outcomes {
		token := "(none)"
		if i < len(m.TokenIDs) && m.TokenIDs[i] != "" {
			token = m.TokenIDs[i]
		}
		fmt.Printf("  %-8s %s\n", outcome, token)
	}
	return nil
}

func runSearch(ctx context.Context, args []string, deps *app.Dependencies) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	limit := fs.Int("limit", 10, "maximum results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("a search query is required")
	}
	results, err := deps.Resolver.SearchMarkets(ctx, fs.Arg(0), *limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no markets found")
		return nil
	}
	for _, m := range results {
		fmt.Printf("%-50s %s\n", m.Slug, m.DisplayName(60))
	}
	return nil
}

func runBook(ctx context.Context, args []string, deps *app.Dependencies) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	depth := fs.Int("depth", 5, "levels to show per side")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m, err := resolveMarketArg(ctx, fs.Args(), deps)
	if err != nil {
		return err
	}
	if !m.HasTradeableToken() {
		return fmt.Errorf("market %q has no tradeable tokens", m.Slug)
	}
	books, err := deps.Clob.MarketBooks(ctx, m)
	if err != nil {
		return err
	}
	for i, outcome := range m.Outcomes {
		if i >= len(m.TokenIDs) || m.TokenIDs[i] == "" {
			continue
		}
		book, ok := books.Books[outcome]
		if !ok {
			fmt.Printf("%s: no book\n", outcome)
			continue
		}
		fmt.Printf("%s:\n", outcome)
		if mid, ok := book.Mid(); ok {
			spread, _ := book.Spread()
			fmt.Printf("  mid: %s  spread: %s\n", mid.StringFixed(4), spread.StringFixed(4))
		}
		bids, asks := book.Depth(*depth)
		for _, lv := range asks {
			fmt.Printf("  ask %s x %s\n", lv.Price.StringFixed(4), lv.Size.StringFixed(2))
		}
		for _, lv := range bids {
			fmt.Printf("  bid %s x %s\n", lv.Price.StringFixed(4), lv.Size.StringFixed(2))
		}
	}
	return nil
}

func runPrice(ctx context.Context, args []string, deps *app.Dependencies) error {
	m, err := resolveMarketArg(ctx, args, deps)
	if err != nil {
		return err
	}
	for i, outcome := range m.Outcomes {
		if i >= len(m.TokenIDs) || m.TokenIDs[i] == "" {
			continue
		}
		mid, err := deps.Clob.Midpoint(ctx, m.TokenIDs[i])
		if err != nil {
			fmt.Printf("%-8s (unavailable: %v)\n", outcome, err)
			continue
		}
		fmt.Printf("%-8s %s\n", outcome, mid.StringFixed(4))
	}
	return nil
}

func runHistory(ctx context.Context, args []string, cfg *config.Config, deps *app.Dependencies) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	_, _, buildOpts := extractOptions(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ref, err := parseLocatorArg(fs.Args())
	if err != nil {
		return err
	}
	opts, err := buildOpts()
	if err != nil {
		return err
	}
	eventData, marketData, _, err := deps.Extractor.ExtractRef(ctx, ref, opts)
	if err != nil {
		return err
	}
	if marketData != nil {
		return export.WriteMarketSummary(os.Stdout, marketData)
	}
	if eventData != nil {
		return export.WriteEventSummary(os.Stdout, eventData)
	}
	fmt.Println("no data")
	return nil
}

func runPortfolio(ctx context.Context, args []string, deps *app.Dependencies) error {
	fs := flag.NewFlagSet("portfolio", flag.ContinueOnError)
	limit := fs.Int("limit", 50, "maximum positions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("a wallet address is required")
	}
	user := fs.Arg(0)
	positions, err := deps.Data.Positions(ctx, polymarket.PositionFilter{
		User:          user,
		Limit:         *limit,
		SortBy:        "CURRENT",
		SortDirection: "DESC",
	})
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		fmt.Println("no open positions")
		return nil
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].CurrentValue > positions[j].CurrentValue
	})
	var total float64
	for _, p := range positions {
		total += float64(p.CurrentValue)
		fmt.Printf("%-40s %-6s size=%.2f value=%.2f pnl=%+.2f\n",
			p.Slug, p.Outcome, float64(p.Size), float64(p.CurrentValue), float64(p.CashPnL))
	}
	fmt.Printf("total value: %.2f\n", total)
	return nil
}

func runHolders(ctx context.Context, args []string, deps *app.Dependencies) error {
	fs := flag.NewFlagSet("holders", flag.ContinueOnError)
	limit := fs.Int("limit", 10, "holders per outcome")
	if err := fs.Parse(args); err != nil {
		return err
	}
	m, err := resolveMarketArg(ctx, fs.Args(), deps)
	if err != nil {
		return err
	}
	holders, err := deps.Data.Holders(ctx, m.ConditionID, *limit)
	if err != nil {
		return err
	}
	for _, h := range holders {
		name := h.Name
		if name == "" {
			name = h.Pseudonym
		}
		if name == "" {
			name = h.ProxyWallet
		}
		outcome := ""
		if h.OutcomeIndex >= 0 && h.OutcomeIndex < len(m.Outcomes) {
			outcome = m.Outcomes[h.OutcomeIndex]
		}
		fmt.Printf("%-30s %-8s %.2f\n", name, outcome, float64(h.Amount))
	}
	return nil
}

func runArtifacts(ctx context.Context, args []string, cfg *config.Config, deps *app.Dependencies) error {
	fs := flag.NewFlagSet("artifacts", flag.ContinueOnError)
	get := fs.String("get", "", "download the artifact stored under this key")
	rm := fs.String("rm", "", "delete the artifact stored under this key")
	outDir := fs.String("out", cfg.Export.Dir, "directory for downloaded artifacts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if deps.Artifacts == nil {
		return fmt.Errorf("artifact storage is not enabled; set export.upload in the config")
	}

	switch {
	case *get != "":
		body, err := deps.Artifacts.Get(ctx, *get)
		if err != nil {
			return err
		}
		defer body.Close()
		path := filepath.Join(*outDir, filepath.Base(*get))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		n, err := io.Copy(f, body)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("wrote %s (%d bytes)\n", path, n)
		return nil

	case *rm != "":
		ok, err := deps.Artifacts.Exists(ctx, *rm)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("artifact %s: %w", *rm, domain.ErrNotFound)
		}
		if err := deps.Artifacts.Delete(ctx, *rm); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", *rm)
		return nil
	}

	prefix := cfg.Export.Prefix
	if fs.NArg() > 0 {
		prefix = fs.Arg(0)
	}
	artifacts, err := deps.Artifacts.List(ctx, prefix)
	if err != nil {
		return err
	}
	if len(artifacts) == 0 {
		fmt.Println("no artifacts found")
		return nil
	}
	for _, a := range artifacts {
		fmt.Printf("%s  %10d  %s\n", a.LastModified.Format("2006-01-02 15:04:05"), a.Size, a.Path)
	}
	return nil
}

func runRuns(ctx context.Context, args []string, deps *app.Dependencies) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "maximum runs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if deps.Store == nil {
		return fmt.Errorf("run archive is not enabled; set archive.enabled in the config")
	}
	runs, err := deps.Store.ListRecentRuns(ctx, *limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no archived runs")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %-6s %-40s %s  %d ok / %d failed / %d skipped\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.Kind, r.Locator,
			r.Interval, r.Succeeded, r.Failed, r.Skipped)
	}
	return nil
}
