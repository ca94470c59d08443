// Command polydata extracts and inspects Polymarket market data. It loads
// configuration, wires the API clients and optional cache/archive/upload
// backends, and dispatches to one of the subcommands.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cyoung/polydata/internal/app"
	"github.com/cyoung/polydata/internal/config"
)

const usage = `usage: polydata [flags] <command> [args]

Commands:
  extract <locator>     fetch price history and export it
  event <slug>          show an event and its markets
  info <locator>        show resolved market details
  search <query>        search markets across both APIs
  book <locator>        show order books for a market's outcomes
  price <locator>       show current prices for a market's outcomes
  history <locator>     fetch history and print per-outcome statistics
  portfolio <address>   show a user's positions
  holders <locator>     show a market's largest holders
  runs                  list archived extraction runs
  artifacts [prefix]    list, fetch or delete uploaded artifacts

Flags:
`

func main() {
	configPath := flag.String("config", "", "path to configuration file (optional)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "polydata: load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Wire(ctx, cfg, logger)
	if err != nil {
		logger.Error("wiring failed", "error", err)
		os.Exit(1)
	}
	defer deps.Close()

	cmd := flag.Arg(0)
	args := flag.Args()[1:]
	if err := dispatch(ctx, cmd, args, cfg, deps, logger); err != nil {
		if ctx.Err() != nil {
			logger.Info("interrupted")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "polydata: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func dispatch(ctx context.Context, cmd string, args []string, cfg *config.Config, deps *app.Dependencies, logger *slog.Logger) error {
	switch cmd {
	case "extract":
		return runExtract(ctx, args, cfg, deps)
	case "event":
		return runEvent(ctx, args, deps)
	case "info":
		return runInfo(ctx, args, deps)
	case "search":
		return runSearch(ctx, args, deps)
	case "book":
		return runBook(ctx, args, deps)
	case "price":
		return runPrice(ctx, args, deps)
	case "history":
		return runHistory(ctx, args, cfg, deps)
	case "portfolio":
		return runPortfolio(ctx, args, deps)
	case "holders":
		return runHolders(ctx, args, deps)
	case "runs":
		return runRuns(ctx, args, deps)
	case "artifacts":
		return runArtifacts(ctx, args, cfg, deps)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}
