package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/txopicker/config"
	"github.com/alejandrodnm/txopicker/internal/adapters/finmind"
	"github.com/alejandrodnm/txopicker/internal/adapters/notify"
	"github.com/alejandrodnm/txopicker/internal/adapters/storage"
	"github.com/alejandrodnm/txopicker/internal/domain"
	"github.com/alejandrodnm/txopicker/internal/picker"
	"github.com/alejandrodnm/txopicker/internal/ports"
)

func main() {
	if err := run(); err != nil {
		slog.Error("txopicker failed", "err", err)
		os.Exit(1)
	}
}

// run contiene todo el flujo de la CLI; devuelve el error en vez de salir para que
// los defers (cierre del storage, cancel del contexto) se ejecuten siempre.
func run() error {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	month := flag.String("month", "", "contract month YYYYMM (default: 4th available month)")
	side := flag.String("side", "", "call|put|both (overrides config)")
	mode := flag.String("mode", "", "long|short (sets default leverage and allowed range)")
	leverage := flag.Float64("leverage", 0, "target implied leverage (default: mode default)")
	safe := flag.Bool("safe", false, "safe mode: raise the |delta| floor")
	top := flag.Int("top", 0, "number of ranked candidates to keep (overrides config)")
	table := flag.Bool("table", false, "print full ranking table (default: compact 1-line)")
	validate := flag.Bool("validate", false, "print step-by-step calculation for top 3 candidates")
	noStore := flag.Bool("no-store", false, "do not persist the search")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	history := flag.Bool("history", false, "print stored searches and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("main.run: load config %s: %w", *configPath, err)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	applyFlags(cfg, *month, *side, *mode, *leverage, *safe, *top)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("main.run: invalid configuration: %w", err)
	}

	notifier := notify.NewConsole(cfg.Pricing.Multiplier, *table, *validate)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *history {
		return runHistory(ctx, cfg, notifier)
	}

	slog.Info("txopicker starting",
		"config", *configPath,
		"chain", cfg.Data.ChainPath,
		"month", cfg.Search.Month,
		"side", cfg.Search.Side,
		"mode", cfg.Search.Mode,
		"target_leverage", cfg.Search.TargetLeverage,
		"no_store", *noStore,
	)

	var store ports.Storage
	if !*noStore {
		db, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("main.run: open storage %s: %w", cfg.Storage.DSN, err)
		}
		defer closeStorage(db)
		store = db
	}

	source := finmind.NewFileSource(finmind.SourceConfig{
		Path:         cfg.Data.ChainPath,
		Symbol:       cfg.Data.Symbol,
		SpotPrice:    cfg.Data.SpotPrice,
		RiskFreeRate: cfg.Pricing.RiskFreeRate,
		Convention:   domain.ExpiryConvention(cfg.Pricing.ExpiryConvention),
	})

	p, err := picker.New(pickerConfig(cfg, *noStore), source, store, notifier)
	if err != nil {
		return fmt.Errorf("main.run: build picker: %w", err)
	}

	reqSide, _ := cfg.SearchSide() // validado arriba
	req := domain.SearchRequest{
		Month:          cfg.Search.Month,
		Side:           reqSide,
		Mode:           domain.Mode(cfg.Search.Mode),
		TargetLeverage: cfg.Search.TargetLeverage,
	}

	if _, err := p.Run(ctx, req); err != nil {
		return fmt.Errorf("main.run: search: %w", err)
	}
	return nil
}

// pickerConfig traduce la config del archivo a la del picker.
func pickerConfig(cfg *config.Config, dryRun bool) picker.Config {
	pickCfg := picker.DefaultConfig()
	pickCfg.Symbol = cfg.Data.Symbol
	pickCfg.RiskFreeRate = cfg.Pricing.RiskFreeRate
	pickCfg.FallbackVolatility = cfg.Pricing.FallbackVolatility
	pickCfg.MinPrice = cfg.Search.MinPrice
	pickCfg.TopN = cfg.Search.TopN
	pickCfg.Workers = cfg.Search.Workers
	pickCfg.DeriveIV = cfg.Search.DeriveIV
	pickCfg.DryRun = dryRun
	pickCfg.Filter = picker.FilterConfig{
		MinAbsDelta: cfg.Search.MinAbsDelta,
		SafeMode:    cfg.Search.SafeMode,
	}
	return pickCfg
}

func closeStorage(db *storage.SQLiteStorage) {
	if err := db.Close(); err != nil {
		slog.Warn("failed to close storage", "err", err)
	}
}

// applyFlags aplica los flags de la CLI sobre la configuración cargada.
func applyFlags(cfg *config.Config, month, side, mode string, leverage float64, safe bool, top int) {
	if month != "" {
		cfg.Search.Month = month
	}
	if side != "" {
		cfg.Search.Side = side
	}
	if mode != "" {
		cfg.Search.Mode = mode
		if leverage <= 0 && domain.Mode(mode).Valid() {
			cfg.Search.TargetLeverage = domain.Mode(mode).DefaultLeverage()
		}
	}
	if leverage > 0 {
		cfg.Search.TargetLeverage = leverage
	}
	if safe {
		cfg.Search.SafeMode = true
	}
	if top > 0 {
		cfg.Search.TopN = top
	}
}

func runHistory(ctx context.Context, cfg *config.Config, notifier *notify.Console) error {
	db, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("main.runHistory: open storage %s: %w", cfg.Storage.DSN, err)
	}
	defer closeStorage(db)

	to := time.Now()
	from := to.Add(-time.Duration(cfg.Storage.HistoryHours) * time.Hour)
	results, err := db.GetHistory(ctx, from, to)
	if err != nil {
		return fmt.Errorf("main.runHistory: read history: %w", err)
	}

	notifier.PrintHistory(results)
	slog.Info("history printed", "searches", len(results), "hours", cfg.Storage.HistoryHours)
	return nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
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
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
