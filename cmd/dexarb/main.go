// Package main is the entry point for the DEX arbitrage engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage"
	arbitrageDI "github.com/fd1az/dex-arbitrage-engine/business/arbitrage/di"
	"github.com/fd1az/dex-arbitrage-engine/business/blockchain"
	"github.com/fd1az/dex-arbitrage-engine/business/pricing"
	pricingDI "github.com/fd1az/dex-arbitrage-engine/business/pricing/di"
	"github.com/fd1az/dex-arbitrage-engine/internal/apm"
	"github.com/fd1az/dex-arbitrage-engine/internal/config"
	"github.com/fd1az/dex-arbitrage-engine/internal/di"
	"github.com/fd1az/dex-arbitrage-engine/internal/health"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
	"github.com/fd1az/dex-arbitrage-engine/internal/metrics"
	"github.com/fd1az/dex-arbitrage-engine/internal/monolith"
	"github.com/fd1az/dex-arbitrage-engine/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type options struct {
	configPath string
	tui        bool
	scan       string
	investment float64
	minProfit  float64
	refresh    bool
	jsonOut    bool
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run with logs instead of the TUI")
	flag.StringVar(&opts.scan, "scan", "", "Scan one pair and exit, e.g. WETH/USDC@ethereum")
	flag.Float64Var(&opts.investment, "investment", 0, "Trade size in quote-token units for -scan (default from config)")
	flag.Float64Var(&opts.minProfit, "min-profit", -1, "Minimum price difference percent for -scan (default from config)")
	flag.BoolVar(&opts.refresh, "refresh", false, "Bypass the aggregation cache for -scan")
	flag.BoolVar(&opts.jsonOut, "json", false, "Print the -scan result as JSON")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dexarb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// One-shot scans always run without the TUI.
	opts.tui = !*cliMode && opts.scan == ""

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.App.TUIMode = opts.tui

	var out io.Writer = os.Stderr
	if opts.tui {
		// The TUI owns the terminal.
		out = io.Discard
	}
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	if opts.scan == "" {
		log.Info(ctx, "starting dex arbitrage engine",
			"version", version,
			"environment", cfg.App.Environment)
	}

	stopTelemetry := startTelemetry(ctx, cfg, log)
	defer stopTelemetry()

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer func() {
		if err := mono.Close(); err != nil {
			log.Error(context.Background(), "shutdown", "error", err)
		}
	}()

	modules := []monolith.Module{
		&blockchain.Module{}, // block feed and gas prices
		&pricing.Module{},    // sources, store, aggregation
		&arbitrage.Module{},  // detection, runner, API
	}
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	if opts.scan != "" {
		// A one-shot scan needs neither the API nor the health server.
		cfg.API.Enabled = false
		if err := mono.StartModules(ctx, modules...); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
		return runScan(ctx, mono, cfg, opts)
	}

	healthServer := startHealth(ctx, cfg, mono.Services(), log)
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = healthServer.Stop(stopCtx)
	}()

	start := func() error {
		if err := mono.StartModules(ctx, modules...); err != nil {
			return fmt.Errorf("failed to start modules: %w", err)
		}
		if err := arbitrageDI.GetRunner(mono.Services()).Start(ctx); err != nil {
			return fmt.Errorf("failed to start runner: %w", err)
		}
		healthServer.SetReady(true)
		return nil
	}
	stop := func() {
		healthServer.SetReady(false)
		if err := arbitrageDI.GetRunner(mono.Services()).Stop(); err != nil {
			log.Error(context.Background(), "error stopping runner", "error", err)
		}
	}

	if opts.tui {
		return runTUI(ctx, start, stop)
	}
	return runCLI(ctx, start, stop, log)
}

func startTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) func() {
	if !cfg.Telemetry.Enabled {
		return func() {}
	}
	tc := cfg.Telemetry
	headers := metrics.ParseHeaders(tc.OTLPHeaders)

	provider := apm.ParseProvider(tc.TraceProvider)
	tp, err := apm.NewTraceProvider(ctx, apm.Config{
		ServiceName: tc.ServiceName,
		Provider:    provider,
		Endpoint:    tc.OTLPEndpoint,
		Headers:     headers,
		Protocol:    tc.OTLPProtocol,
		Output:      os.Stderr,
	}, log)
	if err != nil {
		log.Warn(ctx, "tracing disabled", "error", err)
		tp = apm.NewEmptyTraceProvider()
	}

	metricOpts := []metrics.OptionFn{
		metrics.WithServiceName(tc.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	}
	switch {
	case provider == apm.HoneycombProvider:
		metricOpts = append(metricOpts, metrics.WithProviderConfig(
			metrics.NewHoneycombConfig(tc.OTLPEndpoint, headers["x-honeycomb-team"], tc.ServiceName)))
	case tc.OTLPEndpoint != "" && provider != apm.ZipkinProvider:
		metricOpts = append(metricOpts, metrics.WithProviderConfig(
			metrics.NewOtelCollectorConfig(tc.OTLPEndpoint, headers, metrics.InsecureOtel)))
	}
	mp, err := metrics.NewMetricProvider(metricOpts...)
	if err != nil {
		log.Warn(ctx, "metrics disabled", "error", err)
	} else {
		go metrics.ServePrometheusMetrics(
			metrics.WithPort(strconv.Itoa(tc.PrometheusPort)),
			metrics.WithLogger(log))
	}

	return func() {
		if mp != nil {
			_ = mp.Shutdown(context.Background())
		}
		if err := tp.Stop(); err != nil {
			log.Warn(context.Background(), "trace provider stop", "error", err)
		}
	}
}

func startHealth(ctx context.Context, cfg *config.Config, sr di.ServiceRegistry, log logger.LoggerInterface) *health.Server {
	srv := health.NewServer(cfg.App.HealthPort, version, log)

	srv.RegisterCheck("sources", func(context.Context) (bool, string) {
		enabled := 0
		for _, c := range pricingDI.GetRegistry(sr).AllConfigs() {
			if c.Enabled {
				enabled++
			}
		}
		return enabled > 0, fmt.Sprintf("%d enabled", enabled)
	})
	srv.RegisterCheck("store", func(ctx context.Context) (bool, string) {
		if err := pricingDI.GetStore(sr).Ping(ctx); err != nil {
			return false, err.Error()
		}
		return true, cfg.Store.Driver
	})

	if err := srv.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.App.HealthPort)
	}
	return srv
}

func runCLI(ctx context.Context, start func() error, stop func(), log logger.LoggerInterface) error {
	if err := start(); err != nil {
		return err
	}
	log.Info(ctx, "all modules started, scanning")

	<-ctx.Done()

	log.Info(context.Background(), "shutting down")
	stop()
	return nil
}

func runTUI(ctx context.Context, start func() error, stop func()) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := start(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		<-ctx.Done()
		stop()
		errCh <- nil
	}()

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		stop()
		return nil
	}
}
