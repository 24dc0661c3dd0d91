package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/dex-arbitrage-engine/business/arbitrage/di"
	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/infra"
	"github.com/fd1az/dex-arbitrage-engine/internal/config"
	"github.com/fd1az/dex-arbitrage-engine/internal/monolith"
)

// runScan performs a single scan of opts.scan and prints the result.
func runScan(ctx context.Context, mono monolith.Monolith, cfg *config.Config, opts options) error {
	base, quote, err := mono.AssetRegistry().ResolvePair(opts.scan)
	if err != nil {
		return err
	}

	investment := cfg.Engine.InvestmentDecimal()
	if opts.investment > 0 {
		investment = decimal.NewFromFloat(opts.investment)
	}
	minProfit := cfg.Engine.MinProfitDecimal()
	if opts.minProfit >= 0 {
		minProfit = decimal.NewFromFloat(opts.minProfit)
	}

	var scanOpts []app.ScanOption
	if opts.refresh {
		scanOpts = append(scanOpts, app.WithRefresh())
	}

	svc := arbitrageDI.GetScanService(mono.Services())
	res, err := svc.Scan(ctx, base, quote, investment, minProfit, scanOpts...)
	if err != nil {
		return fmt.Errorf("scan %s: %w", opts.scan, err)
	}

	if opts.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	reporter := infra.NewConsoleReporterTo(os.Stdout, false)
	reporter.Report(res)
	return nil
}
