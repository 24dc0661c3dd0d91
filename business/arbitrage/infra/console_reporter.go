// Package infra contains the reporters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/app"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
)

var _ app.Reporter = (*ConsoleReporter)(nil)

const rule = "================================================================================"

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
	// quiet suppresses scans without opportunities.
	quiet   bool
	breaker map[string]string
}

// NewConsoleReporter creates a reporter writing to stdout.
func NewConsoleReporter(quiet bool) *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout, quiet)
}

// NewConsoleReporterTo creates a reporter writing to w.
func NewConsoleReporterTo(w io.Writer, quiet bool) *ConsoleReporter {
	return &ConsoleReporter{out: w, quiet: quiet, breaker: map[string]string{}}
}

// Start prints the banner.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "DEX Arbitrage Engine Started")
	fmt.Fprintln(r.out, "============================")
	return nil
}

// Report prints the quotes and opportunities of one scan.
func (r *ConsoleReporter) Report(res *app.ScanResult) {
	if res == nil || (r.quiet && len(res.Opportunities) == 0) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "SCAN %s on %s", res.Pair, res.Network)
	if res.BlockNumber > 0 {
		fmt.Fprintf(r.out, " @ block #%d", res.BlockNumber)
	}
	fmt.Fprintf(r.out, "  (%s, %s)\n", res.ScannedAt.Format(time.RFC3339), res.Duration.Round(time.Millisecond))
	fmt.Fprintln(r.out, rule)

	slugs := make([]string, 0, len(res.Quotes))
	for slug := range res.Quotes {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	fmt.Fprintln(r.out, "QUOTES")
	for _, slug := range slugs {
		q := res.Quotes[slug]
		flag := ""
		if q.IsFallback {
			flag = "  [fallback]"
		}
		fmt.Fprintf(r.out, "  %-18s %16s  fee %5s%%  liq $%14s  gas $%8s%s\n",
			slug,
			q.Price.StringFixed(6),
			q.FeeRate.Shift(2).StringFixed(2),
			q.LiquidityUSD.StringFixed(0),
			q.GasEstimateUSD.StringFixed(2),
			flag)
	}

	if res.Message != "" {
		fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
		fmt.Fprintf(r.out, "  %s\n", res.Message)
	}

	for i, o := range res.Opportunities {
		fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
		fmt.Fprintf(r.out, "OPPORTUNITY #%d  %s\n", i+1, o.ID)
		fmt.Fprintf(r.out, "  Route:          buy %s @ %s -> sell %s @ %s\n",
			o.BuySource, o.BuyPrice.StringFixed(6), o.SellSource, o.SellPrice.StringFixed(6))
		fmt.Fprintf(r.out, "  Difference:     %s%%\n", o.PriceDifferencePercent.StringFixed(3))
		fmt.Fprintf(r.out, "  Impact:         buy %s%% / sell %s%%\n",
			o.BuyImpactPercent.StringFixed(3), o.SellImpactPercent.StringFixed(3))
		fmt.Fprintf(r.out, "  Investment:     %s\n", o.InvestmentAmount.StringFixed(2))
		fmt.Fprintf(r.out, "  Gross:          %s (%s%%)\n", o.GrossProfit.StringFixed(4), o.GrossProfitPercent.StringFixed(3))
		fmt.Fprintf(r.out, "  Trading fees:   -%s\n", o.TradingFees.StringFixed(4))
		fmt.Fprintf(r.out, "  Gas:            -%s\n", o.GasFee.StringFixed(4))
		fmt.Fprintf(r.out, "  Platform fee:   -%s\n", o.PlatformFee.StringFixed(4))
		fmt.Fprintf(r.out, "  Net:            %s (%s%%)\n", o.NetProfit.StringFixed(4), o.NetProfitPercent.StringFixed(3))
		if o.UsesFallback {
			fmt.Fprintln(r.out, "  Note:           priced from fallback data")
		}
	}
	fmt.Fprintln(r.out, rule)
}

// UpdateSources prints breaker transitions only.
func (r *ConsoleReporter) UpdateSources(sources []app.SourceStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sources {
		prev, seen := r.breaker[s.Slug]
		r.breaker[s.Slug] = s.Breaker
		if seen && prev != s.Breaker {
			fmt.Fprintf(r.out, "[%s] source %s: breaker %s -> %s\n",
				time.Now().Format("15:04:05"), s.Slug, prev, s.Breaker)
		}
	}
}

// UpdateConnectionStatus prints failures; successful scans are reported by Report.
func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	if connected {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "[%s] %s: scan failed\n", time.Now().Format("15:04:05"), name)
}

// Stop prints the closing line.
func (r *ConsoleReporter) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "DEX Arbitrage Engine Stopped")
	return nil
}

func chainLabel(id uint64) string {
	return asset.ChainName(id)
}
