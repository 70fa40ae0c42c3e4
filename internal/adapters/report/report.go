// Package report renders a domain.PerformanceMetrics snapshot to a
// terminal-friendly console report, grounded on the teacher's
// internal/adapters/notify/console.go section-based writer.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"

	"tradecore/internal/domain"
)

// Printer renders PerformanceMetrics reports to an io.Writer.
type Printer struct {
	out io.Writer
}

// NewPrinter constructs a Printer writing to stdout.
func NewPrinter() *Printer { return &Printer{out: os.Stdout} }

// NewPrinterTo constructs a Printer writing to w, for tests.
func NewPrinterTo(w io.Writer) *Printer { return &Printer{out: w} }

// Print renders the four report sections: Time Period, Portfolio
// Performance, Trade Statistics, Trade List. When metrics.NoTrades() the
// Trade Statistics/Trade List sections are replaced with the "NO TRADES
// EXECUTED" banner rather than showing vacuous zeros (§4.4, §8).
func (p *Printer) Print(symbol string, metrics domain.PerformanceMetrics) {
	p.printTimePeriod(metrics)
	p.printPortfolioPerformance(metrics)

	if metrics.NoTrades() {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, "=================================")
		fmt.Fprintln(p.out, "     NO TRADES EXECUTED")
		fmt.Fprintln(p.out, "=================================")
		fmt.Fprintln(p.out)
		return
	}

	p.printTradeStatistics(metrics)
	p.printTradeList(symbol, metrics)
}

func (p *Printer) printTimePeriod(m domain.PerformanceMetrics) {
	fmt.Fprintln(p.out, "\n=== Time Period ===")
	fmt.Fprintf(p.out, "  Start:    %s\n", m.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(p.out, "  End:      %s\n", m.EndTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(p.out, "  Duration: %s\n", m.Duration)
}

func (p *Printer) printPortfolioPerformance(m domain.PerformanceMetrics) {
	fmt.Fprintln(p.out, "\n=== Portfolio Performance ===")
	table := tablewriter.NewWriter(p.out)
	table.Header("Metric", "Value")
	table.Append("Initial Capital", m.InitialCapital.StringFixed(2))
	table.Append("Final Capital", m.FinalCapital.StringFixed(2))
	table.Append("Equity Peak", m.EquityPeak.StringFixed(2))
	table.Append("Total Return", fmt.Sprintf("%.2f%%", m.TotalReturn*100))
	table.Append("Buy & Hold Return", fmt.Sprintf("%.2f%%", m.BuyHoldReturn*100))
	table.Append("Sharpe Ratio", fmt.Sprintf("%.4f", m.SharpeRatio))
	table.Append("Max Drawdown", fmt.Sprintf("%.2f%%", m.MaxDrawdown*100))
	table.Append("Exposure Time", fmt.Sprintf("%.2f%%", m.ExposureTimePct*100))
	table.Render()
}

func (p *Printer) printTradeStatistics(m domain.PerformanceMetrics) {
	fmt.Fprintln(p.out, "\n=== Trade Statistics ===")
	table := tablewriter.NewWriter(p.out)
	table.Header("Metric", "Value")
	table.Append("Num Trades", fmt.Sprintf("%d", m.NumTrades))
	table.Append("Win Rate", fmt.Sprintf("%.2f%%", m.WinRate*100))
	table.Render()
}

func (p *Printer) printTradeList(symbol string, m domain.PerformanceMetrics) {
	fmt.Fprintln(p.out, "\n=== Trade List ===")
	table := tablewriter.NewWriter(p.out)
	table.Header("#", "Symbol", "Direction", "Qty", "Price", "Commission", "Timestamp")
	for i, fill := range m.Trades {
		table.Append(
			fmt.Sprintf("%d", i+1),
			symbol,
			fill.Direction.String(),
			fill.Quantity.String(),
			fill.Price.StringFixed(2),
			fill.Commission.StringFixed(4),
			fill.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}
	table.Render()
}
