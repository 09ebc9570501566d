package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/txopicker/internal/domain"
	"github.com/olekukonko/tablewriter"
)

const validateTop = 3

// Console implementa ports.Notifier.
type Console struct {
	out        io.Writer
	multiplier int64
	table      bool
	validate   bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(multiplier int64, table, validate bool) *Console {
	return &Console{out: os.Stdout, multiplier: multiplier, table: table, validate: validate}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table, validate bool) *Console {
	return &Console{out: w, multiplier: domain.ContractMultiplier, table: table, validate: validate}
}

// Notify imprime el resultado en el modo configurado.
func (c *Console) Notify(_ context.Context, res domain.SearchResult) error {
	if res.Empty() {
		fmt.Fprintf(c.out, "[%s] %s no candidates (evaluated:%d dropped:%d faults:%d)\n",
			clock(res.SearchedAt), monthLabel(res.Request.Month), res.Evaluated, res.Dropped, res.Faults)
		return nil
	}

	if c.table {
		c.printFull(res)
	} else {
		c.printCompact(res)
	}

	if c.validate {
		c.printValidation(res)
	}
	return nil
}

// printCompact imprime el mejor candidato y el mejor de cada lado en una línea.
func (c *Console) printCompact(res domain.SearchResult) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s spot %.2f target %.1fx → %s",
		clock(res.SearchedAt), monthLabel(res.Request.Month), res.Spot.SpotPrice,
		res.Request.TargetLeverage, shortCandidate(*res.Best))

	if res.Request.Side == domain.SideBoth {
		for _, b := range []*domain.Candidate{res.BestCall, res.BestPut} {
			if b != nil && !sameContract(*b, *res.Best) {
				fmt.Fprintf(&sb, " | %s", shortCandidate(*b))
			}
		}
	}
	if res.Faults > 0 {
		fmt.Fprintf(&sb, " | faults:%d", res.Faults)
	}

	fmt.Fprintln(c.out, sb.String())
	fmt.Fprintf(c.out, "  order: %s  (cost NT$%s)\n",
		res.Best.SuggestedOrder(), res.Best.PremiumCost(c.multiplier).StringFixed(0))
}

// printFull imprime la tabla del ranking y las tarjetas por lado.
func (c *Console) printFull(res domain.SearchResult) {
	fmt.Fprintf(c.out, "\n[%s] %s  spot %.2f  valuation %s  r=%.2f%%  target %.2fx%s\n",
		clock(res.SearchedAt), monthLabel(res.Request.Month), res.Spot.SpotPrice,
		res.Spot.ValuationDate.Format("2006-01-02"), res.Spot.RiskFreeRate*100,
		res.Request.TargetLeverage, modeLabel(res.Request.Mode))
	fmt.Fprintf(c.out, "  evaluated:%d  ranked:%d  dropped:%d  faults:%d  %s\n",
		res.Evaluated, len(res.Ranked), res.Dropped, res.Faults, volLabel(res.Volatility))

	c.printTable(res.Ranked)

	for _, card := range []struct {
		title string
		cand  *domain.Candidate
	}{
		{"BEST CALL", res.BestCall},
		{"BEST PUT", res.BestPut},
	} {
		if card.cand == nil {
			continue
		}
		c.printCard(card.title, *card.cand)
	}
	fmt.Fprintln(c.out)
}

// printTable imprime el ranking.
func (c *Console) printTable(ranked []domain.Candidate) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Contract", "Price", "Src", "Theo", "IV", "Delta", "Lev", "Dist", "Money", "Vol", "Conf")

	for i, cand := range ranked {
		table.Append(
			fmt.Sprintf("%d", i+1),
			contractLabel(cand),
			fmt.Sprintf("%.1f", cand.ResolvedPrice),
			sourceIcon(cand.PriceSource),
			fmt.Sprintf("%.1f", cand.TheoreticalPrice),
			fmt.Sprintf("%.1f%%", cand.Volatility*100),
			fmt.Sprintf("%+.3f", cand.Delta),
			fmt.Sprintf("%.2fx", cand.ImpliedLeverage),
			fmt.Sprintf("%.2f", cand.DistanceToTarget),
			string(cand.Moneyness),
			fmt.Sprintf("%d", cand.TradedVolume),
			fmt.Sprintf("%.0f%%", cand.Confidence*100),
		)
	}

	table.Render()

	fmt.Fprintln(c.out, "  Src: M = market quote | T = Black-Scholes theoretical")
	fmt.Fprintln(c.out, "  Lev = |delta|·spot/price | Dist = |Lev − target| | Conf = closeness × source weight")
}

// printCard imprime el resumen del mejor candidato de un lado.
func (c *Console) printCard(title string, cand domain.Candidate) {
	fmt.Fprintf(c.out, "\n=== %s ===\n", title)
	fmt.Fprintf(c.out, "  %-10s %s  (%s, %d days)\n", "contract:", contractLabel(cand),
		cand.ExpiryDate.Format("2006-01-02"), int(cand.TimeToExpiryYears*365+0.5))
	fmt.Fprintf(c.out, "  %-10s %.1f (%s)  limit %s\n", "price:", cand.ResolvedPrice,
		cand.PriceSource, cand.LimitPrice().String())
	fmt.Fprintf(c.out, "  %-10s %.2fx  delta %+.3f  %s\n", "leverage:", cand.ImpliedLeverage,
		cand.Delta, cand.Moneyness)
	fmt.Fprintf(c.out, "  %-10s NT$%s per contract\n", "cost:", cand.PremiumCost(c.multiplier).StringFixed(0))
	fmt.Fprintf(c.out, "  %-10s %s\n", "order:", cand.SuggestedOrder())
}

// printValidation imprime el cálculo paso a paso de los top 3.
func (c *Console) printValidation(res domain.SearchResult) {
	top := res.Ranked
	if len(top) > validateTop {
		top = top[:validateTop]
	}

	fmt.Fprintln(c.out, "=== VALIDATION: step-by-step ===")

	for i, cand := range top {
		fmt.Fprintf(c.out, "\n--- #%d: %s  [%s] ---\n", i+1, contractLabel(cand), cand.PriceSource)

		fmt.Fprintf(c.out, "\n  1. INPUTS:\n")
		fmt.Fprintf(c.out, "     S=%.2f  K=%s  T=%.6f y  r=%.4f  sigma=%.4f\n",
			res.Spot.SpotPrice, domain.FormatStrike(cand.Strike), cand.TimeToExpiryYears,
			res.Spot.RiskFreeRate, cand.Volatility)
		if cand.ImpliedVol != nil {
			fmt.Fprintf(c.out, "     sigma from row IV (%.4f)\n", *cand.ImpliedVol)
		} else if v, ok := res.Volatility[cand.Side]; ok {
			fmt.Fprintf(c.out, "     sigma from fallback (%s, %d rows with IV)\n", v.Source, v.Usable)
		}

		fmt.Fprintf(c.out, "\n  2. PRICING (%s):\n", cand.Pricing)
		fmt.Fprintf(c.out, "     theoretical=%.4f  delta=%+.4f\n", cand.TheoreticalPrice, cand.Delta)
		if cand.QuotedPrice != nil {
			fmt.Fprintf(c.out, "     quoted=%.4f  volume=%d\n", *cand.QuotedPrice, cand.TradedVolume)
		} else {
			fmt.Fprintf(c.out, "     quoted=-  volume=%d\n", cand.TradedVolume)
		}
		fmt.Fprintf(c.out, "     >>> RESOLVED PRICE: %.4f (%s)\n", cand.ResolvedPrice, cand.PriceSource)

		fmt.Fprintf(c.out, "\n  3. LEVERAGE:\n")
		fmt.Fprintf(c.out, "     |%.4f| × %.2f / %.4f = %.4fx\n",
			cand.Delta, res.Spot.SpotPrice, cand.ResolvedPrice, cand.ImpliedLeverage)
		fmt.Fprintf(c.out, "     distance to %.2fx: %.4f  confidence: %.0f%%\n",
			res.Request.TargetLeverage, cand.DistanceToTarget, cand.Confidence*100)

		fmt.Fprintf(c.out, "\n  4. ORDER:\n")
		fmt.Fprintf(c.out, "     %s  limit %s  cost NT$%s\n",
			cand.SuggestedOrder(), cand.LimitPrice().String(), cand.PremiumCost(c.multiplier).StringFixed(0))
	}
	fmt.Fprintln(c.out)
}

// PrintHistory imprime búsquedas guardadas, más recientes primero.
func (c *Console) PrintHistory(results []domain.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(c.out, "\n  No searches stored yet.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("When", "Month", "Side", "Target", "Spot", "Best", "Price", "Lev", "Ranked")

	for _, r := range results {
		best, price, lev := "-", "-", "-"
		if r.Best != nil {
			best = contractLabel(*r.Best)
			price = fmt.Sprintf("%.1f %s", r.Best.ResolvedPrice, sourceIcon(r.Best.PriceSource))
			lev = fmt.Sprintf("%.2fx", r.Best.ImpliedLeverage)
		}
		table.Append(
			r.SearchedAt.Local().Format("01-02 15:04"),
			monthLabel(r.Request.Month),
			sideLabel(r.Request.Side),
			fmt.Sprintf("%.1fx", r.Request.TargetLeverage),
			fmt.Sprintf("%.0f", r.Spot.SpotPrice),
			best,
			price,
			lev,
			fmt.Sprintf("%d", len(r.Ranked)),
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
}

// --- helpers ---

func clock(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Local().Format("15:04:05")
}

func monthLabel(m string) string {
	if m == "" {
		return "all months"
	}
	return m
}

func modeLabel(m domain.Mode) string {
	if m == "" {
		return ""
	}
	return fmt.Sprintf(" (%s)", m)
}

func sideLabel(s domain.Side) string {
	if s == domain.SideBoth {
		return "BOTH"
	}
	return string(s)
}

func sourceIcon(s domain.PriceSource) string {
	if s == domain.SourceMarket {
		return "M"
	}
	return "T"
}

func contractLabel(c domain.Candidate) string {
	return fmt.Sprintf("%s %s %s%s", c.Symbol, c.ContractMonth, c.Side.Letter(), domain.FormatStrike(c.Strike))
}

func shortCandidate(c domain.Candidate) string {
	return fmt.Sprintf("%s%s @%.1f%s lev %.2fx Δ%.2f",
		c.Side.Letter(), domain.FormatStrike(c.Strike), c.ResolvedPrice,
		sourceIcon(c.PriceSource), c.ImpliedLeverage, c.Delta)
}

func sameContract(a, b domain.Candidate) bool {
	return a.Side == b.Side && a.Strike == b.Strike && a.ContractMonth == b.ContractMonth
}

func volLabel(v map[domain.Side]domain.VolatilityResolution) string {
	var parts []string
	for _, side := range []domain.Side{domain.SideCall, domain.SidePut} {
		res, ok := v[side]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("σ%s=%.1f%%(%s)", side.Letter(), res.Fallback*100, res.Source))
	}
	return strings.Join(parts, " ")
}
