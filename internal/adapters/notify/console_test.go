package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/txopicker/internal/adapters/notify"
	"github.com/alejandrodnm/txopicker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeCandidate(strike float64, side domain.Side, price, delta, lev float64) domain.Candidate {
	return domain.Candidate{
		OptionRow: domain.OptionRow{
			Symbol:        "TXO",
			ContractMonth: "202406",
			Strike:        strike,
			Side:          side,
			QuotedPrice:   domain.Float(price),
			TradedVolume:  1200,
			ExpiryDate:    time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		ResolvedPrice:     price,
		PriceSource:       domain.SourceMarket,
		TheoreticalPrice:  price - 3,
		Volatility:        0.2,
		Delta:             delta,
		DeltaAbs:          delta,
		ImpliedLeverage:   lev,
		Moneyness:         domain.OTM,
		TimeToExpiryYears: 30.0 / 365.0,
		Confidence:        0.9,
	}
}

func makeResult() domain.SearchResult {
	call := makeCandidate(23000, domain.SideCall, 123.4, 0.54, 5.02)
	put := makeCandidate(22800, domain.SidePut, 98, -0.41, 4.9)
	put.Delta = -0.41
	return domain.SearchResult{
		Request:    domain.SearchRequest{Month: "202406", TargetLeverage: 5},
		Spot:       domain.SpotContext{SpotPrice: 23000, ValuationDate: time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC), RiskFreeRate: 0.02},
		SearchedAt: time.Now(),
		Best:       &call,
		BestCall:   &call,
		BestPut:    &put,
		Ranked:     []domain.Candidate{call, put},
		Evaluated:  10,
		Dropped:    8,
		Volatility: map[domain.Side]domain.VolatilityResolution{
			domain.SideCall: {Fallback: 0.2, Source: domain.VolFromConstant},
		},
	}
}

func TestConsole_Notify_Compact(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false, false)

	require.NoError(t, n.Notify(context.Background(), makeResult()))

	out := buf.String()
	assert.Contains(t, out, "202406")
	assert.Contains(t, out, "C23000")
	assert.Contains(t, out, "P22800")
	assert.Contains(t, out, "TXO 202406 C23000 BUY 1")
	assert.Contains(t, out, "NT$6170")
}

func TestConsole_Notify_Table(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true, false)

	require.NoError(t, n.Notify(context.Background(), makeResult()))

	out := buf.String()
	assert.Contains(t, out, "BEST CALL")
	assert.Contains(t, out, "BEST PUT")
	assert.Contains(t, out, "TXO 202406 P22800 BUY 1")
	assert.Contains(t, out, "5.02x")
	assert.Contains(t, out, "limit 123")
}

func TestConsole_Notify_Validate(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false, true)

	require.NoError(t, n.Notify(context.Background(), makeResult()))

	out := buf.String()
	assert.Contains(t, out, "VALIDATION")
	assert.Contains(t, out, "#1: TXO 202406 C23000")
	assert.Contains(t, out, "#2: TXO 202406 P22800")
	assert.Contains(t, out, "RESOLVED PRICE")
}

func TestConsole_Notify_Empty(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, true, true)

	err := n.Notify(context.Background(), domain.SearchResult{
		Request:   domain.SearchRequest{Month: "202406", TargetLeverage: 5},
		Evaluated: 4,
		Dropped:   4,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "no candidates")
	assert.Contains(t, buf.String(), "dropped:4")
}

func TestConsole_PrintHistory(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewConsoleWriter(&buf, false, false)

	n.PrintHistory([]domain.SearchResult{makeResult(), {Request: domain.SearchRequest{Month: "202407", TargetLeverage: 3}}})

	out := buf.String()
	assert.Contains(t, out, "TXO 202406 C23000")
	assert.Contains(t, out, "202407")
}

func TestConsole_PrintHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf, false, false).PrintHistory(nil)
	assert.Contains(t, buf.String(), "No searches stored")
}
