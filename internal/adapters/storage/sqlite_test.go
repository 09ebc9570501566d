package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/txopicker/internal/adapters/storage"
	"github.com/alejandrodnm/txopicker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeCandidate(strike float64, side domain.Side, lev float64) domain.Candidate {
	return domain.Candidate{
		OptionRow: domain.OptionRow{
			Symbol:        "TXO",
			ContractMonth: "202406",
			Strike:        strike,
			Side:          side,
			QuotedPrice:   domain.Float(120),
			TradedVolume:  500,
			ExpiryDate:    time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		ResolvedPrice:     120,
		PriceSource:       domain.SourceMarket,
		TheoreticalPrice:  118.5,
		Pricing:           domain.StatusBlackScholes,
		Volatility:        0.2,
		Delta:             0.45,
		DeltaAbs:          0.45,
		ImpliedLeverage:   lev,
		Moneyness:         domain.OTM,
		TimeToExpiryYears: 30.0 / 365.0,
		DistanceToTarget:  0.1,
		Confidence:        0.98,
	}
}

func makeResult(id string, at time.Time) domain.SearchResult {
	c1 := makeCandidate(23200, domain.SideCall, 5.1)
	c2 := makeCandidate(22800, domain.SidePut, 4.8)
	c2.Delta = -0.45
	c2.QuotedPrice = nil
	c2.PriceSource = domain.SourceTheoretical
	return domain.SearchResult{
		ID:         id,
		Request:    domain.SearchRequest{Month: "202406", Side: domain.SideBoth, Mode: domain.ModeShort, TargetLeverage: 5},
		Spot:       domain.SpotContext{SpotPrice: 23000, ValuationDate: time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC), RiskFreeRate: 0.02},
		SearchedAt: at,
		Best:       &c1,
		BestCall:   &c1,
		BestPut:    &c2,
		Ranked:     []domain.Candidate{c1, c2},
		Evaluated:  40,
		Dropped:    38,
		Faults:     1,
	}
}

func TestSQLiteStorage_SaveAndGetHistory(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, db.SaveSearch(context.Background(), makeResult("s-1", now)))

	history, err := db.GetHistory(context.Background(), now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, history, 1)

	h := history[0]
	assert.Equal(t, "s-1", h.ID)
	assert.True(t, now.Equal(h.SearchedAt))
	assert.Equal(t, "202406", h.Request.Month)
	assert.Equal(t, domain.SideBoth, h.Request.Side)
	assert.Equal(t, domain.ModeShort, h.Request.Mode)
	assert.Equal(t, 5.0, h.Request.TargetLeverage)
	assert.Equal(t, 23000.0, h.Spot.SpotPrice)
	assert.Equal(t, time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC), h.Spot.ValuationDate)
	assert.Equal(t, 40, h.Evaluated)
	assert.Equal(t, 38, h.Dropped)
	assert.Equal(t, 1, h.Faults)

	require.Len(t, h.Ranked, 2)
	require.NotNil(t, h.Best)
	assert.Equal(t, 23200.0, h.Best.Strike)
	assert.Equal(t, 5.1, h.Best.ImpliedLeverage)
	require.NotNil(t, h.Best.QuotedPrice)
	assert.Equal(t, 120.0, *h.Best.QuotedPrice)

	require.NotNil(t, h.BestPut)
	assert.Equal(t, domain.SidePut, h.BestPut.Side)
	assert.Nil(t, h.BestPut.QuotedPrice)
	assert.Equal(t, domain.SourceTheoretical, h.BestPut.PriceSource)
	assert.Equal(t, 0.45, h.BestPut.DeltaAbs)
}

func TestSQLiteStorage_EmptyResult(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	err = db.SaveSearch(context.Background(), domain.SearchResult{
		Request:    domain.SearchRequest{Month: "202407", TargetLeverage: 3},
		SearchedAt: now,
		Evaluated:  12,
		Dropped:    12,
	})
	require.NoError(t, err)

	history, err := db.GetHistory(context.Background(), now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotEmpty(t, history[0].ID, "se asigna un ID si falta")
	assert.Nil(t, history[0].Best)
	assert.Empty(t, history[0].Ranked)
}

func TestSQLiteStorage_GetHistory_EmptyRange(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	history, err := db.GetHistory(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSQLiteStorage_HistoryNewestFirst(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, db.SaveSearch(ctx, makeResult("old", now.Add(-2*time.Hour))))
	require.NoError(t, db.SaveSearch(ctx, makeResult("new", now.Add(-time.Hour))))
	require.NoError(t, db.SaveSearch(ctx, makeResult("out", now.Add(-48*time.Hour))))

	history, err := db.GetHistory(ctx, now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "new", history[0].ID)
	assert.Equal(t, "old", history[1].ID)
}

func TestSQLiteStorage_DuplicateIDFails(t *testing.T) {
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveSearch(ctx, makeResult("dup", time.Now())))
	assert.Error(t, db.SaveSearch(ctx, makeResult("dup", time.Now())))
}

func TestSQLiteStorage_PrunesOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()
	now := time.Now().UTC()

	db, err := storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	require.NoError(t, db.SaveSearch(ctx, makeResult("stale", now.Add(-40*24*time.Hour))))
	require.NoError(t, db.SaveSearch(ctx, makeResult("fresh", now.Add(-time.Hour))))
	require.NoError(t, db.Close())

	db, err = storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	defer db.Close()

	history, err := db.GetHistory(ctx, now.Add(-365*24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "fresh", history[0].ID)
}
