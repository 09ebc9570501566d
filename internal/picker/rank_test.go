package picker_test

import (
	"math"
	"testing"

	"github.com/alejandrodnm/txopicker/internal/domain"
	"github.com/alejandrodnm/txopicker/internal/picker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cand(strike float64, side domain.Side, leverage float64, src domain.PriceSource, volume int64, T float64) domain.Candidate {
	return domain.Candidate{
		OptionRow: domain.OptionRow{
			Symbol:        "TXO",
			ContractMonth: "202406",
			Strike:        strike,
			Side:          side,
			TradedVolume:  volume,
		},
		ResolvedPrice:     100,
		PriceSource:       src,
		ImpliedLeverage:   leverage,
		TimeToExpiryYears: T,
	}
}

func TestRank_ClosestLeverageFirst(t *testing.T) {
	cands := []domain.Candidate{
		cand(21000, domain.SideCall, 2.0, domain.SourceMarket, 10, 0.1),
		cand(22000, domain.SideCall, 4.9, domain.SourceMarket, 10, 0.1),
		cand(23000, domain.SideCall, 5.0, domain.SourceMarket, 10, 0.1),
		cand(24000, domain.SideCall, 5.1, domain.SourceMarket, 10, 0.1),
		cand(25000, domain.SideCall, 9.0, domain.SourceMarket, 10, 0.1),
	}

	best, ranked, err := picker.Rank(cands, 5.0, 10)
	require.NoError(t, err)

	require.NotNil(t, best)
	assert.Equal(t, 5.0, best.ImpliedLeverage)
	assert.Equal(t, 0.0, best.DistanceToTarget)
	require.Len(t, ranked, 5)
	assert.Equal(t, 5.0, ranked[0].ImpliedLeverage)
	// 4.9 y 5.1 empatan en distancia (grilla de 1e-9): gana el strike menor
	assert.Equal(t, 22000.0, ranked[1].Strike)
	assert.Equal(t, 24000.0, ranked[2].Strike)
	assert.Equal(t, 9.0, ranked[3].ImpliedLeverage)
	assert.Equal(t, 2.0, ranked[4].ImpliedLeverage)
}

func TestRank_TieBreakMarketBeforeTheoretical(t *testing.T) {
	cands := []domain.Candidate{
		cand(23000, domain.SideCall, 4.0, domain.SourceTheoretical, 0, 0.1),
		cand(23100, domain.SideCall, 6.0, domain.SourceMarket, 1, 0.1),
	}
	best, _, err := picker.Rank(cands, 5.0, 10)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Equal(t, domain.SourceMarket, best.PriceSource)
	assert.Equal(t, 23100.0, best.Strike)
}

func TestRank_TieBreakVolumeThenExpiry(t *testing.T) {
	cands := []domain.Candidate{
		cand(23000, domain.SideCall, 5.5, domain.SourceMarket, 10, 0.1),
		cand(23100, domain.SideCall, 4.5, domain.SourceMarket, 99, 0.1),
		cand(23200, domain.SideCall, 5.5, domain.SourceMarket, 99, 0.3),
	}
	_, ranked, err := picker.Rank(cands, 5.0, 10)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, 23200.0, ranked[0].Strike, "same volume: longer-dated first")
	assert.Equal(t, 23100.0, ranked[1].Strike)
	assert.Equal(t, 23000.0, ranked[2].Strike, "lower volume last")
}

func TestRank_CallBeforePutOnFullTie(t *testing.T) {
	cands := []domain.Candidate{
		cand(23000, domain.SidePut, 5, domain.SourceMarket, 1, 0.1),
		cand(23000, domain.SideCall, 5, domain.SourceMarket, 1, 0.1),
	}
	best, _, err := picker.Rank(cands, 5.0, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.SideCall, best.Side)
}

func TestRank_EmptyInput(t *testing.T) {
	best, ranked, err := picker.Rank(nil, 5.0, 10)
	require.NoError(t, err)
	assert.Nil(t, best)
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)
}

func TestRank_TruncatesToTopN(t *testing.T) {
	var cands []domain.Candidate
	for i := 0; i < 30; i++ {
		cands = append(cands, cand(20000+float64(i)*100, domain.SideCall, float64(i), domain.SourceMarket, 1, 0.1))
	}
	best, ranked, err := picker.Rank(cands, 7, 5)
	require.NoError(t, err)
	assert.Len(t, ranked, 5)
	assert.Equal(t, 7.0, best.ImpliedLeverage)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	cands := []domain.Candidate{
		cand(23000, domain.SideCall, 9, domain.SourceMarket, 1, 0.1),
		cand(23100, domain.SideCall, 5, domain.SourceMarket, 1, 0.1),
	}
	_, _, err := picker.Rank(cands, 5.0, 10)
	require.NoError(t, err)
	assert.Equal(t, 23000.0, cands[0].Strike)
	assert.Equal(t, 0.0, cands[0].DistanceToTarget)
}

func TestRank_SetsConfidence(t *testing.T) {
	cands := []domain.Candidate{cand(23000, domain.SideCall, 5, domain.SourceTheoretical, 0, 0.1)}
	best, _, err := picker.Rank(cands, 5.0, 10)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, best.Confidence, 1e-12)
}

func TestRank_NearTiesAreTransitive(t *testing.T) {
	// distancias 0, 0.6e-9 y 1.2e-9: las dos últimas caen en la misma celda de la grilla,
	// así que el desempate por origen del precio decide entre ellas
	cands := []domain.Candidate{
		cand(23200, domain.SideCall, 5+0.6e-9, domain.SourceTheoretical, 0, 0.1),
		cand(23000, domain.SideCall, 5, domain.SourceTheoretical, 0, 0.1),
		cand(23400, domain.SideCall, 5+1.2e-9, domain.SourceMarket, 1, 0.1),
	}
	_, ranked, err := picker.Rank(cands, 5.0, 10)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, 23000.0, ranked[0].Strike)
	assert.Equal(t, 23400.0, ranked[1].Strike, "market wins inside the same distance cell")
	assert.Equal(t, 23200.0, ranked[2].Strike)
}

func TestRank_InvalidTargetIsConfigError(t *testing.T) {
	cands := []domain.Candidate{cand(23000, domain.SideCall, 5, domain.SourceMarket, 1, 0.1)}
	for _, target := range []float64{0, -2, math.NaN(), math.Inf(1)} {
		best, ranked, err := picker.Rank(cands, target, 10)
		require.Error(t, err, target)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		assert.Nil(t, best)
		assert.Nil(t, ranked)
	}
}
