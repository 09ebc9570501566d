package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func rowWithIV(iv *float64) OptionRow {
	return OptionRow{Symbol: "TXO", Strike: 23000, Side: SideCall, ImpliedVol: iv}
}

func TestResolveVolatility_OddCountMedian(t *testing.T) {
	rows := []OptionRow{
		rowWithIV(Float(0.30)),
		rowWithIV(Float(0.10)),
		rowWithIV(Float(0.20)),
	}
	res := ResolveVolatility(rows, DefaultFallbackVolatility)
	assert.InDelta(t, 0.20, res.Fallback, 1e-12)
	assert.Equal(t, VolFromChainMedian, res.Source)
	assert.Equal(t, 3, res.Usable)
}

func TestResolveVolatility_EvenCountUsesMeanOfMiddle(t *testing.T) {
	rows := []OptionRow{
		rowWithIV(Float(0.40)),
		rowWithIV(Float(0.16)),
		rowWithIV(Float(0.22)),
		rowWithIV(Float(0.18)),
	}
	res := ResolveVolatility(rows, DefaultFallbackVolatility)
	assert.InDelta(t, 0.20, res.Fallback, 1e-12)
}

func TestResolveVolatility_IgnoresUnusableIV(t *testing.T) {
	rows := []OptionRow{
		rowWithIV(nil),
		rowWithIV(Float(0)),
		rowWithIV(Float(-0.2)),
		rowWithIV(Float(math.NaN())),
		rowWithIV(Float(math.Inf(1))),
		rowWithIV(Float(0.25)),
	}
	res := ResolveVolatility(rows, DefaultFallbackVolatility)
	assert.InDelta(t, 0.25, res.Fallback, 1e-12)
	assert.Equal(t, 1, res.Usable)
}

func TestResolveVolatility_NoDataUsesConstant(t *testing.T) {
	rows := []OptionRow{rowWithIV(nil), rowWithIV(Float(0))}
	res := ResolveVolatility(rows, DefaultFallbackVolatility)
	assert.Equal(t, 0.20, res.Fallback)
	assert.Equal(t, VolFromConstant, res.Source)

	res = ResolveVolatility(nil, 0.35)
	assert.Equal(t, 0.35, res.Fallback)

	// constante inválida → default documentado
	res = ResolveVolatility(nil, 0)
	assert.Equal(t, DefaultFallbackVolatility, res.Fallback)
}

func TestVolatilityResolution_ForPrefersRowIV(t *testing.T) {
	res := VolatilityResolution{Fallback: 0.2, Source: VolFromConstant}
	assert.Equal(t, 0.31, res.For(rowWithIV(Float(0.31))))
	assert.Equal(t, 0.2, res.For(rowWithIV(nil)))
	assert.Equal(t, 0.2, res.For(rowWithIV(Float(math.NaN()))))
}

func TestResolveVolatility_InputOrderDoesNotMatter(t *testing.T) {
	a := []OptionRow{rowWithIV(Float(0.1)), rowWithIV(Float(0.5)), rowWithIV(Float(0.3)), rowWithIV(Float(0.2))}
	b := []OptionRow{a[3], a[1], a[0], a[2]}
	assert.Equal(t, ResolveVolatility(a, 0.2), ResolveVolatility(b, 0.2))
}
