package domain

import (
	"math"

	"github.com/montanaflynn/stats"
)

// DefaultFallbackVolatility es la sigma usada cuando ninguna fila trae IV utilizable.
// Es un default documentado (20%), no una estimación.
const DefaultFallbackVolatility = 0.20

// VolatilitySource indica de dónde salió la volatilidad de fallback.
type VolatilitySource string

const (
	VolFromChainMedian VolatilitySource = "chain_median"
	VolFromConstant    VolatilitySource = "constant"
)

// VolatilityResolution es el resultado del resolver para un conjunto (vencimiento, lado).
type VolatilityResolution struct {
	Fallback float64
	Source   VolatilitySource
	Usable   int // filas con IV propia
}

// For devuelve la volatilidad a usar para la fila: su IV si es utilizable, si no el fallback.
func (v VolatilityResolution) For(row OptionRow) float64 {
	if iv, ok := usableIV(row); ok {
		return iv
	}
	return v.Fallback
}

// ResolveVolatility calcula el fallback del conjunto de filas: la mediana de las IV
// presentes, finitas y positivas (con cantidad par, media de los dos valores centrales);
// si no hay ninguna, constant. Determinista para el mismo input.
func ResolveVolatility(rows []OptionRow, constant float64) VolatilityResolution {
	if constant <= 0 || math.IsNaN(constant) || math.IsInf(constant, 0) {
		constant = DefaultFallbackVolatility
	}

	ivs := make(stats.Float64Data, 0, len(rows))
	for _, r := range rows {
		if iv, ok := usableIV(r); ok {
			ivs = append(ivs, iv)
		}
	}

	if len(ivs) == 0 {
		return VolatilityResolution{Fallback: constant, Source: VolFromConstant}
	}

	median, err := stats.Median(ivs)
	if err != nil || median <= 0 {
		return VolatilityResolution{Fallback: constant, Source: VolFromConstant, Usable: len(ivs)}
	}
	return VolatilityResolution{Fallback: median, Source: VolFromChainMedian, Usable: len(ivs)}
}

func usableIV(r OptionRow) (float64, bool) {
	if r.ImpliedVol == nil {
		return 0, false
	}
	iv := *r.ImpliedVol
	if math.IsNaN(iv) || math.IsInf(iv, 0) || iv <= 0 {
		return 0, false
	}
	return iv, true
}
