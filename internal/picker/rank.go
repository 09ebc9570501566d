package picker

import (
	"fmt"
	"math"
	"sort"

	"github.com/alejandrodnm/txopicker/internal/domain"
)

// distanceGrid: las distancias se comparan redondeadas a 1e-9; dentro de la misma celda
// son empate. Redondear a una grilla fija mantiene el empate transitivo.
const distanceGrid = 1e9

// Rank ordena los candidatos por distancia al apalancamiento objetivo y devuelve el mejor
// y los topN primeros. Sin candidatos devuelve (nil, []), no un error.
// Un target no finito o <= 0 devuelve un error que envuelve domain.ErrInvalidConfig.
//
// Desempate ante igual distancia: MARKET antes que THEORETICAL, luego mayor volumen,
// luego vencimiento más largo, luego strike menor y CALL antes que PUT.
func Rank(cands []domain.Candidate, target float64, n int) (*domain.Candidate, []domain.Candidate, error) {
	if !isFinite(target) || target <= 0 {
		return nil, nil, fmt.Errorf("picker.Rank: target must be > 0, got %v: %w", target, domain.ErrInvalidConfig)
	}
	best, ranked := topN(sortByDistance(cands, target), n)
	return best, ranked, nil
}

// sortByDistance devuelve una copia ordenada con DistanceToTarget y Confidence completos.
func sortByDistance(cands []domain.Candidate, target float64) []domain.Candidate {
	out := make([]domain.Candidate, len(cands))
	copy(out, cands)
	for i := range out {
		out[i].DistanceToTarget = math.Abs(out[i].ImpliedLeverage - target)
		out[i].Confidence = domain.Confidence(out[i], target)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

func less(a, b domain.Candidate) bool {
	if da, db := distanceKey(a.DistanceToTarget), distanceKey(b.DistanceToTarget); da != db {
		return da < db
	}
	if a.PriceSource != b.PriceSource {
		return a.PriceSource == domain.SourceMarket
	}
	if a.TradedVolume != b.TradedVolume {
		return a.TradedVolume > b.TradedVolume
	}
	if a.TimeToExpiryYears != b.TimeToExpiryYears {
		return a.TimeToExpiryYears > b.TimeToExpiryYears
	}
	if a.Strike != b.Strike {
		return a.Strike < b.Strike
	}
	if a.Side != b.Side {
		return a.Side == domain.SideCall
	}
	return a.ContractMonth < b.ContractMonth
}

func distanceKey(d float64) float64 {
	return math.Round(d * distanceGrid)
}

// topN corta la lista ordenada a n elementos y devuelve el primero como mejor.
func topN(sorted []domain.Candidate, n int) (*domain.Candidate, []domain.Candidate) {
	if len(sorted) == 0 {
		return nil, []domain.Candidate{}
	}
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	best := sorted[0]
	return &best, sorted
}

// bestOfSide devuelve el primer candidato del lado dado en una lista ya ordenada.
func bestOfSide(sorted []domain.Candidate, side domain.Side) *domain.Candidate {
	for _, c := range sorted {
		if c.Side == side {
			best := c
			return &best
		}
	}
	return nil
}
