package domain

import "math"

// DefaultMinPrice es el precio mínimo para que una fila sea rankeable.
// Por debajo, el apalancamiento explota (división por ~0).
const DefaultMinPrice = 0.1

// PriceSource indica el origen del precio resuelto.
type PriceSource string

const (
	SourceMarket      PriceSource = "MARKET"
	SourceTheoretical PriceSource = "THEORETICAL"
)

// ResolvePrice elige entre el precio de mercado (si hubo volumen y cotización > 0)
// y el teórico. Nunca falla.
func ResolvePrice(row OptionRow, theoretical float64) (float64, PriceSource) {
	if row.IsMarketPriced() {
		return *row.QuotedPrice, SourceMarket
	}
	return theoretical, SourceTheoretical
}

// Rankable devuelve false si el precio resuelto no permite calcular apalancamiento:
// <= 0, no finito o menor que minPrice.
func Rankable(price, minPrice float64) bool {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return false
	}
	return price >= minPrice
}
