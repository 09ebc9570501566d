package picker

import (
	"context"
	"errors"
	"fmt"

	"github.com/alejandrodnm/txopicker/internal/domain"
)

// ErrUnrankable marca filas cuyo precio resuelto no permite calcular apalancamiento.
var ErrUnrankable = errors.New("unrankable row")

// Analyzer evalúa una fila de la cadena y produce un Candidate.
type Analyzer struct {
	minPrice float64
}

// NewAnalyzer crea un Analyzer. minPrice < 0 usa domain.DefaultMinPrice.
func NewAnalyzer(minPrice float64) *Analyzer {
	if minPrice < 0 {
		minPrice = domain.DefaultMinPrice
	}
	return &Analyzer{minPrice: minPrice}
}

// Analyze precia la fila con sigma, resuelve el precio a usar y la clasifica.
// Devuelve ErrUnrankable si el precio resuelto no es rankeable; aun así el Candidate
// devuelto lleva la fila y el Pricing. Un NumericFault del pricer no es un error.
func (a *Analyzer) Analyze(_ context.Context, spot domain.SpotContext, row domain.OptionRow, sigma float64) (domain.Candidate, error) {
	T := row.TimeToExpiryYears(spot.ValuationDate)
	pricing := domain.PriceOption(row.Side, spot.SpotPrice, row.Strike, T, spot.RiskFreeRate, sigma)

	price, source := domain.ResolvePrice(row, pricing.TheoreticalPrice)
	if !domain.Rankable(price, a.minPrice) {
		return domain.Candidate{OptionRow: row, Pricing: pricing.Status}, fmt.Errorf("analyzer: %s %s price %.4f: %w",
			row.Side, domain.FormatStrike(row.Strike), price, ErrUnrankable)
	}

	c := domain.Classify(row, price, source, pricing.Delta, spot.SpotPrice)
	c.TheoreticalPrice = pricing.TheoreticalPrice
	c.Pricing = pricing.Status
	c.Volatility = sigma
	c.TimeToExpiryYears = T
	return c, nil
}
