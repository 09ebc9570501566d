package domain

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// ContractMultiplier es el valor de un punto de TXO en TWD.
const ContractMultiplier = 50

// Moneyness clasifica el contrato respecto del spot.
type Moneyness string

const (
	ITM Moneyness = "ITM"
	OTM Moneyness = "OTM"
)

// Candidate es una fila evaluada y lista para rankear.
type Candidate struct {
	OptionRow

	ResolvedPrice     float64
	PriceSource       PriceSource
	TheoreticalPrice  float64
	Pricing           PricingStatus
	Volatility        float64
	Delta             float64
	DeltaAbs          float64
	ImpliedLeverage   float64
	Moneyness         Moneyness
	TimeToExpiryYears float64

	// Se completan en el ranking.
	DistanceToTarget float64
	Confidence       float64
}

// MoneynessOf devuelve ITM si CALL con K <= S o PUT con K >= S; si no OTM.
func MoneynessOf(side Side, strike, spot float64) Moneyness {
	if (side == SideCall && strike <= spot) || (side == SidePut && strike >= spot) {
		return ITM
	}
	return OTM
}

// ImpliedLeverage devuelve |delta|·spot/price. Devuelve 0 si price no es positivo.
func ImpliedLeverage(delta, spot, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return math.Abs(delta) * spot / price
}

// Classify construye el Candidate a partir de la fila, el precio resuelto y la delta.
// El caller garantiza price > 0 (ver Rankable).
func Classify(row OptionRow, price float64, source PriceSource, delta, spot float64) Candidate {
	return Candidate{
		OptionRow:       row,
		ResolvedPrice:   price,
		PriceSource:     source,
		Delta:           delta,
		DeltaAbs:        math.Abs(delta),
		ImpliedLeverage: ImpliedLeverage(delta, spot, price),
		Moneyness:       MoneynessOf(row.Side, row.Strike, spot),
	}
}

const theoreticalWeight = 0.7

// Confidence es un score heurístico en [0, 1]: cercanía al objetivo
// (1 − distancia/objetivo, acotado) por un peso según el origen del precio.
func Confidence(c Candidate, target float64) float64 {
	if target <= 0 {
		return 0
	}
	closeness := 1 - math.Abs(c.ImpliedLeverage-target)/target
	closeness = math.Max(0, math.Min(1, closeness))
	if c.PriceSource == SourceMarket {
		return closeness
	}
	return closeness * theoreticalWeight
}

// SuggestedOrder devuelve el texto "{SYMBOL} {mes} {C|P}{strike} BUY 1".
// Solo formato: este sistema nunca envía órdenes.
func (c Candidate) SuggestedOrder() string {
	return fmt.Sprintf("%s %s %s%s BUY 1",
		c.Symbol, c.ContractMonth, c.Side.Letter(), FormatStrike(c.Strike))
}

// PremiumCost devuelve el costo de 1 contrato en TWD (precio × multiplicador), redondeado.
func (c Candidate) PremiumCost(multiplier int64) decimal.Decimal {
	if multiplier <= 0 {
		multiplier = ContractMultiplier
	}
	return decimal.NewFromFloat(c.ResolvedPrice).Mul(decimal.NewFromInt(multiplier)).Round(0)
}

// LimitPrice devuelve el precio resuelto ajustado al tick de TXO.
func (c Candidate) LimitPrice() decimal.Decimal {
	return RoundToTick(c.ResolvedPrice)
}

// FormatStrike imprime el strike sin decimales si es entero.
func FormatStrike(strike float64) string {
	return strconv.FormatFloat(strike, 'f', -1, 64)
}

// TickSize devuelve el tick de precio de TXO para el nivel de prima dado.
func TickSize(price float64) decimal.Decimal {
	switch {
	case price < 10:
		return decimal.RequireFromString("0.1")
	case price < 50:
		return decimal.RequireFromString("0.5")
	case price < 500:
		return decimal.NewFromInt(1)
	case price < 1000:
		return decimal.NewFromInt(5)
	default:
		return decimal.NewFromInt(10)
	}
}

// RoundToTick redondea el precio al tick más cercano de la escala de TXO.
func RoundToTick(price float64) decimal.Decimal {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return decimal.Zero
	}
	tick := TickSize(price)
	return decimal.NewFromFloat(price).Div(tick).Round(0).Mul(tick)
}
