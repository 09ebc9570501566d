package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultRiskFreeRate es la tasa libre de riesgo anual usada si la config no define otra.
const DefaultRiskFreeRate = 0.02

// Side es el tipo de opción: CALL o PUT.
type Side string

const (
	SideCall Side = "CALL"
	SidePut  Side = "PUT"
)

// ParseSide acepta las variantes que usan los proveedores de datos (call, C, 買權...).
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "c", "買權":
		return SideCall, nil
	case "put", "p", "賣權":
		return SidePut, nil
	}
	return "", fmt.Errorf("domain.ParseSide: unknown side %q", s)
}

// Letter devuelve "C" o "P" para el texto de la orden sugerida.
func (s Side) Letter() string {
	if s == SidePut {
		return "P"
	}
	return "C"
}

// Sign devuelve +1 para CALL y -1 para PUT.
func (s Side) Sign() float64 {
	if s == SidePut {
		return -1
	}
	return 1
}

// SpotContext es el contexto de mercado de una búsqueda. Inmutable.
type SpotContext struct {
	SpotPrice     float64
	ValuationDate time.Time
	RiskFreeRate  float64
}

// OptionRow es una fila de la cadena de opciones para un (strike, side).
// QuotedPrice e ImpliedVol son nil cuando la fuente no los trae.
type OptionRow struct {
	Symbol        string // "TXO"
	ContractMonth string // "YYYYMM"
	Strike        float64
	Side          Side
	QuotedPrice   *float64
	TradedVolume  int64
	ImpliedVol    *float64
	ExpiryDate    time.Time
}

// HasQuote devuelve true si hay precio cotizado positivo.
func (r OptionRow) HasQuote() bool {
	return r.QuotedPrice != nil && *r.QuotedPrice > 0
}

// IsMarketPriced devuelve true si la fila tuvo operaciones reales hoy con precio > 0.
func (r OptionRow) IsMarketPriced() bool {
	return r.TradedVolume > 0 && r.HasQuote()
}

// DaysToExpiry devuelve los días calendario entre la valoración y el vencimiento.
// Puede ser negativo si el contrato ya venció.
func (r OptionRow) DaysToExpiry(valuation time.Time) int {
	return daysBetween(valuation, r.ExpiryDate)
}

// TimeToExpiryYears devuelve max(días, 1) / 365. Nunca es <= 0.
func (r OptionRow) TimeToExpiryYears(valuation time.Time) float64 {
	days := r.DaysToExpiry(valuation)
	if days < 1 {
		days = 1
	}
	return float64(days) / 365
}

// Chain es la foto de la cadena de un mes: contexto spot + filas.
type Chain struct {
	Spot SpotContext
	Rows []OptionRow
}

// Filter devuelve las filas del mes y lado pedidos. side vacío = ambos lados.
func (c Chain) Filter(month string, side Side) []OptionRow {
	out := make([]OptionRow, 0, len(c.Rows))
	for _, r := range c.Rows {
		if month != "" && r.ContractMonth != month {
			continue
		}
		if side != "" && r.Side != side {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Float devuelve un puntero al valor dado; útil para campos opcionales.
func Float(v float64) *float64 {
	return &v
}

// --- meses de contrato y vencimientos ---

// ExpiryConvention decide qué día del mes de contrato es el vencimiento.
type ExpiryConvention string

const (
	// ExpiryFifteenth usa el día 15 del mes de contrato.
	ExpiryFifteenth ExpiryConvention = "fifteenth"
	// ExpiryThirdWednesday usa el tercer miércoles (liquidación mensual de TAIFEX).
	ExpiryThirdWednesday ExpiryConvention = "third_wednesday"
)

// Valid devuelve true si la convención es conocida.
func (c ExpiryConvention) Valid() bool {
	return c == ExpiryFifteenth || c == ExpiryThirdWednesday
}

// ParseContractMonth parsea una etiqueta "YYYYMM". Las semanales ("202406W2") se rechazan.
func ParseContractMonth(label string) (year int, month time.Month, err error) {
	label = strings.TrimSpace(label)
	if len(label) != 6 {
		return 0, 0, fmt.Errorf("domain.ParseContractMonth: invalid label %q", label)
	}
	n, err := strconv.Atoi(label)
	if err != nil {
		return 0, 0, fmt.Errorf("domain.ParseContractMonth: invalid label %q: %w", label, err)
	}
	year, m := n/100, n%100
	if m < 1 || m > 12 {
		return 0, 0, fmt.Errorf("domain.ParseContractMonth: invalid month in %q", label)
	}
	return year, time.Month(m), nil
}

// ExpiryDate devuelve la fecha de vencimiento del mes de contrato según la convención.
func ExpiryDate(label string, conv ExpiryConvention) (time.Time, error) {
	year, month, err := ParseContractMonth(label)
	if err != nil {
		return time.Time{}, err
	}
	if conv == ExpiryThirdWednesday {
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		offset := (int(time.Wednesday) - int(first.Weekday()) + 7) % 7
		return first.AddDate(0, 0, offset+14), nil
	}
	return time.Date(year, month, 15, 0, 0, 0, 0, time.UTC), nil
}

// MonthLabel devuelve la etiqueta "YYYYMM" de una fecha.
func MonthLabel(t time.Time) string {
	return t.Format("200601")
}

func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}

// --- modos de estrategia ---

// Mode es el perfil de la búsqueda: largo plazo (poco apalancamiento) o corto plazo.
type Mode string

const (
	ModeLong  Mode = "long"
	ModeShort Mode = "short"
)

// LeverageRange devuelve el rango de apalancamiento permitido para el modo.
func (m Mode) LeverageRange() (lo, hi float64) {
	if m == ModeShort {
		return 5.0, 25.0
	}
	return 1.5, 6.0
}

// DefaultLeverage devuelve el apalancamiento objetivo por defecto del modo.
func (m Mode) DefaultLeverage() float64 {
	if m == ModeShort {
		return 12.0
	}
	return 2.5
}

// Valid devuelve true si el modo es conocido.
func (m Mode) Valid() bool {
	return m == ModeLong || m == ModeShort
}
