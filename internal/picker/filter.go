package picker

import (
	"fmt"
	"math"

	"github.com/alejandrodnm/txopicker/internal/domain"
)

// safeModeMinAbsDelta es el piso de |delta| en modo seguro: descarta contratos muy
// fuera del dinero, que se comportan como billetes de lotería.
const safeModeMinAbsDelta = 0.15

// FilterConfig contiene los parámetros configurables de filtrado.
// Son perillas de política, no constantes físicas.
type FilterConfig struct {
	// MinAbsDelta descarta candidatos con |delta| menor a esto.
	MinAbsDelta float64
	// SafeMode eleva el piso de |delta| a 0.15.
	SafeMode bool
}

// DefaultFilterConfig devuelve la configuración de filtrado por defecto.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinAbsDelta: 0.10,
		SafeMode:    false,
	}
}

// Validate comprueba que el piso de delta esté en [0, 1).
func (c FilterConfig) Validate() error {
	if math.IsNaN(c.MinAbsDelta) || c.MinAbsDelta < 0 || c.MinAbsDelta >= 1 {
		return fmt.Errorf("picker.FilterConfig: min_abs_delta must be in [0, 1), got %v: %w", c.MinAbsDelta, domain.ErrInvalidConfig)
	}
	return nil
}

// EffectiveMinAbsDelta devuelve el piso de |delta| aplicado, considerando el modo seguro.
func (c FilterConfig) EffectiveMinAbsDelta() float64 {
	if c.SafeMode {
		return math.Max(c.MinAbsDelta, safeModeMinAbsDelta)
	}
	return c.MinAbsDelta
}

// Filter aplica los filtros configurados sobre una lista de candidatos.
type Filter struct {
	cfg FilterConfig
}

// NewFilter crea un Filter con la configuración dada.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// Apply devuelve los candidatos que pasan todos los filtros.
func (f *Filter) Apply(cands []domain.Candidate) []domain.Candidate {
	result := make([]domain.Candidate, 0, len(cands))
	for _, c := range cands {
		if f.passes(c) {
			result = append(result, c)
		}
	}
	return result
}

// passes devuelve true si el candidato supera todos los criterios.
func (f *Filter) passes(c domain.Candidate) bool {
	if minDelta := f.cfg.EffectiveMinAbsDelta(); minDelta > 0 && c.DeltaAbs < minDelta {
		return false
	}
	// el drop de precio ya lo hizo el analyzer; esto protege a quien llame a Rank directamente
	return c.ImpliedLeverage > 0
}
