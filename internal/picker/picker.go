package picker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/txopicker/internal/domain"
	"github.com/alejandrodnm/txopicker/internal/ports"
)

const (
	defaultSymbol = "TXO"
	defaultTopN   = 20
	// índice del mes sugerido entre los meses futuros (el 4º, o el último si hay menos)
	defaultMonthIndex = 3
)

// Config contiene la configuración del picker.
type Config struct {
	Symbol             string
	RiskFreeRate       float64
	FallbackVolatility float64
	MinPrice           float64 // precio resuelto mínimo para rankear
	TopN               int
	Workers            int  // goroutines para evaluar filas (0 = NumCPU*2)
	DeriveIV           bool // resolver IV desde el precio operado si la fila no la trae
	Filter             FilterConfig
	DryRun             bool // no persiste la búsqueda
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		Symbol:             defaultSymbol,
		RiskFreeRate:       domain.DefaultRiskFreeRate,
		FallbackVolatility: domain.DefaultFallbackVolatility,
		MinPrice:           domain.DefaultMinPrice,
		TopN:               defaultTopN,
		Filter:             DefaultFilterConfig(),
	}
}

// Validate devuelve un error que envuelve domain.ErrInvalidConfig si algún parámetro es inválido.
func (c Config) Validate() error {
	switch {
	case c.TopN <= 0:
		return fmt.Errorf("picker.Config: top_n must be > 0, got %d: %w", c.TopN, domain.ErrInvalidConfig)
	case !isFinite(c.FallbackVolatility) || c.FallbackVolatility <= 0:
		return fmt.Errorf("picker.Config: fallback_volatility must be > 0, got %v: %w", c.FallbackVolatility, domain.ErrInvalidConfig)
	case !isFinite(c.RiskFreeRate) || math.Abs(c.RiskFreeRate) >= 1:
		return fmt.Errorf("picker.Config: risk_free_rate out of range: %v: %w", c.RiskFreeRate, domain.ErrInvalidConfig)
	case !isFinite(c.MinPrice) || c.MinPrice < 0:
		return fmt.Errorf("picker.Config: min_price must be >= 0, got %v: %w", c.MinPrice, domain.ErrInvalidConfig)
	case c.Workers < 0:
		return fmt.Errorf("picker.Config: workers must be >= 0, got %d: %w", c.Workers, domain.ErrInvalidConfig)
	}
	return c.Filter.Validate()
}

// ValidateRequest comprueba dirección, modo y apalancamiento objetivo.
func ValidateRequest(req domain.SearchRequest) error {
	if !isFinite(req.TargetLeverage) || req.TargetLeverage <= 0 {
		return fmt.Errorf("picker.ValidateRequest: target_leverage must be > 0, got %v: %w", req.TargetLeverage, domain.ErrInvalidConfig)
	}
	switch req.Side {
	case domain.SideCall, domain.SidePut, domain.SideBoth:
	default:
		return fmt.Errorf("picker.ValidateRequest: unknown side %q: %w", req.Side, domain.ErrInvalidConfig)
	}
	if req.Mode == "" {
		return nil
	}
	if !req.Mode.Valid() {
		return fmt.Errorf("picker.ValidateRequest: unknown mode %q: %w", req.Mode, domain.ErrInvalidConfig)
	}
	lo, hi := req.Mode.LeverageRange()
	if req.TargetLeverage < lo || req.TargetLeverage > hi {
		return fmt.Errorf("picker.ValidateRequest: target_leverage %v outside %s range [%v, %v]: %w",
			req.TargetLeverage, req.Mode, lo, hi, domain.ErrInvalidConfig)
	}
	return nil
}

// Picker orquesta fetch → evaluate → notify → persist de una búsqueda.
type Picker struct {
	cfg      Config
	chains   ports.ChainProvider
	storage  ports.Storage
	notifier ports.Notifier
	analyzer *Analyzer
	filter   *Filter
}

// New crea un Picker con todas las dependencias inyectadas.
// storage y notifier pueden ser nil.
func New(
	cfg Config,
	chains ports.ChainProvider,
	storage ports.Storage,
	notifier ports.Notifier,
) (*Picker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Symbol == "" {
		cfg.Symbol = defaultSymbol
	}
	return &Picker{
		cfg:      cfg,
		chains:   chains,
		storage:  storage,
		notifier: notifier,
		analyzer: NewAnalyzer(cfg.MinPrice),
		filter:   NewFilter(cfg.Filter),
	}, nil
}

// Run ejecuta una búsqueda completa: resuelve el mes, trae la cadena, evalúa,
// notifica y persiste. Los errores de notifier/storage solo se loguean.
func (p *Picker) Run(ctx context.Context, req domain.SearchRequest) (domain.SearchResult, error) {
	start := time.Now()

	result, err := p.Search(ctx, req)
	if err != nil {
		return domain.SearchResult{}, err
	}

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, result); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	if p.storage != nil && !p.cfg.DryRun {
		if err := p.storage.SaveSearch(ctx, result); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	attrs := []any{
		"search_id", result.ID,
		"month", result.Request.Month,
		"candidates", len(result.Ranked),
		"dropped", result.Dropped,
		"duration", time.Since(start).Round(time.Millisecond),
	}
	if result.Best != nil {
		attrs = append(attrs,
			"best", result.Best.SuggestedOrder(),
			"leverage", fmt.Sprintf("%.2f", result.Best.ImpliedLeverage),
		)
	}
	slog.Info("search complete", attrs...)
	return result, nil
}

// Search trae la cadena del mes pedido (o del mes por defecto) y la evalúa.
// No notifica ni persiste.
func (p *Picker) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResult, error) {
	if err := ValidateRequest(req); err != nil {
		return domain.SearchResult{}, err
	}

	if req.Month == "" {
		month, err := p.defaultMonth(ctx)
		if err != nil {
			return domain.SearchResult{}, err
		}
		req.Month = month
	}

	var chain domain.Chain
	if req.Month != "" {
		var err error
		chain, err = p.chains.FetchChain(ctx, req.Month)
		if err != nil {
			return domain.SearchResult{}, fmt.Errorf("picker.Search: fetch chain %s: %w", req.Month, err)
		}
	}

	result, err := p.Evaluate(ctx, chain, req)
	if err != nil {
		return domain.SearchResult{}, err
	}
	result.ID = uuid.NewString()
	result.SearchedAt = time.Now().UTC()
	return result, nil
}

// defaultMonth elige el mes sugerido entre los meses futuros disponibles.
func (p *Picker) defaultMonth(ctx context.Context) (string, error) {
	months, err := p.chains.Months(ctx)
	if err != nil {
		return "", fmt.Errorf("picker.defaultMonth: list months: %w", err)
	}
	if len(months) == 0 {
		// sin meses no hay filas: la búsqueda devolverá un resultado vacío
		return "", nil
	}
	return months[min(defaultMonthIndex, len(months)-1)], nil
}

// Evaluate corre el pipeline puro sobre una foto de la cadena:
// volatilidad → pricer → precio resuelto → clasificación → filtro → ranking.
// Solo devuelve error ante configuración inválida; datos ausentes dan un resultado vacío.
func (p *Picker) Evaluate(ctx context.Context, chain domain.Chain, req domain.SearchRequest) (domain.SearchResult, error) {
	if err := ValidateRequest(req); err != nil {
		return domain.SearchResult{}, err
	}

	spot := chain.Spot
	spot.RiskFreeRate = p.cfg.RiskFreeRate

	result := domain.SearchResult{
		Request:    req,
		Spot:       spot,
		Ranked:     []domain.Candidate{},
		Volatility: make(map[domain.Side]domain.VolatilityResolution, 2),
	}

	rows := bySymbol(chain.Filter(req.Month, req.Side), p.cfg.Symbol)
	result.Evaluated = len(rows)
	if len(rows) == 0 {
		slog.Debug("no option rows for request", "month", req.Month, "side", string(req.Side))
		return result, nil
	}
	if !isFinite(spot.SpotPrice) || spot.SpotPrice <= 0 {
		slog.Warn("invalid spot price, no candidates", "spot", spot.SpotPrice)
		result.Dropped = len(rows)
		return result, nil
	}

	if p.cfg.DeriveIV {
		rows = deriveImpliedVols(rows, spot)
	}

	tasks := make([]rowTask, 0, len(rows))
	for _, side := range []domain.Side{domain.SideCall, domain.SidePut} {
		group := sideRows(rows, side)
		if len(group) == 0 {
			continue
		}
		vol := domain.ResolveVolatility(group, p.cfg.FallbackVolatility)
		result.Volatility[side] = vol
		slog.Debug("volatility resolved",
			"side", string(side),
			"fallback", vol.Fallback,
			"source", string(vol.Source),
			"rows_with_iv", vol.Usable,
		)
		for _, r := range group {
			tasks = append(tasks, rowTask{row: r, sigma: vol.For(r)})
		}
	}

	evaluated := analyzeRowsConcurrent(ctx, p.analyzer, spot, tasks, p.cfg.Workers)
	result.Faults = evaluated.faults

	filtered := p.filter.Apply(evaluated.candidates)
	result.Dropped = len(rows) - len(filtered)

	sorted := sortByDistance(filtered, req.TargetLeverage)
	result.Best, result.Ranked = topN(sorted, p.cfg.TopN)
	result.BestCall = bestOfSide(sorted, domain.SideCall)
	result.BestPut = bestOfSide(sorted, domain.SidePut)

	slog.Debug("evaluation complete",
		"rows", len(rows),
		"rankable", len(evaluated.candidates),
		"after_filter", len(filtered),
		"faults", evaluated.faults,
	)
	return result, nil
}

// deriveImpliedVols completa la IV de filas operadas sin IV resolviéndola desde el precio.
// Devuelve una copia; las filas originales no se modifican.
func deriveImpliedVols(rows []domain.OptionRow, spot domain.SpotContext) []domain.OptionRow {
	out := make([]domain.OptionRow, len(rows))
	copy(out, rows)
	derived := 0
	for i, r := range out {
		if r.ImpliedVol != nil || !r.IsMarketPriced() {
			continue
		}
		T := r.TimeToExpiryYears(spot.ValuationDate)
		iv, err := domain.ImpliedVol(r.Side, spot.SpotPrice, r.Strike, T, spot.RiskFreeRate, *r.QuotedPrice)
		if err != nil {
			continue
		}
		out[i].ImpliedVol = domain.Float(iv)
		derived++
	}
	slog.Debug("implied vols derived from traded prices", "rows", derived)
	return out
}

// bySymbol descarta filas de otro subyacente. Las filas sin símbolo se aceptan
// y reciben el símbolo configurado.
func bySymbol(rows []domain.OptionRow, symbol string) []domain.OptionRow {
	out := make([]domain.OptionRow, 0, len(rows))
	for _, r := range rows {
		switch {
		case r.Symbol == "":
			r.Symbol = symbol
		case !strings.EqualFold(r.Symbol, symbol):
			continue
		}
		out = append(out, r)
	}
	return out
}

func sideRows(rows []domain.OptionRow, side domain.Side) []domain.OptionRow {
	out := make([]domain.OptionRow, 0, len(rows))
	for _, r := range rows {
		if r.Side == side {
			out = append(out, r)
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
