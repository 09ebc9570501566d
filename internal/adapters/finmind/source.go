package finmind

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/alejandrodnm/txopicker/internal/domain"
)

const defaultSymbol = "TXO"

// SourceConfig configura el FileSource.
type SourceConfig struct {
	Path         string
	Symbol       string
	SpotPrice    float64 // 0 = derivar por paridad put-call
	RiskFreeRate float64
	Convention   domain.ExpiryConvention
}

// FileSource implementa ports.ChainProvider leyendo un snapshot JSON de FinMind
// (TaiwanOptionDaily) desde disco. Solo usa la última fecha de trading del archivo.
type FileSource struct {
	cfg SourceConfig
}

// NewFileSource crea un FileSource. Symbol vacío usa "TXO" y una convención
// inválida usa el día 15.
func NewFileSource(cfg SourceConfig) *FileSource {
	if cfg.Symbol == "" {
		cfg.Symbol = defaultSymbol
	}
	cfg.Symbol = strings.ToUpper(cfg.Symbol)
	if !cfg.Convention.Valid() {
		cfg.Convention = domain.ExpiryFifteenth
	}
	return &FileSource{cfg: cfg}
}

// snapshot es el subconjunto utilizable del archivo: filas de la última fecha.
type snapshot struct {
	date time.Time
	rows []domain.OptionRow
}

// Months devuelve los meses de contrato mensuales con vencimiento >= mes de valuación, ordenados.
func (s *FileSource) Months(ctx context.Context) ([]string, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("finmind.Months: %w", err)
	}
	current := domain.MonthLabel(snap.date)
	seen := make(map[string]struct{})
	var months []string
	for _, r := range snap.rows {
		if r.ContractMonth < current {
			continue
		}
		if _, ok := seen[r.ContractMonth]; ok {
			continue
		}
		seen[r.ContractMonth] = struct{}{}
		months = append(months, r.ContractMonth)
	}
	sort.Strings(months)
	return months, nil
}

// FetchChain devuelve la cadena del mes dado. Si SpotPrice no está configurado
// lo deriva por paridad put-call con las filas de ese mes.
func (s *FileSource) FetchChain(ctx context.Context, month string) (domain.Chain, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return domain.Chain{}, fmt.Errorf("finmind.FetchChain: %w", err)
	}

	rows := make([]domain.OptionRow, 0, len(snap.rows))
	for _, r := range snap.rows {
		if month == "" || r.ContractMonth == month {
			rows = append(rows, r)
		}
	}

	spot := domain.SpotContext{
		SpotPrice:     s.cfg.SpotPrice,
		ValuationDate: snap.date,
		RiskFreeRate:  s.cfg.RiskFreeRate,
	}
	if spot.SpotPrice <= 0 && len(rows) > 0 {
		implied, err := domain.ImpliedSpot(rows, snap.date, s.cfg.RiskFreeRate)
		if err != nil {
			return domain.Chain{}, fmt.Errorf("finmind.FetchChain: derive spot %s: %w", month, err)
		}
		slog.Info("spot derived from put-call parity", "month", month, "spot", implied)
		spot.SpotPrice = implied
	}

	slog.Debug("chain loaded",
		"month", month,
		"rows", len(rows),
		"valuation_date", snap.date.Format(dateLayout),
	)
	return domain.Chain{Spot: spot, Rows: rows}, nil
}

// load lee el archivo, se queda con la última fecha y la sesión regular
// y descarta contratos semanales o filas inválidas.
func (s *FileSource) load(ctx context.Context) (snapshot, error) {
	if err := ctx.Err(); err != nil {
		return snapshot{}, err
	}
	data, err := os.ReadFile(s.cfg.Path)
	if err != nil {
		return snapshot{}, fmt.Errorf("read %s: %w", s.cfg.Path, err)
	}
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return snapshot{}, fmt.Errorf("decode %s: %w", s.cfg.Path, err)
	}
	if resp.Status != 0 && resp.Status != 200 {
		return snapshot{}, fmt.Errorf("finmind status %d: %s", resp.Status, resp.Msg)
	}

	var latest time.Time
	for _, rec := range resp.Data {
		if !strings.EqualFold(strings.TrimSpace(rec.OptionID), s.cfg.Symbol) {
			continue
		}
		d, err := parseDate(rec.Date)
		if err != nil {
			continue
		}
		if d.After(latest) {
			latest = d
		}
	}
	if latest.IsZero() {
		return snapshot{}, fmt.Errorf("no %s rows in %s", s.cfg.Symbol, s.cfg.Path)
	}

	var (
		rows    []domain.OptionRow
		skipped int
	)
	for _, rec := range resp.Data {
		if !strings.EqualFold(strings.TrimSpace(rec.OptionID), s.cfg.Symbol) || !isRegularSession(rec) {
			continue
		}
		d, err := parseDate(rec.Date)
		if err != nil || !d.Equal(latest) {
			continue
		}
		row, err := toOptionRow(rec, s.cfg.Convention)
		if err != nil {
			// contratos semanales ("202406W4") y filas malformadas
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	if skipped > 0 {
		slog.Debug("rows skipped at ingestion", "count", skipped, "date", latest.Format(dateLayout))
	}
	return snapshot{date: latest, rows: rows}, nil
}
