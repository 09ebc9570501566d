package storage

// sqlite.go: historial de búsquedas.
//
// Estrategia:
//   - `searches`: una fila por búsqueda (request, spot, contadores).
//   - `candidates`: el ranking guardado más el mejor de cada lado, con rol.
//   - Timestamps en milisegundos UTC para que los rangos comparen como enteros.
//   - Prune automático al arrancar: búsquedas > 30d (y sus candidatos).

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/txopicker/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS searches (
    id              TEXT PRIMARY KEY,
    searched_at     INTEGER NOT NULL,
    month           TEXT    NOT NULL DEFAULT '',
    side            TEXT    NOT NULL DEFAULT '',
    mode            TEXT    NOT NULL DEFAULT '',
    target_leverage REAL    NOT NULL,
    spot_price      REAL    NOT NULL DEFAULT 0,
    valuation_date  TEXT    NOT NULL DEFAULT '',
    risk_free_rate  REAL    NOT NULL DEFAULT 0,
    evaluated       INTEGER NOT NULL DEFAULT 0,
    dropped         INTEGER NOT NULL DEFAULT 0,
    faults          INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS candidates (
    search_id         TEXT    NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
    role              TEXT    NOT NULL,
    rank              INTEGER NOT NULL,
    symbol            TEXT    NOT NULL,
    contract_month    TEXT    NOT NULL,
    strike            REAL    NOT NULL,
    side              TEXT    NOT NULL,
    expiry_date       TEXT    NOT NULL DEFAULT '',
    quoted_price      REAL,
    traded_volume     INTEGER NOT NULL DEFAULT 0,
    implied_vol       REAL,
    resolved_price    REAL    NOT NULL,
    price_source      TEXT    NOT NULL,
    theoretical_price REAL    NOT NULL DEFAULT 0,
    volatility        REAL    NOT NULL DEFAULT 0,
    delta             REAL    NOT NULL DEFAULT 0,
    implied_leverage  REAL    NOT NULL DEFAULT 0,
    moneyness         TEXT    NOT NULL DEFAULT '',
    time_to_expiry    REAL    NOT NULL DEFAULT 0,
    distance          REAL    NOT NULL DEFAULT 0,
    confidence        REAL    NOT NULL DEFAULT 0,
    PRIMARY KEY (search_id, role, rank)
);

CREATE INDEX IF NOT EXISTS idx_searches_at ON searches(searched_at DESC);
`

const (
	retentionSearches = 30 * 24 * time.Hour
	dateLayout        = "2006-01-02"

	roleRanked   = "ranked"
	roleBestCall = "best_call"
	roleBestPut  = "best_put"
)

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia búsquedas antiguas.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background(), time.Now())
	return s, nil
}

// SaveSearch persiste la búsqueda y sus candidatos en una transacción.
// Si el resultado no trae ID se le asigna uno nuevo.
func (s *SQLiteStorage) SaveSearch(ctx context.Context, res domain.SearchResult) error {
	id := res.ID
	if id == "" {
		id = uuid.NewString()
	}
	at := res.SearchedAt
	if at.IsZero() {
		at = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveSearch: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO searches
			(id, searched_at, month, side, mode, target_leverage, spot_price,
			 valuation_date, risk_free_rate, evaluated, dropped, faults)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		at.UTC().UnixMilli(),
		res.Request.Month,
		string(res.Request.Side),
		string(res.Request.Mode),
		res.Request.TargetLeverage,
		res.Spot.SpotPrice,
		formatDate(res.Spot.ValuationDate),
		res.Spot.RiskFreeRate,
		res.Evaluated,
		res.Dropped,
		res.Faults,
	); err != nil {
		return fmt.Errorf("storage.SaveSearch: insert search: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candidates
			(search_id, role, rank, symbol, contract_month, strike, side, expiry_date,
			 quoted_price, traded_volume, implied_vol, resolved_price, price_source,
			 theoretical_price, volatility, delta, implied_leverage, moneyness,
			 time_to_expiry, distance, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveSearch: prepare: %w", err)
	}
	defer stmt.Close()

	insert := func(role string, rank int, c domain.Candidate) error {
		_, err := stmt.ExecContext(ctx,
			id, role, rank,
			c.Symbol,
			c.ContractMonth,
			c.Strike,
			string(c.Side),
			formatDate(c.ExpiryDate),
			nullFloat(c.QuotedPrice),
			c.TradedVolume,
			nullFloat(c.ImpliedVol),
			c.ResolvedPrice,
			string(c.PriceSource),
			c.TheoreticalPrice,
			c.Volatility,
			c.Delta,
			c.ImpliedLeverage,
			string(c.Moneyness),
			c.TimeToExpiryYears,
			c.DistanceToTarget,
			c.Confidence,
		)
		if err != nil {
			return fmt.Errorf("storage.SaveSearch: insert %s #%d: %w", role, rank, err)
		}
		return nil
	}

	for i, c := range res.Ranked {
		if err := insert(roleRanked, i+1, c); err != nil {
			return err
		}
	}
	if res.BestCall != nil {
		if err := insert(roleBestCall, 1, *res.BestCall); err != nil {
			return err
		}
	}
	if res.BestPut != nil {
		if err := insert(roleBestPut, 1, *res.BestPut); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveSearch: commit: %w", err)
	}
	return nil
}

// GetHistory devuelve las búsquedas hechas en [from, to], más recientes primero,
// con su ranking y el mejor de cada lado.
func (s *SQLiteStorage) GetHistory(ctx context.Context, from, to time.Time) ([]domain.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, searched_at, month, side, mode, target_leverage, spot_price,
		       valuation_date, risk_free_rate, evaluated, dropped, faults
		FROM searches
		WHERE searched_at BETWEEN ? AND ?
		ORDER BY searched_at DESC, id
	`, from.UTC().UnixMilli(), to.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}

	var results []domain.SearchResult
	for rows.Next() {
		var (
			res                 domain.SearchResult
			atMillis            int64
			side, mode, valDate string
		)
		if err := rows.Scan(
			&res.ID,
			&atMillis,
			&res.Request.Month,
			&side,
			&mode,
			&res.Request.TargetLeverage,
			&res.Spot.SpotPrice,
			&valDate,
			&res.Spot.RiskFreeRate,
			&res.Evaluated,
			&res.Dropped,
			&res.Faults,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("storage.GetHistory: scan search: %w", err)
		}
		res.SearchedAt = time.UnixMilli(atMillis).UTC()
		res.Request.Side = domain.Side(side)
		res.Request.Mode = domain.Mode(mode)
		res.Spot.ValuationDate = parseDate(valDate)
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("storage.GetHistory: iterate: %w", err)
	}
	rows.Close()

	// Con una sola conexión abierta, los candidatos se leen después de cerrar el cursor anterior.
	for i := range results {
		if err := s.loadCandidates(ctx, &results[i]); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// loadCandidates completa Ranked, Best, BestCall y BestPut de la búsqueda.
func (s *SQLiteStorage) loadCandidates(ctx context.Context, res *domain.SearchResult) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, symbol, contract_month, strike, side, expiry_date,
		       quoted_price, traded_volume, implied_vol, resolved_price, price_source,
		       theoretical_price, volatility, delta, implied_leverage, moneyness,
		       time_to_expiry, distance, confidence
		FROM candidates
		WHERE search_id = ?
		ORDER BY role, rank
	`, res.ID)
	if err != nil {
		return fmt.Errorf("storage.loadCandidates: query %s: %w", res.ID, err)
	}
	defer rows.Close()

	res.Ranked = []domain.Candidate{}
	for rows.Next() {
		var (
			c                              domain.Candidate
			role, side, expiry, src, money string
			quoted, iv                     sql.NullFloat64
		)
		if err := rows.Scan(
			&role,
			&c.Symbol,
			&c.ContractMonth,
			&c.Strike,
			&side,
			&expiry,
			&quoted,
			&c.TradedVolume,
			&iv,
			&c.ResolvedPrice,
			&src,
			&c.TheoreticalPrice,
			&c.Volatility,
			&c.Delta,
			&c.ImpliedLeverage,
			&money,
			&c.TimeToExpiryYears,
			&c.DistanceToTarget,
			&c.Confidence,
		); err != nil {
			return fmt.Errorf("storage.loadCandidates: scan %s: %w", res.ID, err)
		}
		c.Side = domain.Side(side)
		c.ExpiryDate = parseDate(expiry)
		c.PriceSource = domain.PriceSource(src)
		c.Moneyness = domain.Moneyness(money)
		c.DeltaAbs = math.Abs(c.Delta)
		if quoted.Valid {
			c.QuotedPrice = domain.Float(quoted.Float64)
		}
		if iv.Valid {
			c.ImpliedVol = domain.Float(iv.Float64)
		}

		switch role {
		case roleRanked:
			res.Ranked = append(res.Ranked, c)
		case roleBestCall:
			res.BestCall = &c
		case roleBestPut:
			res.BestPut = &c
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("storage.loadCandidates: iterate %s: %w", res.ID, err)
	}

	if len(res.Ranked) > 0 {
		best := res.Ranked[0]
		res.Best = &best
	}
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina búsquedas antiguas para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context, now time.Time) {
	cutoff := now.UTC().Add(-retentionSearches).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM searches WHERE searched_at < ?`, cutoff)
	if err != nil {
		slog.Warn("prune searches failed", "err", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Debug("pruned old searches", "count", n)
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
