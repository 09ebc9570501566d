package finmind

import (
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/txopicker/internal/domain"
)

const (
	dateLayout     = "2006-01-02"
	regularSession = "position"
)

// isRegularSession devuelve true para la sesión regular (o si la fuente no la informa).
func isRegularSession(rec dailyRecord) bool {
	s := strings.TrimSpace(rec.TradingSession)
	return s == "" || s == regularSession
}

// toOptionRow valida y convierte un registro de FinMind en domain.OptionRow.
// El precio cotizado es el cierre; si no hubo cierre se usa el de liquidación.
// FinMind no trae IV, así que ImpliedVol queda nil.
func toOptionRow(rec dailyRecord, conv domain.ExpiryConvention) (domain.OptionRow, error) {
	if rec.StrikePrice <= 0 {
		return domain.OptionRow{}, fmt.Errorf("finmind.toOptionRow: invalid strike %v", rec.StrikePrice)
	}
	side, err := domain.ParseSide(rec.CallPut)
	if err != nil {
		return domain.OptionRow{}, fmt.Errorf("finmind.toOptionRow: %w", err)
	}
	month := strings.TrimSpace(rec.ContractDate)
	expiry, err := domain.ExpiryDate(month, conv)
	if err != nil {
		return domain.OptionRow{}, fmt.Errorf("finmind.toOptionRow: %w", err)
	}

	row := domain.OptionRow{
		Symbol:        strings.ToUpper(strings.TrimSpace(rec.OptionID)),
		ContractMonth: month,
		Strike:        rec.StrikePrice,
		Side:          side,
		ExpiryDate:    expiry,
	}
	if rec.Volume > 0 {
		row.TradedVolume = int64(rec.Volume)
	}
	switch {
	case rec.Close > 0:
		row.QuotedPrice = domain.Float(rec.Close)
	case rec.SettlementPrice > 0:
		row.QuotedPrice = domain.Float(rec.SettlementPrice)
	}
	return row, nil
}

// parseDate parsea la fecha de trading del registro.
func parseDate(s string) (time.Time, error) {
	// algunos exports traen "2024-05-16 00:00:00"
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("finmind.parseDate: %q: %w", s, err)
	}
	return t, nil
}
