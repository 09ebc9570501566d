package domain

import (
	"errors"
	"math"
	"time"
)

// ErrNoParityPair se devuelve si no hay ningún strike con CALL y PUT operados.
var ErrNoParityPair = errors.New("no traded call/put pair for parity")

// ImpliedSpot estima el spot por paridad put-call: S ≈ C − P + K·e^(−rT),
// usando el strike con ambos lados operados y el menor |C − P| (el más cercano al dinero).
func ImpliedSpot(rows []OptionRow, valuation time.Time, r float64) (float64, error) {
	type pair struct {
		call, put *OptionRow
	}
	byStrike := make(map[float64]*pair)
	for i := range rows {
		row := &rows[i]
		if !row.IsMarketPriced() {
			continue
		}
		p, ok := byStrike[row.Strike]
		if !ok {
			p = &pair{}
			byStrike[row.Strike] = p
		}
		if row.Side == SidePut {
			p.put = row
		} else {
			p.call = row
		}
	}

	bestGap := math.Inf(1)
	bestStrike := 0.0
	spot := 0.0
	for strike, p := range byStrike {
		if p.call == nil || p.put == nil {
			continue
		}
		c, pp := *p.call.QuotedPrice, *p.put.QuotedPrice
		gap := math.Abs(c - pp)
		// empate: strike menor, para que el resultado no dependa del orden del map
		if gap < bestGap || (gap == bestGap && strike < bestStrike) {
			T := p.call.TimeToExpiryYears(valuation)
			bestGap = gap
			bestStrike = strike
			spot = c - pp + strike*math.Exp(-r*T)
		}
	}

	if math.IsInf(bestGap, 1) || spot <= 0 {
		return 0, ErrNoParityPair
	}
	return spot, nil
}
