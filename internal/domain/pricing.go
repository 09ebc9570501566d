package domain

import (
	"errors"
	"math"
)

const sqrt2Pi = 2.5066282746310002

// PricingStatus indica cómo se obtuvo un PricingResult.
type PricingStatus int

const (
	StatusBlackScholes PricingStatus = iota // fórmula cerrada
	StatusIntrinsic                         // T <= 0 o sigma <= 0: valor intrínseco
	StatusNumericFault                      // input inválido o resultado no finito: (0, 0.5)
)

func (s PricingStatus) String() string {
	switch s {
	case StatusIntrinsic:
		return "intrinsic"
	case StatusNumericFault:
		return "numeric_fault"
	default:
		return "black_scholes"
	}
}

// PricingResult es el precio teórico y la delta de una opción.
type PricingResult struct {
	TheoreticalPrice  float64
	Delta             float64
	TimeToExpiryYears float64
	Status            PricingStatus
}

// faultResult es el fallback neutral ante cualquier error numérico.
func faultResult(T float64) PricingResult {
	return PricingResult{TheoreticalPrice: 0.0, Delta: 0.5, TimeToExpiryYears: T, Status: StatusNumericFault}
}

// PriceOption calcula precio y delta Black-Scholes de una opción europea.
//
//	d1 = (ln(S/K) + (r + σ²/2)·T) / (σ·√T),  d2 = d1 − σ·√T
//	CALL: S·Φ(d1) − K·e^(−rT)·Φ(d2),  delta Φ(d1)
//	PUT:  K·e^(−rT)·Φ(−d2) − S·Φ(−d1), delta −Φ(−d1)
//
// Si T <= 0 o sigma <= 0 devuelve el valor intrínseco con delta ±1 (en el dinero) o 0.
// Cualquier fallo numérico devuelve (0.0, 0.5).
func PriceOption(side Side, S, K, T, r, sigma float64) PricingResult {
	if !finite(S, K, T, r, sigma) || S <= 0 || K <= 0 {
		return faultResult(T)
	}

	if T <= 0 || sigma <= 0 {
		intrinsic := math.Max(side.Sign()*(S-K), 0)
		delta := 0.0
		if intrinsic > 0 {
			delta = side.Sign()
		}
		return PricingResult{TheoreticalPrice: intrinsic, Delta: delta, TimeToExpiryYears: T, Status: StatusIntrinsic}
	}

	sqrtT := math.Sqrt(T)
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	discK := K * math.Exp(-r*T)

	var price, delta float64
	if side == SidePut {
		price = discK*normCDF(-d2) - S*normCDF(-d1)
		delta = -normCDF(-d1)
	} else {
		price = S*normCDF(d1) - discK*normCDF(d2)
		delta = normCDF(d1)
	}

	if !finite(price, delta) {
		return faultResult(T)
	}
	// el redondeo puede dejar -1e-13 en opciones muy fuera del dinero
	if price < 0 {
		price = 0
	}
	return PricingResult{TheoreticalPrice: price, Delta: delta, TimeToExpiryYears: T, Status: StatusBlackScholes}
}

// BlackScholes es la forma corta de PriceOption: (precio, delta).
func BlackScholes(side Side, S, K, T, r, sigma float64) (price, delta float64) {
	res := PriceOption(side, S, K, T, r, sigma)
	return res.TheoreticalPrice, res.Delta
}

// Vega devuelve la sensibilidad del precio a la volatilidad (por 1.0 de sigma).
// Igual para CALL y PUT. Devuelve 0 si T o sigma no son positivos.
func Vega(S, K, T, r, sigma float64) float64 {
	if T <= 0 || sigma <= 0 || S <= 0 || K <= 0 {
		return 0
	}
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*T) / (sigma * math.Sqrt(T))
	return S * normPDF(d1) * math.Sqrt(T)
}

// ErrIVNotConverged se devuelve cuando Newton-Raphson no encuentra la IV.
var ErrIVNotConverged = errors.New("implied vol did not converge")

const (
	ivInitialGuess = 0.20
	ivMaxIter      = 100
	ivTolerance    = 1e-6
	ivMin          = 1e-4
	ivMax          = 5.0
)

// ImpliedVol resuelve la volatilidad que iguala el precio Black-Scholes al precio de mercado
// usando Newton-Raphson sobre la vega. La sigma se mantiene en [1e-4, 5].
func ImpliedVol(side Side, S, K, T, r, marketPrice float64) (float64, error) {
	if T <= 0 || S <= 0 || K <= 0 || marketPrice <= 0 {
		return 0, ErrIVNotConverged
	}

	sigma := ivInitialGuess
	for i := 0; i < ivMaxIter; i++ {
		res := PriceOption(side, S, K, T, r, sigma)
		if res.Status != StatusBlackScholes {
			break
		}
		diff := res.TheoreticalPrice - marketPrice
		if math.Abs(diff) < ivTolerance {
			return sigma, nil
		}

		vega := Vega(S, K, T, r, sigma)
		if vega < 1e-8 {
			break
		}

		sigma -= diff / vega
		if sigma <= 0 {
			sigma = ivMin
		}
		if sigma > ivMax {
			sigma = ivMax
		}
	}
	return 0, ErrIVNotConverged
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / sqrt2Pi
}

func normCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
