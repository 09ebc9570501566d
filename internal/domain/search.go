package domain

import "time"

// SideBoth pide candidatos de ambos lados en una búsqueda.
const SideBoth Side = ""

// SearchRequest es lo que el usuario pide: mes, dirección y apalancamiento objetivo.
type SearchRequest struct {
	Month          string // "YYYYMM"; vacío = mes por defecto
	Side           Side   // SideCall, SidePut o SideBoth
	Mode           Mode
	TargetLeverage float64
}

// SearchResult es el resultado de una búsqueda. Best es nil si no hubo candidatos;
// eso es un resultado normal, no un error.
type SearchResult struct {
	ID         string
	Request    SearchRequest
	Spot       SpotContext
	SearchedAt time.Time

	Best     *Candidate
	BestCall *Candidate
	BestPut  *Candidate
	Ranked   []Candidate

	Evaluated  int // filas del mes/lado pedidos
	Dropped    int // filas sin precio rankeable o filtradas por delta
	Faults     int // filas con NumericFault en el pricer
	Volatility map[Side]VolatilityResolution
}

// Empty devuelve true si no se encontró ningún candidato.
func (r SearchResult) Empty() bool {
	return r.Best == nil
}
