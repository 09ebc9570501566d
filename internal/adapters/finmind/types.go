package finmind

// response es el payload de la API de FinMind (dataset TaiwanOptionDaily) exportado a disco.
type response struct {
	Msg    string        `json:"msg"`
	Status int           `json:"status"`
	Data   []dailyRecord `json:"data"`
}

// dailyRecord es una fila de TaiwanOptionDaily.
type dailyRecord struct {
	Date            string  `json:"date"`          // "2024-05-16"
	OptionID        string  `json:"option_id"`     // "TXO"
	ContractDate    string  `json:"contract_date"` // "202406" o semanal "202406W4"
	StrikePrice     float64 `json:"strike_price"`
	CallPut         string  `json:"call_put"` // "call" | "put"
	Open            float64 `json:"open"`
	Max             float64 `json:"max"`
	Min             float64 `json:"min"`
	Close           float64 `json:"close"`
	Volume          float64 `json:"volume"`
	SettlementPrice float64 `json:"settlement_price"`
	OpenInterest    float64 `json:"open_interest"`
	TradingSession  string  `json:"trading_session"` // "position" (regular) | "after_market"
}
