package models

// Trade is a trade journal record as exchanged with the API.
// Optional numeric fields are pointers so an empty form input is sent as
// absent rather than zero.
type Trade struct {
	ID         int64    `json:"id,omitempty"`
	Symbol     string   `json:"symbol"`
	Type       string   `json:"type,omitempty"` // "spot" or "futures"
	Leverage   *float64 `json:"leverage,omitempty"`
	EntryPrice *float64 `json:"entry_price,omitempty"`
	ExitPrice  *float64 `json:"exit_price,omitempty"`
	Fee        *float64 `json:"fee,omitempty"`
	Indicators string   `json:"indicators,omitempty"`
	Sentiment  string   `json:"sentiment,omitempty"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	Exchange   string   `json:"exchange,omitempty"`
	TradeDate  string   `json:"trade_date,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

// Trade types offered by the record form.
const (
	TradeTypeSpot    = "spot"
	TradeTypeFutures = "futures"
)
