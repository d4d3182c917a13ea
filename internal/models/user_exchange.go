package models

// UserExchange is the saved credential record for one exchange as returned by
// GET /user-exchanges/forms. Secrets never come back, only whether one is stored.
type UserExchange struct {
	ID               int64  `json:"id"`
	ExchangeID       int64  `json:"exchangeId"`
	ExchangeName     string `json:"exchangeName,omitempty"`
	ShowInForms      bool   `json:"showInForms"`
	HasAPIKey        bool   `json:"hasApiKey"`
	HasAPISecret     bool   `json:"hasApiSecret"`
	HasAPIPassphrase bool   `json:"hasApiPassphrase"`
}

// UpsertUserExchange is the POST /user-exchanges payload.
// Secret fields left empty keep the stored value.
type UpsertUserExchange struct {
	ExchangeID    int64  `json:"exchangeId"`
	APIKey        string `json:"apiKey,omitempty"`
	APISecret     string `json:"apiSecret,omitempty"`
	APIPassphrase string `json:"apiPassphrase,omitempty"`
	ShowInForms   bool   `json:"showInForms"`
}
