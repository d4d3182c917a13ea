package models

// Exchange is a venue supported by the API.
type Exchange struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Pair is a tradable symbol offered by the lookup endpoint.
type Pair struct {
	ID     int64  `json:"id"`
	Symbol string `json:"symbol"`
}
