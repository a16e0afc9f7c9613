package settlement

import "github.com/shopspring/decimal"

// Summary is the full balance report of a trip
type Summary struct {
	TripID      string               `json:"tripId"`
	TotalSpent  decimal.Decimal      `json:"totalSpent" swaggertype:"number"`
	Balances    []ParticipantBalance `json:"balances"`
	Settlements []Settlement         `json:"settlements"`
	Warning     string               `json:"warning,omitempty"`
}

// ParticipantSummary is one participant's view of a trip's balances
type ParticipantSummary struct {
	TripID      string             `json:"tripId"`
	Balance     ParticipantBalance `json:"balance"`
	Settlements []Settlement       `json:"settlements"`
	Message     string             `json:"message"` // e.g., "You owe Ana $12.50" or "Ana owes you $30.00"
}
