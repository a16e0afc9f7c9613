package settlement

import "github.com/shopspring/decimal"

// ParticipantBalance is what one participant paid, owes and nets across a trip's expenses.
// A positive NetBalance means the group owes them money.
type ParticipantBalance struct {
	ParticipantID string          `json:"participantId"`
	DisplayName   string          `json:"displayName,omitempty"`
	TotalPaid     decimal.Decimal `json:"totalPaid" swaggertype:"number"`
	TotalOwed     decimal.Decimal `json:"totalOwed" swaggertype:"number"`
	NetBalance    decimal.Decimal `json:"netBalance" swaggertype:"number"`
}

// Settlement is one suggested transfer from a debtor to a creditor
type Settlement struct {
	FromParticipantID string          `json:"fromParticipantId"`
	ToParticipantID   string          `json:"toParticipantId"`
	Amount            decimal.Decimal `json:"amount" swaggertype:"number"`
}
