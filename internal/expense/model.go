package expense

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/tripsplit/internal/expense/split"
)

// Category is the fixed set of expense categories
type Category string

const (
	CategoryAccommodation Category = "accommodation"
	CategoryTransport     Category = "transport"
	CategoryFood          Category = "food"
	CategoryActivities    Category = "activities"
	CategoryShopping      Category = "shopping"
	CategoryOther         Category = "other"
)

// Expense is a cost paid by one participant and shared among several
type Expense struct {
	ID          string
	TripID      string
	Description string
	Amount      decimal.Decimal
	Category    Category
	PaidBy      string
	SplitAmong  []string
	SplitType   split.Type
	CreatedAt   time.Time

	// Shares holds what each beneficiary owes, fixed when the expense is created
	Shares []split.Share
}

// ShareOf returns the stored share of participantID, or zero when it has none
func (e *Expense) ShareOf(participantID string) decimal.Decimal {
	for _, s := range e.Shares {
		if s.ParticipantID == participantID {
			return s.Amount
		}
	}
	return decimal.Zero
}
