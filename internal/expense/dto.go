package expense

import (
	"github.com/shopspring/decimal"

	"github.com/fkhayef/tripsplit/internal/expense/split"
)

// CreateExpenseRequest represents the request to record an expense
type CreateExpenseRequest struct {
	TripID      string                     `json:"tripId" validate:"required"`
	Description string                     `json:"description" validate:"required,max=100"`
	Amount      decimal.Decimal            `json:"amount" validate:"required,gt=0,lte=10000" swaggertype:"number"`
	Category    Category                   `json:"category" validate:"required,oneof=accommodation transport food activities shopping other"`
	PaidBy      string                     `json:"paidBy" validate:"required"`
	SplitType   split.Type                 `json:"splitType" validate:"omitempty,oneof=equal custom percentage"`
	SplitAmong  []string                   `json:"splitAmong,omitempty" validate:"omitempty,unique,dive,required"`
	Shares      map[string]decimal.Decimal `json:"shares,omitempty" swaggertype:"object,number"`
	Percentages map[string]decimal.Decimal `json:"percentages,omitempty" swaggertype:"object,number"`
}

// ValidationResult is the outcome of validating an expense: one message per invalid field
type ValidationResult struct {
	IsValid bool              `json:"isValid"`
	Errors  map[string]string `json:"errors"`
}

// ExpenseResponse represents the response for an expense
type ExpenseResponse struct {
	ID          string          `json:"id"`
	TripID      string          `json:"tripId"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"number"`
	Category    Category        `json:"category"`
	PaidBy      string          `json:"paidBy"`
	SplitType   split.Type      `json:"splitType"`
	SplitAmong  []string        `json:"splitAmong"`
	Shares      []split.Share   `json:"shares"`
	CreatedAt   string          `json:"createdAt"`
}

// ToResponse converts an Expense model to an ExpenseResponse DTO
func (e *Expense) ToResponse() *ExpenseResponse {
	shares := e.Shares
	if shares == nil {
		shares = []split.Share{}
	}
	return &ExpenseResponse{
		ID:          e.ID,
		TripID:      e.TripID,
		Description: e.Description,
		Amount:      e.Amount,
		Category:    e.Category,
		PaidBy:      e.PaidBy,
		SplitType:   e.SplitType,
		SplitAmong:  e.SplitAmong,
		Shares:      shares,
		CreatedAt:   e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
