package settlement

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidReference matches every *InvalidReferenceError
	ErrInvalidReference    = errors.New("expense references an unknown participant")
	ErrParticipantNotFound = errors.New("participant not found on this trip")
)

// InvalidReferenceError reports an expense naming someone who is not a trip participant
type InvalidReferenceError struct {
	ExpenseID     string
	Field         string // paidBy or splitAmong
	ParticipantID string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("expense %s: %s %q is not a trip participant", e.ExpenseID, e.Field, e.ParticipantID)
}

func (e *InvalidReferenceError) Unwrap() error {
	return ErrInvalidReference
}

// BalanceIntegrityWarning means the balances handed to the generator did not net to zero.
// Settlements are still produced; the imbalance is left unsettled.
type BalanceIntegrityWarning struct {
	Sum decimal.Decimal
}

func (w *BalanceIntegrityWarning) Error() string {
	return fmt.Sprintf("balances sum to %s instead of zero", w.Sum.StringFixed(2))
}
