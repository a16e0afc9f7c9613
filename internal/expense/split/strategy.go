package split

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Type defines how an expense is divided among its beneficiaries
type Type string

const (
	TypeEqual      Type = "equal"
	TypeCustom     Type = "custom"
	TypePercentage Type = "percentage"
)

var tolerance = decimal.New(5, -3)

// Tolerance is the largest difference between two money values still treated as equal
func Tolerance() decimal.Decimal { return tolerance }

// Input is one beneficiary of a split with the optional values a strategy needs
type Input struct {
	ParticipantID string
	Amount        *decimal.Decimal // custom
	Percentage    *decimal.Decimal // percentage
}

// Share is the amount one beneficiary owes for an expense
type Share struct {
	ParticipantID string           `json:"participantId"`
	Amount        decimal.Decimal  `json:"amount" swaggertype:"number"`
	Percentage    *decimal.Decimal `json:"percentage,omitempty" swaggertype:"number"`
}

// Strategy computes the shares of an expense
type Strategy interface {
	// Calculate returns one share per participant, in input order, summing to total
	Calculate(total decimal.Decimal, participants []Input) ([]Share, error)

	// Type returns the type identifier for this strategy
	Type() Type

	// Validate checks if the inputs are valid for this strategy
	Validate(total decimal.Decimal, participants []Input) error
}

// Factory creates split strategies based on the requested type
type Factory struct{}

// NewFactory creates a new factory instance
func NewFactory() *Factory {
	return &Factory{}
}

// Create returns the strategy for splitType
func (f *Factory) Create(splitType Type) (Strategy, error) {
	switch splitType {
	case TypeEqual:
		return &EqualStrategy{}, nil
	case TypeCustom:
		return &CustomStrategy{}, nil
	case TypePercentage:
		return &PercentageStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown split type: %s", splitType)
	}
}

// CreateFromString creates a strategy from a request value
func (f *Factory) CreateFromString(splitType string) (Strategy, error) {
	return f.Create(Type(splitType))
}

var (
	ErrNoParticipants       = errors.New("at least one participant is required")
	ErrDuplicateParticipant = errors.New("participants must be unique")
	ErrInvalidPercentages   = errors.New("percentages must sum to 100")
	ErrInvalidCustomAmounts = errors.New("custom amounts must sum to the expense amount")
	ErrNegativeAmount       = errors.New("amounts cannot be negative")
	ErrMissingPercentage    = errors.New("percentage value required for all participants")
	ErrMissingCustomAmount  = errors.New("custom amount required for all participants")
	ErrPercentageOutOfRange = errors.New("percentage must be between 0 and 100")
)

// toCents converts a money value to whole minor units, rounding half away from zero
func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func checkParticipants(participants []Input) error {
	if len(participants) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		if _, dup := seen[p.ParticipantID]; dup {
			return ErrDuplicateParticipant
		}
		seen[p.ParticipantID] = struct{}{}
	}
	return nil
}

// Inputs builds strategy inputs for a plain list of participant ids
func Inputs(ids []string) []Input {
	inputs := make([]Input, len(ids))
	for i, id := range ids {
		inputs[i] = Input{ParticipantID: id}
	}
	return inputs
}
