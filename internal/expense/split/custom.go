package split

import "github.com/shopspring/decimal"

// CustomStrategy uses the per-person amounts supplied with the expense
type CustomStrategy struct{}

// Type returns the split type identifier
func (s *CustomStrategy) Type() Type {
	return TypeCustom
}

// Validate checks that every participant has a non-negative amount and that they add up to total
func (s *CustomStrategy) Validate(total decimal.Decimal, participants []Input) error {
	if err := checkParticipants(participants); err != nil {
		return err
	}
	if total.IsNegative() {
		return ErrNegativeAmount
	}

	sum := decimal.Zero
	for _, p := range participants {
		if p.Amount == nil {
			return ErrMissingCustomAmount
		}
		if p.Amount.IsNegative() {
			return ErrNegativeAmount
		}
		sum = sum.Add(*p.Amount)
	}

	if sum.Sub(total).Abs().GreaterThan(tolerance) {
		return ErrInvalidCustomAmounts
	}
	return nil
}

// Calculate returns the supplied amounts rounded to cents
func (s *CustomStrategy) Calculate(total decimal.Decimal, participants []Input) ([]Share, error) {
	if err := s.Validate(total, participants); err != nil {
		return nil, err
	}

	shares := make([]Share, len(participants))
	for i, p := range participants {
		shares[i] = Share{ParticipantID: p.ParticipantID, Amount: p.Amount.Round(2)}
	}
	return shares, nil
}
