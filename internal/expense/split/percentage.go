package split

import (
	"sort"

	"github.com/shopspring/decimal"
)

var (
	hundred             = decimal.NewFromInt(100)
	percentageTolerance = decimal.RequireFromString("0.01")
)

// PercentageStrategy divides an expense by per-person percentages. The result is converted to
// cent amounts once, at creation time, with largest-remainder apportionment so that the shares
// add up to the expense amount.
type PercentageStrategy struct{}

// Type returns the split type identifier
func (s *PercentageStrategy) Type() Type {
	return TypePercentage
}

// Validate checks that every participant has a percentage in [0, 100] and that they sum to 100
func (s *PercentageStrategy) Validate(total decimal.Decimal, participants []Input) error {
	if err := checkParticipants(participants); err != nil {
		return err
	}
	if total.IsNegative() {
		return ErrNegativeAmount
	}

	sum := decimal.Zero
	for _, p := range participants {
		if p.Percentage == nil {
			return ErrMissingPercentage
		}
		if p.Percentage.IsNegative() || p.Percentage.GreaterThan(hundred) {
			return ErrPercentageOutOfRange
		}
		sum = sum.Add(*p.Percentage)
	}

	if sum.Sub(hundred).Abs().GreaterThan(percentageTolerance) {
		return ErrInvalidPercentages
	}
	return nil
}

// Calculate converts percentages to cent shares
func (s *PercentageStrategy) Calculate(total decimal.Decimal, participants []Input) ([]Share, error) {
	if err := s.Validate(total, participants); err != nil {
		return nil, err
	}

	type portion struct {
		index    int
		cents    int64
		fraction decimal.Decimal
	}

	totalCents := decimal.NewFromInt(toCents(total))
	portions := make([]portion, len(participants))
	var assigned int64
	for i, p := range participants {
		exact := totalCents.Mul(*p.Percentage).Div(hundred)
		floor := exact.Floor()
		portions[i] = portion{index: i, cents: floor.IntPart(), fraction: exact.Sub(floor)}
		assigned += floor.IntPart()
	}

	// Largest fractional part first, ties by participant id
	order := make([]int, len(portions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := portions[order[a]], portions[order[b]]
		if !pa.fraction.Equal(pb.fraction) {
			return pa.fraction.GreaterThan(pb.fraction)
		}
		return participants[pa.index].ParticipantID < participants[pb.index].ParticipantID
	})

	remaining := totalCents.IntPart() - assigned
	for i := 0; remaining > 0; i++ {
		portions[order[i%len(order)]].cents++
		remaining--
	}
	// Percentages summing slightly above 100 overshoot; take back from the smallest fractions
	for i := len(order) - 1; remaining < 0; i-- {
		if i < 0 {
			i = len(order) - 1
		}
		if p := &portions[order[i]]; p.cents > 0 {
			p.cents--
			remaining++
		}
	}

	shares := make([]Share, len(participants))
	for i, p := range participants {
		pct := p.Percentage.Round(2)
		shares[i] = Share{
			ParticipantID: p.ParticipantID,
			Amount:        fromCents(portions[i].cents),
			Percentage:    &pct,
		}
	}
	return shares, nil
}
