package split

import (
	"sort"

	"github.com/shopspring/decimal"
)

// EqualStrategy divides an expense equally. Every beneficiary owes floor(total/N) cents and
// the leftover cents go one each to the first beneficiaries in ascending participant id order.
type EqualStrategy struct{}

// Type returns the split type identifier
func (s *EqualStrategy) Type() Type {
	return TypeEqual
}

// Validate checks if the inputs are valid for an equal split
func (s *EqualStrategy) Validate(total decimal.Decimal, participants []Input) error {
	if err := checkParticipants(participants); err != nil {
		return err
	}
	if total.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Calculate divides total among participants so that the shares add up to it exactly
func (s *EqualStrategy) Calculate(total decimal.Decimal, participants []Input) ([]Share, error) {
	if err := s.Validate(total, participants); err != nil {
		return nil, err
	}

	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.ParticipantID
	}
	return EqualShares(total, ids), nil
}

// EqualShares is the equal split rule on its own. Shares come back in the order of ids.
// It assumes ids is non-empty and free of duplicates.
func EqualShares(total decimal.Decimal, ids []string) []Share {
	n := int64(len(ids))
	if n == 0 {
		return nil
	}

	cents := toCents(total)
	base := cents / n
	remainder := cents % n

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	extra := make(map[string]bool, remainder)
	for i := int64(0); i < remainder; i++ {
		extra[sorted[i]] = true
	}

	shares := make([]Share, len(ids))
	for i, id := range ids {
		c := base
		if extra[id] {
			c++
		}
		shares[i] = Share{ParticipantID: id, Amount: fromCents(c)}
	}
	return shares
}
