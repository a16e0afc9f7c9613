package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/fkhayef/tripsplit/internal/expense"
	"github.com/fkhayef/tripsplit/internal/expense/split"
)

// ComputeBalances returns one balance per participant id, in the order given, including
// participants with no expenses. Duplicate ids are collapsed.
//
// Equal splits are recomputed from the amount; custom and percentage splits use the shares
// stored with the expense, a missing share counting as zero. An expense with no beneficiaries
// is shared by every participant. Totals are rounded to cents, half away from zero.
func ComputeBalances(expenses []*expense.Expense, participantIDs []string) ([]ParticipantBalance, error) {
	ids := make([]string, 0, len(participantIDs))
	paid := make(map[string]decimal.Decimal, len(participantIDs))
	owed := make(map[string]decimal.Decimal, len(participantIDs))
	for _, id := range participantIDs {
		if _, seen := paid[id]; seen {
			continue
		}
		ids = append(ids, id)
		paid[id] = decimal.Zero
		owed[id] = decimal.Zero
	}

	for _, e := range expenses {
		if _, ok := paid[e.PaidBy]; !ok {
			return nil, &InvalidReferenceError{ExpenseID: e.ID, Field: "paidBy", ParticipantID: e.PaidBy}
		}

		beneficiaries := e.SplitAmong
		if len(beneficiaries) == 0 {
			beneficiaries = ids
		}
		for _, id := range beneficiaries {
			if _, ok := owed[id]; !ok {
				return nil, &InvalidReferenceError{ExpenseID: e.ID, Field: "splitAmong", ParticipantID: id}
			}
		}

		paid[e.PaidBy] = paid[e.PaidBy].Add(e.Amount)

		switch e.SplitType {
		case split.TypeCustom, split.TypePercentage:
			for _, id := range beneficiaries {
				owed[id] = owed[id].Add(e.ShareOf(id))
			}
		default:
			for _, s := range split.EqualShares(e.Amount, beneficiaries) {
				owed[s.ParticipantID] = owed[s.ParticipantID].Add(s.Amount)
			}
		}
	}

	balances := make([]ParticipantBalance, len(ids))
	for i, id := range ids {
		totalPaid := paid[id].Round(2)
		totalOwed := owed[id].Round(2)
		balances[i] = ParticipantBalance{
			ParticipantID: id,
			TotalPaid:     totalPaid,
			TotalOwed:     totalOwed,
			NetBalance:    totalPaid.Sub(totalOwed),
		}
	}
	return balances, nil
}
