package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/fkhayef/tripsplit/internal/expense/split"
)

type party struct {
	id     string
	amount decimal.Decimal // always positive
}

// GenerateSettlements pairs the largest remaining creditor with the largest remaining debtor
// until one side runs out. Ties go to the smaller participant id, so identical input always
// yields identical transfers. Residue within split.Tolerance() of zero is dropped.
//
// The greedy match usually needs at most one transfer fewer than there are non-zero balances,
// but is not guaranteed minimal. When the balances do not net to zero a warning is returned
// with the best-effort settlements.
func GenerateSettlements(balances []ParticipantBalance) ([]Settlement, *BalanceIntegrityWarning) {
	var warning *BalanceIntegrityWarning
	sum := decimal.Zero
	for _, b := range balances {
		sum = sum.Add(b.NetBalance)
	}
	if sum.Abs().GreaterThan(split.Tolerance()) {
		warning = &BalanceIntegrityWarning{Sum: sum}
	}

	var creditors, debtors []party
	for _, b := range balances {
		switch {
		case b.NetBalance.GreaterThan(split.Tolerance()):
			creditors = append(creditors, party{id: b.ParticipantID, amount: b.NetBalance})
		case b.NetBalance.LessThan(split.Tolerance().Neg()):
			debtors = append(debtors, party{id: b.ParticipantID, amount: b.NetBalance.Neg()})
		}
	}

	settlements := []Settlement{}
	for len(creditors) > 0 && len(debtors) > 0 {
		ci, di := largest(creditors), largest(debtors)
		creditor, debtor := &creditors[ci], &debtors[di]

		amount := decimal.Min(creditor.amount, debtor.amount).Round(2)
		if amount.IsPositive() {
			settlements = append(settlements, Settlement{
				FromParticipantID: debtor.id,
				ToParticipantID:   creditor.id,
				Amount:            amount,
			})
		}

		creditor.amount = creditor.amount.Sub(amount)
		debtor.amount = debtor.amount.Sub(amount)

		if settled(creditor.amount) {
			creditors = remove(creditors, ci)
		}
		if settled(debtor.amount) {
			debtors = remove(debtors, di)
		}
	}

	return settlements, warning
}

// largest returns the index of the party owed or owing the most, ties by id
func largest(parties []party) int {
	best := 0
	for i := 1; i < len(parties); i++ {
		switch parties[i].amount.Cmp(parties[best].amount) {
		case 1:
			best = i
		case 0:
			if parties[i].id < parties[best].id {
				best = i
			}
		}
	}
	return best
}

func settled(amount decimal.Decimal) bool {
	return amount.LessThanOrEqual(split.Tolerance())
}

func remove(parties []party, i int) []party {
	return append(parties[:i], parties[i+1:]...)
}
