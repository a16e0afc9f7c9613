package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/tripsplit/internal/expense"
	"github.com/fkhayef/tripsplit/internal/metrics"
)

// ExpenseSource lists every expense of a trip
type ExpenseSource interface {
	ListByTrip(ctx context.Context, tripID string) ([]*expense.Expense, error)
}

// ParticipantSource lists the participants whose balances are reported
type ParticipantSource interface {
	ListParticipantIDs(ctx context.Context, tripID string) ([]string, error)
}

// NameResolver maps participant ids to display names
type NameResolver interface {
	DisplayNames(ctx context.Context, ids []string) (map[string]string, error)
}

// Service loads a trip snapshot and runs the balance engine over it. It keeps no state
// between calls.
type Service struct {
	expenses     ExpenseSource
	participants ParticipantSource
	names        NameResolver
	logger       *slog.Logger
}

// NewService creates a new settlement service
func NewService(expenses ExpenseSource, participants ParticipantSource, names NameResolver, logger *slog.Logger) *Service {
	return &Service{
		expenses:     expenses,
		participants: participants,
		names:        names,
		logger:       logger,
	}
}

// Summarize computes the balances and suggested transfers of a trip from scratch
func (s *Service) Summarize(ctx context.Context, tripID string) (*Summary, error) {
	ids, err := s.participants.ListParticipantIDs(ctx, tripID)
	if err != nil {
		metrics.CountComputationFailure(metrics.OutcomeUpstreamFailure)
		return nil, err
	}

	expenses, err := s.expenses.ListByTrip(ctx, tripID)
	if err != nil {
		metrics.CountComputationFailure(metrics.OutcomeUpstreamFailure)
		return nil, err
	}

	start := time.Now()
	balances, err := ComputeBalances(expenses, ids)
	if err != nil {
		metrics.CountComputationFailure(metrics.OutcomeInvalidRef)
		s.logger.Error("Failed to compute balances",
			"trip_id", tripID,
			"error", err,
		)
		return nil, err
	}
	settlements, warning := GenerateSettlements(balances)

	outcome := metrics.OutcomeOK
	summary := &Summary{
		TripID:      tripID,
		TotalSpent:  totalSpent(expenses),
		Balances:    balances,
		Settlements: settlements,
	}
	if warning != nil {
		outcome = metrics.OutcomeWarning
		summary.Warning = warning.Error()
		s.logger.Warn("Balances do not net to zero",
			"trip_id", tripID,
			"sum", warning.Sum.String(),
		)
	}
	metrics.ObserveComputation(outcome, time.Since(start), len(settlements))

	s.annotate(ctx, summary.Balances)
	return summary, nil
}

// BalanceFor returns one participant's balance with the transfers they take part in
func (s *Service) BalanceFor(ctx context.Context, tripID, participantID string) (*ParticipantSummary, error) {
	summary, err := s.Summarize(ctx, tripID)
	if err != nil {
		return nil, err
	}

	var balance *ParticipantBalance
	names := make(map[string]string, len(summary.Balances))
	for i := range summary.Balances {
		b := &summary.Balances[i]
		names[b.ParticipantID] = b.DisplayName
		if b.ParticipantID == participantID {
			balance = b
		}
	}
	if balance == nil {
		return nil, ErrParticipantNotFound
	}

	involved := []Settlement{}
	for _, st := range summary.Settlements {
		if st.FromParticipantID == participantID || st.ToParticipantID == participantID {
			involved = append(involved, st)
		}
	}

	return &ParticipantSummary{
		TripID:      tripID,
		Balance:     *balance,
		Settlements: involved,
		Message:     balanceMessage(participantID, involved, names),
	}, nil
}

// annotate fills in display names. Names are cosmetic, so a lookup failure is only logged.
func (s *Service) annotate(ctx context.Context, balances []ParticipantBalance) {
	if s.names == nil || len(balances) == 0 {
		return
	}

	ids := make([]string, len(balances))
	for i, b := range balances {
		ids[i] = b.ParticipantID
	}

	names, err := s.names.DisplayNames(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to resolve display names", "error", err)
		return
	}
	for i := range balances {
		balances[i].DisplayName = names[balances[i].ParticipantID]
	}
}

func totalSpent(expenses []*expense.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total.Round(2)
}

func balanceMessage(participantID string, involved []Settlement, names map[string]string) string {
	var owes, owed []Settlement
	owesTotal, owedTotal := decimal.Zero, decimal.Zero
	for _, st := range involved {
		if st.FromParticipantID == participantID {
			owes = append(owes, st)
			owesTotal = owesTotal.Add(st.Amount)
		} else {
			owed = append(owed, st)
			owedTotal = owedTotal.Add(st.Amount)
		}
	}

	switch {
	case len(owes) == 1:
		return fmt.Sprintf("You owe %s $%s", nameOf(owes[0].ToParticipantID, names), owes[0].Amount.StringFixed(2))
	case len(owes) > 1:
		return fmt.Sprintf("You owe $%s to %d people", owesTotal.StringFixed(2), len(owes))
	case len(owed) == 1:
		return fmt.Sprintf("%s owes you $%s", nameOf(owed[0].FromParticipantID, names), owed[0].Amount.StringFixed(2))
	case len(owed) > 1:
		return fmt.Sprintf("%d people owe you $%s", len(owed), owedTotal.StringFixed(2))
	default:
		return "You are settled up"
	}
}

func nameOf(id string, names map[string]string) string {
	if name := names[id]; name != "" {
		return name
	}
	return id
}
