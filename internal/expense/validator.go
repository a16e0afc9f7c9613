package expense

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/tripsplit/internal/expense/split"
	"github.com/fkhayef/tripsplit/internal/trip"
	"github.com/fkhayef/tripsplit/pkg/validation"
)

// ParticipantDirectory resolves who takes part in a trip
type ParticipantDirectory interface {
	ListParticipantIDs(ctx context.Context, tripID string) ([]string, error)
}

// Validator checks expense input before it reaches the store. Every rule runs, so the caller
// gets all field errors at once.
type Validator struct {
	fields     *validation.Validator
	directory  ParticipantDirectory
	strategies *split.Factory
}

// NewValidator creates an expense validator backed by the participant directory
func NewValidator(fields *validation.Validator, directory ParticipantDirectory, strategies *split.Factory) *Validator {
	return &Validator{fields: fields, directory: directory, strategies: strategies}
}

// Validate normalizes req in place (trimmed description, default split type, beneficiaries
// defaulting to every trip participant) and checks it. The error is only non-nil when the
// participant directory could not be consulted.
func (v *Validator) Validate(ctx context.Context, req *CreateExpenseRequest) (*ValidationResult, error) {
	req.Description = strings.TrimSpace(req.Description)
	if req.SplitType == "" {
		req.SplitType = split.TypeEqual
	}

	errs := make(map[string]string)
	for field, msg := range v.fields.Struct(req) {
		errs[field] = msg
	}

	if _, bad := errs["amount"]; !bad && !req.Amount.Equal(req.Amount.Round(2)) {
		errs["amount"] = "amount must have at most two decimal places"
	}

	if req.TripID != "" {
		ids, err := v.directory.ListParticipantIDs(ctx, req.TripID)
		switch {
		case errors.Is(err, trip.ErrTripNotFound):
			errs["tripId"] = "trip not found"
		case err != nil:
			return nil, fmt.Errorf("failed to load trip participants: %w", err)
		default:
			if len(req.SplitAmong) == 0 {
				req.SplitAmong = append([]string(nil), ids...)
			}
			checkMembership(req, ids, errs)
		}
	}

	if _, bad := errs["splitAmong"]; !bad && len(req.SplitAmong) > 0 {
		switch req.SplitType {
		case split.TypeCustom:
			v.checkAllocation(req, req.Shares, "shares", "share", errs)
		case split.TypePercentage:
			v.checkAllocation(req, req.Percentages, "percentages", "percentage", errs)
		}
	}

	return &ValidationResult{IsValid: len(errs) == 0, Errors: errs}, nil
}

func checkMembership(req *CreateExpenseRequest, participantIDs []string, errs map[string]string) {
	known := make(map[string]bool, len(participantIDs))
	for _, id := range participantIDs {
		known[id] = true
	}

	if _, bad := errs["paidBy"]; !bad && !known[req.PaidBy] {
		errs["paidBy"] = "paidBy must be a participant of the trip"
	}

	if _, bad := errs["splitAmong"]; bad {
		return
	}
	if len(req.SplitAmong) == 0 {
		errs["splitAmong"] = "at least one participant must share the expense"
		return
	}
	for _, id := range req.SplitAmong {
		if !known[id] {
			errs["splitAmong"] = fmt.Sprintf("%s is not a participant of the trip", id)
			return
		}
	}
}

// checkAllocation validates the per-person values of a custom or percentage split
func (v *Validator) checkAllocation(req *CreateExpenseRequest, values map[string]decimal.Decimal, field, noun string, errs map[string]string) {
	if len(values) == 0 {
		errs[field] = fmt.Sprintf("%s are required for a %s split", field, req.SplitType)
		return
	}

	beneficiaries := make(map[string]bool, len(req.SplitAmong))
	for _, id := range req.SplitAmong {
		beneficiaries[id] = true
		if _, ok := values[id]; !ok {
			errs[field] = fmt.Sprintf("missing %s for %s", noun, id)
			return
		}
	}

	keys := make([]string, 0, len(values))
	for id := range values {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	for _, id := range keys {
		if !beneficiaries[id] {
			errs[field] = fmt.Sprintf("%s is not sharing this expense", id)
			return
		}
		if !values[id].Equal(values[id].Round(2)) {
			errs[field] = fmt.Sprintf("%s for %s must have at most two decimal places", noun, id)
			return
		}
	}

	// The sum can only be checked against a usable amount
	if _, bad := errs["amount"]; bad {
		return
	}

	strategy, err := v.strategies.Create(req.SplitType)
	if err != nil {
		return
	}
	if err := strategy.Validate(req.Amount, allocationInputs(req)); err != nil {
		errs[field] = allocationMessage(err, req)
	}
}

func allocationMessage(err error, req *CreateExpenseRequest) string {
	if errors.Is(err, split.ErrInvalidCustomAmounts) {
		sum := decimal.Zero
		for _, id := range req.SplitAmong {
			sum = sum.Add(req.Shares[id])
		}
		return fmt.Sprintf("shares must add up to the expense amount (got %s, expected %s)", sum.StringFixed(2), req.Amount.StringFixed(2))
	}
	return err.Error()
}

// allocationInputs turns the request into split strategy inputs, in splitAmong order
func allocationInputs(req *CreateExpenseRequest) []split.Input {
	inputs := make([]split.Input, len(req.SplitAmong))
	for i, id := range req.SplitAmong {
		inputs[i] = split.Input{ParticipantID: id}
		if amount, ok := req.Shares[id]; ok {
			inputs[i].Amount = &amount
		}
		if pct, ok := req.Percentages[id]; ok {
			inputs[i].Percentage = &pct
		}
	}
	return inputs
}
