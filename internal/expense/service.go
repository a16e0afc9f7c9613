package expense

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/fkhayef/tripsplit/internal/expense/split"
	"github.com/fkhayef/tripsplit/internal/metrics"
)

// Common errors
var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrNotPayer        = errors.New("only the payer can delete an expense")
)

// ValidationError carries one message per rejected field
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid expense: " + strings.Join(parts, "; ")
}

// Service handles expense business logic
type Service struct {
	repo         *Repository
	validator    *Validator
	splitFactory *split.Factory
}

// NewService creates a new expense service with dependencies injected
func NewService(repo *Repository, validator *Validator, splitFactory *split.Factory) *Service {
	return &Service{
		repo:         repo,
		validator:    validator,
		splitFactory: splitFactory,
	}
}

// Validate checks an expense without storing it
func (s *Service) Validate(ctx context.Context, req *CreateExpenseRequest) (*ValidationResult, error) {
	result, err := s.validator.Validate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !result.IsValid {
		metrics.CountValidationFailures(result.Errors)
	}
	return result, nil
}

// CreateExpense validates the request, fixes each beneficiary's share and stores the expense.
// Invalid input is reported as a *ValidationError.
func (s *Service) CreateExpense(ctx context.Context, req *CreateExpenseRequest) (*Expense, error) {
	result, err := s.Validate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !result.IsValid {
		return nil, &ValidationError{Fields: result.Errors}
	}

	strategy, err := s.splitFactory.Create(req.SplitType)
	if err != nil {
		return nil, err
	}

	shares, err := strategy.Calculate(req.Amount, allocationInputs(req))
	if err != nil {
		return nil, fmt.Errorf("failed to split expense: %w", err)
	}

	return s.repo.Create(ctx, &Expense{
		ID:          uuid.NewString(),
		TripID:      req.TripID,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		PaidBy:      req.PaidBy,
		SplitAmong:  req.SplitAmong,
		SplitType:   req.SplitType,
		Shares:      shares,
	})
}

// GetExpenseByID retrieves an expense with its shares
func (s *Service) GetExpenseByID(ctx context.Context, id string) (*Expense, error) {
	expense, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, ErrExpenseNotFound
	}
	return expense, nil
}

// ListExpensesByTripID retrieves one page of a trip's expenses
func (s *Service) ListExpensesByTripID(ctx context.Context, tripID string, page, perPage int) ([]*Expense, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByTripPaged(ctx, tripID, perPage, offset)
}

// ListByTrip returns every expense of a trip
func (s *Service) ListByTrip(ctx context.Context, tripID string) ([]*Expense, error) {
	return s.repo.ListByTrip(ctx, tripID)
}

// DeleteExpense removes an expense; only its payer may do so
func (s *Service) DeleteExpense(ctx context.Context, id, userID string) error {
	expense, err := s.GetExpenseByID(ctx, id)
	if err != nil {
		return err
	}

	if expense.PaidBy != userID {
		return ErrNotPayer
	}

	deleted, err := s.repo.Delete(ctx, expense)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrExpenseNotFound
	}
	return nil
}
