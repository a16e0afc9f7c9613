package expense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/tripsplit/internal/expense/split"
	"github.com/fkhayef/tripsplit/internal/notification"
)

const expenseColumns = `e.id, e.trip_id, e.description, e.amount, e.category, e.paid_by, e.split_type, e.split_among, e.created_at`

// Repository handles expense and share persistence
type Repository struct {
	db        *sql.DB
	publisher *notification.Publisher
}

// NewRepository creates a new expense repository
func NewRepository(db *sql.DB, publisher *notification.Publisher) *Repository {
	return &Repository{db: db, publisher: publisher}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(row scanner, extra ...any) (*Expense, error) {
	e := &Expense{}
	dest := append([]any{
		&e.ID,
		&e.TripID,
		&e.Description,
		&e.Amount,
		&e.Category,
		&e.PaidBy,
		&e.SplitType,
		pq.Array(&e.SplitAmong),
		&e.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Create stores an expense together with its shares and announces it
func (r *Repository) Create(ctx context.Context, e *Expense) (*Expense, error) {
	var created *Expense
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO expenses AS e (id, trip_id, description, amount, category, paid_by, split_type, split_among)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING ` + expenseColumns

		var err error
		created, err = scanExpense(tx.QueryRowContext(ctx, query,
			e.ID,
			e.TripID,
			e.Description,
			e.Amount,
			e.Category,
			e.PaidBy,
			e.SplitType,
			pq.Array(e.SplitAmong),
		))
		if err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}

		for _, s := range e.Shares {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO expense_shares (expense_id, participant_id, amount, percentage)
				VALUES ($1, $2, $3, $4)
			`, e.ID, s.ParticipantID, s.Amount, nullablePercentage(s.Percentage))
			if err != nil {
				return fmt.Errorf("failed to create share for %s: %w", s.ParticipantID, err)
			}
		}
		created.Shares = e.Shares

		return r.publisher.Publish(ctx, tx, notification.Event{
			TripID: e.TripID, Entity: notification.EntityExpense, Action: notification.ActionCreated, EntityID: e.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func nullablePercentage(p *decimal.Decimal) decimal.NullDecimal {
	if p == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*p)
}

// GetByID retrieves an expense with its shares
func (r *Repository) GetByID(ctx context.Context, id string) (*Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses e WHERE e.id = $1`

	e, err := scanExpense(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if err := r.attachShares(ctx, []*Expense{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// ListByTrip returns every expense of a trip with its shares. A single statement is used so
// the result is one consistent snapshot.
func (r *Repository) ListByTrip(ctx context.Context, tripID string) ([]*Expense, error) {
	query := `
		SELECT ` + expenseColumns + `, s.participant_id, s.amount, s.percentage
		FROM expenses e
		LEFT JOIN expense_shares s ON s.expense_id = e.id
		WHERE e.trip_id = $1
		ORDER BY e.created_at, e.id, s.participant_id
	`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []*Expense{}
	var current *Expense
	for rows.Next() {
		var (
			participantID sql.NullString
			amount        decimal.NullDecimal
			percentage    decimal.NullDecimal
		)
		e, err := scanExpense(rows, &participantID, &amount, &percentage)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		if current == nil || current.ID != e.ID {
			current = e
			expenses = append(expenses, current)
		}
		if participantID.Valid {
			current.Shares = append(current.Shares, newShare(participantID.String, amount, percentage))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	for _, e := range expenses {
		orderShares(e)
	}
	return expenses, nil
}

// ListByTripPaged retrieves one page of a trip's expenses, newest first
func (r *Repository) ListByTripPaged(ctx context.Context, tripID string, limit, offset int) ([]*Expense, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM expenses WHERE trip_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, tripID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	query := `
		SELECT ` + expenseColumns + `
		FROM expenses e
		WHERE e.trip_id = $1
		ORDER BY e.created_at DESC, e.id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, tripID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []*Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}

	if err := r.attachShares(ctx, expenses); err != nil {
		return nil, 0, err
	}
	return expenses, total, nil
}

func (r *Repository) attachShares(ctx context.Context, expenses []*Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	byID := make(map[string]*Expense, len(expenses))
	ids := make([]string, len(expenses))
	for i, e := range expenses {
		byID[e.ID] = e
		ids[i] = e.ID
	}

	query := `
		SELECT expense_id, participant_id, amount, percentage
		FROM expense_shares
		WHERE expense_id = ANY($1)
		ORDER BY expense_id, participant_id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			expenseID, participantID string
			amount, percentage       decimal.NullDecimal
		)
		if err := rows.Scan(&expenseID, &participantID, &amount, &percentage); err != nil {
			return fmt.Errorf("failed to scan share: %w", err)
		}
		if e, ok := byID[expenseID]; ok {
			e.Shares = append(e.Shares, newShare(participantID, amount, percentage))
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to get shares: %w", err)
	}

	for _, e := range expenses {
		orderShares(e)
	}
	return nil
}

func newShare(participantID string, amount, percentage decimal.NullDecimal) split.Share {
	s := split.Share{ParticipantID: participantID, Amount: amount.Decimal}
	if percentage.Valid {
		p := percentage.Decimal
		s.Percentage = &p
	}
	return s
}

// orderShares puts shares back in splitAmong order
func orderShares(e *Expense) {
	if len(e.Shares) < 2 {
		return
	}
	byParticipant := make(map[string]split.Share, len(e.Shares))
	for _, s := range e.Shares {
		byParticipant[s.ParticipantID] = s
	}
	ordered := make([]split.Share, 0, len(e.Shares))
	for _, id := range e.SplitAmong {
		if s, ok := byParticipant[id]; ok {
			ordered = append(ordered, s)
			delete(byParticipant, id)
		}
	}
	// Shares for ids missing from splitAmong keep their query order
	for _, s := range e.Shares {
		if _, ok := byParticipant[s.ParticipantID]; ok {
			ordered = append(ordered, s)
		}
	}
	e.Shares = ordered
}

// Delete removes an expense and its shares and announces the change
func (r *Repository) Delete(ctx context.Context, e *Expense) (bool, error) {
	var deleted bool
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM expense_shares WHERE expense_id = $1`, e.ID); err != nil {
			return fmt.Errorf("failed to delete shares: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, e.ID)
		if err != nil {
			return fmt.Errorf("failed to delete expense: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		deleted = n > 0
		if !deleted {
			return nil
		}

		return r.publisher.Publish(ctx, tx, notification.Event{
			TripID: e.TripID, Entity: notification.EntityExpense, Action: notification.ActionDeleted, EntityID: e.ID,
		})
	})
	return deleted, err
}
