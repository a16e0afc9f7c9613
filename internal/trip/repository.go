package trip

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fkhayef/tripsplit/internal/notification"
)

const (
	tripColumns        = `id, name, destination, start_date, end_date, organizer_id, created_at`
	participantColumns = `tp.trip_id, tp.user_id, tp.status, tp.role, tp.joined_at, u.display_name`
)

// Repository handles trip and participant persistence
type Repository struct {
	db        *sql.DB
	publisher *notification.Publisher
}

// NewRepository creates a new trip repository
func NewRepository(db *sql.DB, publisher *notification.Publisher) *Repository {
	return &Repository{db: db, publisher: publisher}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(row scanner) (*Trip, error) {
	trip := &Trip{}
	err := row.Scan(
		&trip.ID,
		&trip.Name,
		&trip.Destination,
		&trip.StartDate,
		&trip.EndDate,
		&trip.OrganizerID,
		&trip.CreatedAt,
	)
	return trip, err
}

func scanParticipant(row scanner) (*Participant, error) {
	p := &Participant{}
	err := row.Scan(
		&p.TripID,
		&p.UserID,
		&p.Status,
		&p.Role,
		&p.JoinedAt,
		&p.DisplayName,
	)
	return p, err
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

// Create inserts the trip and its organizer as a joined participant in one transaction
func (r *Repository) Create(ctx context.Context, trip *Trip) (*Trip, error) {
	var created *Trip
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO trips (id, name, destination, start_date, end_date, organizer_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING ` + tripColumns

		var err error
		created, err = scanTrip(tx.QueryRowContext(ctx, query,
			trip.ID,
			trip.Name,
			trip.Destination,
			trip.StartDate,
			trip.EndDate,
			trip.OrganizerID,
		))
		if err != nil {
			return fmt.Errorf("failed to create trip: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO trip_participants (trip_id, user_id, status, role)
			VALUES ($1, $2, $3, $4)
		`, trip.ID, trip.OrganizerID, StatusJoined, RoleOrganizer)
		if err != nil {
			return fmt.Errorf("failed to add organizer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a trip by its ID
func (r *Repository) GetByID(ctx context.Context, id string) (*Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	return trip, nil
}

// ListByUserID retrieves the trips a user takes part in
func (r *Repository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*Trip, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM trip_participants WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	query := `
		SELECT t.id, t.name, t.destination, t.start_date, t.end_date, t.organizer_id, t.created_at
		FROM trips t
		JOIN trip_participants tp ON t.id = tp.trip_id
		WHERE tp.user_id = $1
		ORDER BY t.created_at DESC, t.id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	trips := []*Trip{}
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, trip)
	}

	return trips, total, rows.Err()
}

// Update modifies an existing trip. Nil fields are left unchanged.
func (r *Repository) Update(ctx context.Context, trip *Trip) (*Trip, error) {
	query := `
		UPDATE trips
		SET name = COALESCE($2, name),
		    destination = COALESCE($3, destination),
		    start_date = COALESCE($4, start_date),
		    end_date = COALESCE($5, end_date)
		WHERE id = $1
		RETURNING ` + tripColumns

	var name *string
	if trip.Name != "" {
		name = &trip.Name
	}

	updated, err := scanTrip(r.db.QueryRowContext(ctx, query, trip.ID, name, trip.Destination, trip.StartDate, trip.EndDate))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update trip: %w", err)
	}

	return updated, nil
}

// Delete removes a trip; participants and expenses cascade
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM trips WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete trip: %w", err)
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
			TripID: id, Entity: notification.EntityTrip, Action: notification.ActionDeleted, EntityID: id,
		})
	})
	return deleted, err
}

// AddParticipant invites a user to a trip
func (r *Repository) AddParticipant(ctx context.Context, tripID, userID string) (*Participant, error) {
	query := `
		WITH inserted AS (
			INSERT INTO trip_participants (trip_id, user_id, status, role)
			VALUES ($1, $2, $3, $4)
			RETURNING trip_id, user_id, status, role, joined_at
		)
		SELECT tp.trip_id, tp.user_id, tp.status, tp.role, tp.joined_at, u.display_name
		FROM inserted tp
		JOIN users u ON tp.user_id = u.id
	`

	p, err := scanParticipant(r.db.QueryRowContext(ctx, query, tripID, userID, StatusInvited, RoleMember))
	if err != nil {
		return nil, fmt.Errorf("failed to add participant: %w", err)
	}
	return p, nil
}

// GetParticipants retrieves everyone on a trip, invited or joined
func (r *Repository) GetParticipants(ctx context.Context, tripID string) ([]*Participant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM trip_participants tp
		JOIN users u ON tp.user_id = u.id
		WHERE tp.trip_id = $1
		ORDER BY tp.joined_at, tp.user_id
	`

	rows, err := r.db.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	participants := []*Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}

	return participants, rows.Err()
}

// GetParticipant retrieves one participant of a trip
func (r *Repository) GetParticipant(ctx context.Context, tripID, userID string) (*Participant, error) {
	query := `
		SELECT ` + participantColumns + `
		FROM trip_participants tp
		JOIN users u ON tp.user_id = u.id
		WHERE tp.trip_id = $1 AND tp.user_id = $2
	`

	p, err := scanParticipant(r.db.QueryRowContext(ctx, query, tripID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// ActiveParticipantIDs returns the organizer and every joined participant of a trip
func (r *Repository) ActiveParticipantIDs(ctx context.Context, tripID string) ([]string, error) {
	query := `
		SELECT organizer_id FROM trips WHERE id = $1
		UNION
		SELECT user_id FROM trip_participants WHERE trip_id = $1 AND status = $2
	`

	rows, err := r.db.QueryContext(ctx, query, tripID, StatusJoined)
	if err != nil {
		return nil, fmt.Errorf("failed to list participant ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan participant id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// UpdateParticipant changes a participant's status or role and announces the change
func (r *Repository) UpdateParticipant(ctx context.Context, tripID, userID string, req *UpdateParticipantRequest) (*Participant, error) {
	var updated *Participant
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			WITH updated AS (
				UPDATE trip_participants
				SET status = COALESCE($3, status),
				    role = COALESCE($4, role)
				WHERE trip_id = $1 AND user_id = $2
				RETURNING trip_id, user_id, status, role, joined_at
			)
			SELECT tp.trip_id, tp.user_id, tp.status, tp.role, tp.joined_at, u.display_name
			FROM updated tp
			JOIN users u ON tp.user_id = u.id
		`

		p, err := scanParticipant(tx.QueryRowContext(ctx, query, tripID, userID, req.Status, req.Role))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("failed to update participant: %w", err)
		}
		updated = p

		// Only joined users are in the split; the organizer never gets here demoted
		if p.Status != StatusJoined {
			if err := hasExpenses(ctx, tx, tripID, userID); err != nil {
				return err
			}
		}

		return r.publisher.Publish(ctx, tx, notification.Event{
			TripID: tripID, Entity: notification.EntityParticipant, Action: notification.ActionUpdated, EntityID: userID,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveParticipant removes a user from a trip and announces the change
func (r *Repository) RemoveParticipant(ctx context.Context, tripID, userID string) (bool, error) {
	var removed bool
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := hasExpenses(ctx, tx, tripID, userID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM trip_participants WHERE trip_id = $1 AND user_id = $2`, tripID, userID)
		if err != nil {
			return fmt.Errorf("failed to remove participant: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		removed = n > 0
		if !removed {
			return nil
		}
		return r.publisher.Publish(ctx, tx, notification.Event{
			TripID: tripID, Entity: notification.EntityParticipant, Action: notification.ActionDeleted, EntityID: userID,
		})
	})
	return removed, err
}

// hasExpenses returns ErrParticipantHasExpenses when the user paid for or shares any expense of the trip
func hasExpenses(ctx context.Context, tx *sql.Tx, tripID, userID string) error {
	query := `
		SELECT 1 FROM expenses
		WHERE trip_id = $1 AND (paid_by = $2 OR $2 = ANY(split_among))
		LIMIT 1
	`

	var found int
	err := tx.QueryRowContext(ctx, query, tripID, userID).Scan(&found)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check participant expenses: %w", err)
	}
	return ErrParticipantHasExpenses
}
