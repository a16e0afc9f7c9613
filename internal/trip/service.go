package trip

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTripNotFound           = errors.New("trip not found")
	ErrParticipantNotFound    = errors.New("participant not found")
	ErrParticipantExists      = errors.New("user is already a participant of this trip")
	ErrNotOrganizer           = errors.New("only the organizer can perform this action")
	ErrInvalidDates           = errors.New("end date must not be before start date")
	ErrOrganizerCannotBeMoved = errors.New("the organizer cannot be removed or demoted")
	ErrParticipantHasExpenses = errors.New("participant still pays for or shares expenses of this trip")
)

// Service handles trip business logic
type Service struct {
	repo *Repository
}

// NewService creates a new trip service
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Create creates a new trip with the creator as organizer
func (s *Service) Create(ctx context.Context, creatorID string, req *CreateTripRequest) (*Trip, error) {
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, ErrInvalidDates
	}

	return s.repo.Create(ctx, &Trip{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Destination: req.Destination,
		StartDate:   start,
		EndDate:     end,
		OrganizerID: creatorID,
	})
}

// GetByID retrieves a trip by its ID
func (s *Service) GetByID(ctx context.Context, id string) (*Trip, error) {
	trip, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trip == nil {
		return nil, ErrTripNotFound
	}
	return trip, nil
}

// GetByIDWithParticipants retrieves a trip with everyone on it
func (s *Service) GetByIDWithParticipants(ctx context.Context, id string) (*Trip, []*Participant, error) {
	trip, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	participants, err := s.repo.GetParticipants(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return trip, participants, nil
}

// ListByUserID retrieves the trips of a user
func (s *Service) ListByUserID(ctx context.Context, userID string, page, perPage int) ([]*Trip, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByUserID(ctx, userID, perPage, offset)
}

// Update modifies a trip; only the organizer may do so
func (s *Service) Update(ctx context.Context, callerID, id string, req *UpdateTripRequest) (*Trip, error) {
	existing, err := s.organizedBy(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return nil, err
	}

	effectiveStart, effectiveEnd := existing.StartDate, existing.EndDate
	if start != nil {
		effectiveStart = start
	}
	if end != nil {
		effectiveEnd = end
	}
	if effectiveStart != nil && effectiveEnd != nil && effectiveEnd.Before(*effectiveStart) {
		return nil, ErrInvalidDates
	}

	changes := &Trip{ID: id, Destination: req.Destination, StartDate: start, EndDate: end}
	if req.Name != nil {
		changes.Name = *req.Name
	}

	updated, err := s.repo.Update(ctx, changes)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrTripNotFound
	}
	return updated, nil
}

// Delete removes a trip; only the organizer may do so
func (s *Service) Delete(ctx context.Context, callerID, id string) error {
	if _, err := s.organizedBy(ctx, id, callerID); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrTripNotFound
	}
	return nil
}

// AddParticipant invites a user to a trip; only the organizer may do so
func (s *Service) AddParticipant(ctx context.Context, callerID, tripID string, req *AddParticipantRequest) (*Participant, error) {
	if _, err := s.organizedBy(ctx, tripID, callerID); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetParticipant(ctx, tripID, req.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrParticipantExists
	}

	return s.repo.AddParticipant(ctx, tripID, req.UserID)
}

// GetParticipants retrieves everyone on a trip
func (s *Service) GetParticipants(ctx context.Context, tripID string) ([]*Participant, error) {
	if _, err := s.GetByID(ctx, tripID); err != nil {
		return nil, err
	}
	return s.repo.GetParticipants(ctx, tripID)
}

// UpdateParticipant changes a participant's status or role. The organizer may change anyone;
// other users may only change their own status. A participant still on an expense cannot be
// moved back out of the split.
func (s *Service) UpdateParticipant(ctx context.Context, callerID, tripID, userID string, req *UpdateParticipantRequest) (*Participant, error) {
	trip, err := s.authorize(ctx, tripID, callerID, callerID == userID && req.Role == nil)
	if err != nil {
		return nil, err
	}
	if userID == trip.OrganizerID && (req.Role != nil && *req.Role != RoleOrganizer || req.Status != nil && *req.Status != StatusJoined) {
		return nil, ErrOrganizerCannotBeMoved
	}

	p, err := s.repo.UpdateParticipant(ctx, tripID, userID, req)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrParticipantNotFound
	}
	return p, nil
}

// RemoveParticipant removes a user from a trip. The organizer stays, and so does anyone still on
// an expense. Users other than the organizer may only remove themselves.
func (s *Service) RemoveParticipant(ctx context.Context, callerID, tripID, userID string) error {
	trip, err := s.authorize(ctx, tripID, callerID, callerID == userID)
	if err != nil {
		return err
	}
	if userID == trip.OrganizerID {
		return ErrOrganizerCannotBeMoved
	}

	removed, err := s.repo.RemoveParticipant(ctx, tripID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrParticipantNotFound
	}
	return nil
}

// AcceptInvitation marks an invited user as joined
func (s *Service) AcceptInvitation(ctx context.Context, tripID, userID string) (*Participant, error) {
	p, err := s.repo.GetParticipant(ctx, tripID, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrParticipantNotFound
	}
	if p.Status == StatusJoined {
		return p, nil
	}

	joined := StatusJoined
	return s.UpdateParticipant(ctx, userID, tripID, userID, &UpdateParticipantRequest{Status: &joined})
}

// ListParticipantIDs returns the ids of everyone who shares the trip's costs: the organizer and
// every participant who has joined. Invitees who have not accepted are left out. The result is
// sorted so that callers get a stable order.
func (s *Service) ListParticipantIDs(ctx context.Context, tripID string) ([]string, error) {
	if _, err := s.GetByID(ctx, tripID); err != nil {
		return nil, err
	}

	ids, err := s.repo.ActiveParticipantIDs(ctx, tripID)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Service) organizedBy(ctx context.Context, tripID, callerID string) (*Trip, error) {
	trip, err := s.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.OrganizerID != callerID {
		return nil, ErrNotOrganizer
	}
	return trip, nil
}

// authorize lets the organizer through, and anyone else only when self is set
func (s *Service) authorize(ctx context.Context, tripID, callerID string, self bool) (*Trip, error) {
	if self {
		return s.GetByID(ctx, tripID)
	}
	return s.organizedBy(ctx, tripID, callerID)
}

func parseDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *value)
	if err != nil {
		return nil, ErrInvalidDates
	}
	return &t, nil
}
