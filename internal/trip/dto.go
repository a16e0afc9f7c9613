package trip

import "strings"

const dateLayout = "2006-01-02"

// CreateTripRequest represents the request to create a new trip
type CreateTripRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Destination *string `json:"destination,omitempty" validate:"omitempty,max=200"`
	StartDate   *string `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Normalize trims user-entered text
func (r *CreateTripRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	if r.Destination != nil {
		d := strings.TrimSpace(*r.Destination)
		r.Destination = &d
	}
}

// UpdateTripRequest represents the request to update a trip
type UpdateTripRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Destination *string `json:"destination,omitempty" validate:"omitempty,max=200"`
	StartDate   *string `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// AddParticipantRequest invites a user to a trip
type AddParticipantRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

// UpdateParticipantRequest represents the request to change a participant's status or role
type UpdateParticipantRequest struct {
	Status *ParticipantStatus `json:"status,omitempty" validate:"omitempty,oneof=INVITED JOINED"`
	Role   *ParticipantRole   `json:"role,omitempty" validate:"omitempty,oneof=ORGANIZER MEMBER"`
}

// TripResponse represents the response for a trip
type TripResponse struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Destination  *string                `json:"destination,omitempty"`
	StartDate    *string                `json:"startDate,omitempty"`
	EndDate      *string                `json:"endDate,omitempty"`
	OrganizerID  string                 `json:"organizerId"`
	CreatedAt    string                 `json:"createdAt"`
	Participants []*ParticipantResponse `json:"participants,omitempty"`
}

// ParticipantResponse represents a participant in a trip response
type ParticipantResponse struct {
	UserID      string            `json:"userId"`
	DisplayName string            `json:"displayName,omitempty"`
	Status      ParticipantStatus `json:"status"`
	Role        ParticipantRole   `json:"role"`
	JoinedAt    string            `json:"joinedAt"`
}

// ToResponse converts a Trip model to a TripResponse DTO
func (t *Trip) ToResponse() *TripResponse {
	resp := &TripResponse{
		ID:          t.ID,
		Name:        t.Name,
		Destination: t.Destination,
		OrganizerID: t.OrganizerID,
		CreatedAt:   t.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if t.StartDate != nil {
		s := t.StartDate.Format(dateLayout)
		resp.StartDate = &s
	}
	if t.EndDate != nil {
		e := t.EndDate.Format(dateLayout)
		resp.EndDate = &e
	}
	return resp
}

// ToResponse converts a Participant model to a ParticipantResponse DTO
func (p *Participant) ToResponse() *ParticipantResponse {
	return &ParticipantResponse{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Status:      p.Status,
		Role:        p.Role,
		JoinedAt:    p.JoinedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
