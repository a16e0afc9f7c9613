package trip

import "time"

// ParticipantStatus tracks whether an invitee has accepted
type ParticipantStatus string

const (
	StatusInvited ParticipantStatus = "INVITED"
	StatusJoined  ParticipantStatus = "JOINED"
)

// ParticipantRole distinguishes the organizer from other travellers
type ParticipantRole string

const (
	RoleOrganizer ParticipantRole = "ORGANIZER"
	RoleMember    ParticipantRole = "MEMBER"
)

// Trip is a planned group journey
type Trip struct {
	ID          string
	Name        string
	Destination *string
	StartDate   *time.Time
	EndDate     *time.Time
	OrganizerID string
	CreatedAt   time.Time
}

// Participant is a user's membership in a trip
type Participant struct {
	TripID   string
	UserID   string
	Status   ParticipantStatus
	Role     ParticipantRole
	JoinedAt time.Time

	// Populated from JOIN
	DisplayName string
}

// Active reports whether the participant takes part in expense splitting
func (p *Participant) Active() bool {
	return p.Role == RoleOrganizer || p.Status == StatusJoined
}
