package notification

// Entity is the kind of record a change event refers to
type Entity string

const (
	EntityExpense     Entity = "expense"
	EntityParticipant Entity = "participant"
	EntityTrip        Entity = "trip"
)

// Action is what happened to the entity
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"

	// ActionResync is broadcast to every subscriber after the change feed reconnects,
	// since notifications sent while disconnected are lost.
	ActionResync Action = "resync"
)

// Event is the payload carried on the Postgres change channel
type Event struct {
	TripID   string `json:"tripId,omitempty"`
	Entity   Entity `json:"entity,omitempty"`
	Action   Action `json:"action"`
	EntityID string `json:"entityId,omitempty"`
}

// Resync returns the event broadcast to all trips after a reconnect
func Resync() Event {
	return Event{Action: ActionResync}
}
