package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Execer is satisfied by *sql.DB and *sql.Tx
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Publisher sends change events with pg_notify. Called inside a write transaction the
// notification is only delivered if the transaction commits.
type Publisher struct {
	channel string
}

// NewPublisher creates a publisher for the given channel
func NewPublisher(channel string) *Publisher {
	return &Publisher{channel: channel}
}

// Publish queues event on the channel using exec
func (p *Publisher) Publish(ctx context.Context, exec Execer, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}

	if _, err := exec.ExecContext(ctx, `SELECT pg_notify($1, $2)`, p.channel, string(payload)); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}
