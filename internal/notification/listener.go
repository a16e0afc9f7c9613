package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/fkhayef/tripsplit/internal/metrics"
)

const pingInterval = 90 * time.Second

// ListenerConfig configures the Postgres change feed
type ListenerConfig struct {
	DatabaseURL  string
	Channel      string
	MinReconnect time.Duration
	MaxReconnect time.Duration
}

// Listener forwards notifications from a Postgres channel to a Hub
type Listener struct {
	cfg    ListenerConfig
	hub    *Hub
	logger *slog.Logger
}

// NewListener creates a listener that publishes into hub
func NewListener(cfg ListenerConfig, hub *Hub, logger *slog.Logger) *Listener {
	return &Listener{cfg: cfg, hub: hub, logger: logger}
}

// Run listens until ctx is cancelled. lib/pq reconnects on its own; after a reconnect the
// hub receives a resync event so subscribers refresh.
func (l *Listener) Run(ctx context.Context) error {
	pl := pq.NewListener(l.cfg.DatabaseURL, l.cfg.MinReconnect, l.cfg.MaxReconnect, l.reportProblem)
	defer pl.Close()

	if err := pl.Listen(l.cfg.Channel); err != nil {
		return fmt.Errorf("failed to listen on %q: %w", l.cfg.Channel, err)
	}
	l.logger.Info("Listening for changes", "channel", l.cfg.Channel)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-pl.Notify:
			l.handle(n)
		case <-ticker.C:
			go func() {
				if err := pl.Ping(); err != nil {
					l.logger.Warn("Change feed ping failed", "error", err)
				}
			}()
		}
	}
}

// handle decodes one notification. A nil notification means the connection was re-established.
func (l *Listener) handle(n *pq.Notification) {
	if n == nil {
		l.logger.Info("Change feed reconnected, resyncing subscribers")
		l.hub.Publish(Resync())
		return
	}

	var event Event
	if err := json.Unmarshal([]byte(n.Extra), &event); err != nil {
		l.logger.Warn("Dropping malformed change event", "channel", n.Channel, "payload", n.Extra, "error", err)
		return
	}

	metrics.CountChangeEvent(string(event.Entity))
	l.logger.Debug("Change received", "trip_id", event.TripID, "entity", event.Entity, "action", event.Action)
	l.hub.Publish(event)
}

func (l *Listener) reportProblem(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnectionAttemptFailed:
		l.logger.Warn("Change feed connection attempt failed", "error", err)
	case pq.ListenerEventDisconnected:
		l.logger.Warn("Change feed disconnected", "error", err)
	case pq.ListenerEventReconnected:
		l.logger.Info("Change feed reconnected")
	}
}
