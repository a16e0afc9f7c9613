package notification

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestHub_RoutesByTrip(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe("trip-a")
	defer a.Close()
	b := hub.Subscribe("trip-b")
	defer b.Close()

	hub.Publish(Event{TripID: "trip-a", Entity: EntityExpense, Action: ActionCreated, EntityID: "e1"})

	assert.Equal(t, "e1", receive(t, a).EntityID)
	assertNoEvent(t, b)
}

func TestHub_ResyncReachesEveryone(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe("trip-a")
	defer a.Close()
	b := hub.Subscribe("trip-b")
	defer b.Close()

	hub.Publish(Resync())

	assert.Equal(t, ActionResync, receive(t, a).Action)
	assert.Equal(t, ActionResync, receive(t, b).Action)
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("trip")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Publish(Event{TripID: "trip", Action: ActionCreated})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	receive(t, sub)
	assertNoEvent(t, sub)
}

func TestSubscription_Close(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("trip")
	require.Equal(t, 1, hub.SubscriberCount("trip"))

	sub.Close()
	sub.Close()

	assert.Equal(t, 0, hub.SubscriberCount("trip"))
	_, open := <-sub.Events()
	assert.False(t, open)

	hub.Publish(Event{TripID: "trip", Action: ActionCreated})
}

func TestPublisher_Publish(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("SELECT pg_notify").
		WithArgs("trip_changes", `{"tripId":"t1","entity":"expense","action":"deleted","entityId":"e1"}`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	p := NewPublisher("trip_changes")
	err = p.Publish(context.Background(), db, Event{TripID: "t1", Entity: EntityExpense, Action: ActionDeleted, EntityID: "e1"})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListener_Handle(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("t1")
	defer sub.Close()
	l := NewListener(ListenerConfig{Channel: "trip_changes"}, hub, discardLogger())

	t.Run("forwards decoded events", func(t *testing.T) {
		l.handle(&pq.Notification{Channel: "trip_changes", Extra: `{"tripId":"t1","entity":"expense","action":"created","entityId":"e9"}`})

		ev := receive(t, sub)
		assert.Equal(t, Event{TripID: "t1", Entity: EntityExpense, Action: ActionCreated, EntityID: "e9"}, ev)
	})

	t.Run("drops malformed payloads", func(t *testing.T) {
		l.handle(&pq.Notification{Channel: "trip_changes", Extra: `not json`})
		assertNoEvent(t, sub)
	})

	t.Run("reconnect triggers resync", func(t *testing.T) {
		l.handle(nil)
		assert.Equal(t, ActionResync, receive(t, sub).Action)
	})
}

func TestHandler_Stream(t *testing.T) {
	hub := NewHub()
	tripID := uuid.NewString()

	r := chi.NewRouter()
	r.Mount("/notifications", NewHandler(hub).Routes())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/notifications/trips/"+tripID, nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(rec, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return hub.SubscriberCount(tripID) == 1 }, time.Second, 5*time.Millisecond)
	hub.Publish(Event{TripID: tripID, Entity: EntityExpense, Action: ActionCreated, EntityID: "e1"})

	// Give the handler a moment to drain the event before disconnecting
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(body, "event: change"), body)
	assert.Contains(t, body, `"entityId":"e1"`)
	assert.Equal(t, 0, hub.SubscriberCount(tripID))
}

func TestHandler_StreamRejectsBadTripID(t *testing.T) {
	r := chi.NewRouter()
	r.Mount("/notifications", NewHandler(NewHub()).Routes())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications/trips/nope", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
