package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fkhayef/tripsplit/pkg/response"
)

// Handler exposes the raw change feed of a trip
type Handler struct {
	hub *Hub
}

// NewHandler creates a new notification handler
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// Routes returns the router for notification endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/trips/{tripId}", h.Stream)

	return r
}

// Stream handles GET /notifications/trips/{tripId}
// @Summary      Stream trip changes
// @Description  Server-Sent Events stream of change notifications (expense and participant writes) for a trip
// @Tags         notifications
// @Produce      text/event-stream
// @Param        tripId path string true "Trip ID"
// @Success      200 {object} Event
// @Failure      400 {object} response.APIResponse
// @Router       /notifications/trips/{tripId} [get]
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripId")
	if _, err := uuid.Parse(tripID); err != nil {
		response.BadRequest(w, "Invalid trip ID")
		return
	}

	sub := h.hub.Subscribe(tripID)
	defer sub.Close()

	flusher := StartStream(w)
	if flusher == nil {
		response.InternalError(w, "Streaming unsupported")
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := WriteEvent(w, flusher, "change", event); err != nil {
				return
			}
		}
	}
}
