package settlement

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fkhayef/tripsplit/internal/notification"
	"github.com/fkhayef/tripsplit/internal/trip"
	"github.com/fkhayef/tripsplit/pkg/response"
)

const unavailableMessage = "Unable to calculate balances, please refresh"

// Summarizer produces balance reports
type Summarizer interface {
	Summarize(ctx context.Context, tripID string) (*Summary, error)
	BalanceFor(ctx context.Context, tripID, participantID string) (*ParticipantSummary, error)
}

// Handler handles HTTP requests for balance and settlement reports
type Handler struct {
	service Summarizer
	hub     *notification.Hub
}

// NewHandler creates a new settlement handler
func NewHandler(service Summarizer, hub *notification.Hub) *Handler {
	return &Handler{service: service, hub: hub}
}

// Routes returns the router for settlement endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/trips/{tripId}", func(r chi.Router) {
		r.Get("/", h.GetSummary)
		r.Get("/balances", h.GetBalances)
		r.Get("/settlements", h.GetSettlements)
		r.Get("/participants/{participantId}", h.GetParticipantBalance)
		r.Get("/stream", h.Stream)
	})

	return r
}

// GetSummary handles GET /settlements/trips/{tripId}
// @Summary      Get trip balances and settlements
// @Description  Compute every participant's balance and the suggested transfers from the current expenses
// @Tags         settlements
// @Produce      json
// @Param        tripId path string true "Trip ID"
// @Success      200 {object} response.APIResponse{data=Summary}
// @Failure      404 {object} response.APIResponse
// @Failure      500 {object} response.APIResponse
// @Router       /settlements/trips/{tripId} [get]
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.summarize(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, summary)
}

// GetBalances handles GET /settlements/trips/{tripId}/balances
// @Summary      Get trip balances
// @Tags         settlements
// @Produce      json
// @Param        tripId path string true "Trip ID"
// @Success      200 {object} response.APIResponse{data=[]ParticipantBalance}
// @Failure      404 {object} response.APIResponse
// @Router       /settlements/trips/{tripId}/balances [get]
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.summarize(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, summary.Balances)
}

// GetSettlements handles GET /settlements/trips/{tripId}/settlements
// @Summary      Get suggested transfers
// @Tags         settlements
// @Produce      json
// @Param        tripId path string true "Trip ID"
// @Success      200 {object} response.APIResponse{data=[]Settlement}
// @Failure      404 {object} response.APIResponse
// @Router       /settlements/trips/{tripId}/settlements [get]
func (h *Handler) GetSettlements(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.summarize(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, summary.Settlements)
}

// GetParticipantBalance handles GET /settlements/trips/{tripId}/participants/{participantId}
// @Summary      Get one participant's balance
// @Description  Balance, transfers and a message such as "You owe Ana $12.50"
// @Tags         settlements
// @Produce      json
// @Param        tripId path string true "Trip ID"
// @Param        participantId path string true "Participant ID"
// @Success      200 {object} response.APIResponse{data=ParticipantSummary}
// @Failure      404 {object} response.APIResponse
// @Router       /settlements/trips/{tripId}/participants/{participantId} [get]
func (h *Handler) GetParticipantBalance(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(w, r, "tripId", "Invalid trip ID")
	if !ok {
		return
	}
	participantID, ok := pathID(w, r, "participantId", "Invalid participant ID")
	if !ok {
		return
	}

	result, err := h.service.BalanceFor(r.Context(), tripID, participantID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// Stream handles GET /settlements/trips/{tripId}/stream
// @Summary      Stream trip balances
// @Description  Server-Sent Events: a "summary" event now and a fresh one after every change to the trip
// @Tags         settlements
// @Produce      text/event-stream
// @Param        tripId path string true "Trip ID"
// @Success      200 {object} Summary
// @Failure      400 {object} response.APIResponse
// @Router       /settlements/trips/{tripId}/stream [get]
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(w, r, "tripId", "Invalid trip ID")
	if !ok {
		return
	}

	// Subscribe before the first computation so no change slips in between
	sub := h.hub.Subscribe(tripID)
	defer sub.Close()

	flusher := notification.StartStream(w)
	if flusher == nil {
		response.InternalError(w, "Streaming unsupported")
		return
	}

	send := func() error {
		summary, err := h.service.Summarize(r.Context(), tripID)
		if err != nil {
			return notification.WriteEvent(w, flusher, "error", map[string]string{"message": errorMessage(err)})
		}
		return notification.WriteEvent(w, flusher, "summary", summary)
	}

	if err := send(); err != nil {
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
			if event.Entity == notification.EntityTrip && event.Action == notification.ActionDeleted {
				notification.WriteEvent(w, flusher, "error", map[string]string{"message": trip.ErrTripNotFound.Error()})
				return
			}
			if err := send(); err != nil {
				return
			}
		}
	}
}

func (h *Handler) summarize(w http.ResponseWriter, r *http.Request) (*Summary, bool) {
	tripID, ok := pathID(w, r, "tripId", "Invalid trip ID")
	if !ok {
		return nil, false
	}

	summary, err := h.service.Summarize(r.Context(), tripID)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return summary, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, trip.ErrTripNotFound), errors.Is(err, ErrParticipantNotFound):
		response.NotFound(w, err.Error())
	default:
		response.InternalError(w, errorMessage(err))
	}
}

func errorMessage(err error) string {
	if errors.Is(err, trip.ErrTripNotFound) {
		return err.Error()
	}
	return unavailableMessage
}

func pathID(w http.ResponseWriter, r *http.Request, param, message string) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		response.BadRequest(w, message)
		return "", false
	}
	return id.String(), true
}
