package trip

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fkhayef/tripsplit/pkg/middleware"
	"github.com/fkhayef/tripsplit/pkg/response"
	"github.com/fkhayef/tripsplit/pkg/validation"
)

// Handler handles HTTP requests for trip operations
type Handler struct {
	service   *Service
	validator *validation.Validator
}

// NewHandler creates a new trip handler
func NewHandler(service *Service, validator *validation.Validator) *Handler {
	return &Handler{service: service, validator: validator}
}

// Routes returns the router for trip endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{id}", h.GetByID)
	r.Get("/{id}/participants", h.GetParticipants)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)

		// Participant management
		r.Post("/{id}/participants", h.AddParticipant)
		r.Put("/{id}/participants/{userId}", h.UpdateParticipant)
		r.Delete("/{id}/participants/{userId}", h.RemoveParticipant)
		r.Post("/{id}/join", h.AcceptInvitation)
	})

	return r
}

// Create handles POST /trips
// @Summary      Create a new trip
// @Description  Create a trip; the caller becomes its organizer
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Caller user ID"
// @Param        request body CreateTripRequest true "Trip creation request"
// @Success      201 {object} response.APIResponse{data=TripResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /trips [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	creatorID, _ := middleware.GetUserID(r.Context())

	var req CreateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	req.Normalize()
	if fields := h.validator.Struct(&req); fields != nil {
		response.ValidationFailed(w, fields)
		return
	}

	trip, err := h.service.Create(r.Context(), creatorID, &req)
	if err != nil {
		if errors.Is(err, ErrInvalidDates) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to create trip")
		return
	}

	response.JSON(w, http.StatusCreated, trip.ToResponse())
}

// GetByID handles GET /trips/{id}
// @Summary      Get trip by ID
// @Description  Get a trip with all its participants
// @Tags         trips
// @Produce      json
// @Param        id path string true "Trip ID"
// @Success      200 {object} response.APIResponse{data=TripResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid trip ID")
	if !ok {
		return
	}

	trip, participants, err := h.service.GetByIDWithParticipants(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "Failed to get trip")
		return
	}

	tripResp := trip.ToResponse()
	tripResp.Participants = make([]*ParticipantResponse, len(participants))
	for i, p := range participants {
		tripResp.Participants[i] = p.ToResponse()
	}

	response.JSON(w, http.StatusOK, tripResp)
}

// List handles GET /trips
// @Summary      List my trips
// @Tags         trips
// @Produce      json
// @Param        X-User-ID header string true "Caller user ID"
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]TripResponse}
// @Router       /trips [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	trips, total, err := h.service.ListByUserID(r.Context(), userID, page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list trips")
		return
	}

	tripResponses := make([]*TripResponse, len(trips))
	for i, trip := range trips {
		tripResponses[i] = trip.ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, tripResponses, response.NewMeta(page, perPage, total))
}

// Update handles PUT /trips/{id}
// @Summary      Update a trip
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Caller user ID"
// @Param        id path string true "Trip ID"
// @Param        request body UpdateTripRequest true "Trip update request"
// @Success      200 {object} response.APIResponse{data=TripResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid trip ID")
	if !ok {
		return
	}
	callerID, _ := middleware.GetUserID(r.Context())

	var req UpdateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if fields := h.validator.Struct(&req); fields != nil {
		response.ValidationFailed(w, fields)
		return
	}

	trip, err := h.service.Update(r.Context(), callerID, id, &req)
	if err != nil {
		h.writeError(w, err, "Failed to update trip")
		return
	}

	response.JSON(w, http.StatusOK, trip.ToResponse())
}

// Delete handles DELETE /trips/{id}
// @Summary      Delete a trip
// @Tags         trips
// @Produce      json
// @Param        X-User-ID header string true "Caller user ID"
// @Param        id path string true "Trip ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Invalid trip ID")
	if !ok {
		return
	}
	callerID, _ := middleware.GetUserID(r.Context())

	if err := h.service.Delete(r.Context(), callerID, id); err != nil {
		h.writeError(w, err, "Failed to delete trip")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Trip deleted successfully"})
}

// AddParticipant handles POST /trips/{id}/participants
// @Summary      Invite a participant
// @Description  Invite a user to the trip; they take part in splits once they join
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Caller user ID"
// @Param        id path string true "Trip ID"
// @Param        request body AddParticipantRequest true "Participant to invite"
// @Success      201 {object} response.APIResponse{data=ParticipantResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /trips/{id}/participants [post]
func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(w, r, "id", "Invalid trip ID")
	if !ok {
		return
	}

	var req AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if fields := h.validator.Struct(&req); fields != nil {
		response.ValidationFailed(w, fields)
		return
	}

	callerID, _ := middleware.GetUserID(r.Context())
	p, err := h.service.AddParticipant(r.Context(), callerID, tripID, &req)
	if err != nil {
		h.writeError(w, err, "Failed to add participant")
		return
	}

	response.JSON(w, http.StatusCreated, p.ToResponse())
}

// GetParticipants handles GET /trips/{id}/participants
// @Summary      List trip participants
// @Tags         trips
// @Produce      json
// @Param        id path string true "Trip ID"
// @Success      200 {object} response.APIResponse{data=[]ParticipantResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id}/participants [get]
func (h *Handler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(w, r, "id", "Invalid trip ID")
	if !ok {
		return
	}

	participants, err := h.service.GetParticipants(r.Context(), tripID)
	if err != nil {
		h.writeError(w, err, "Failed to get participants")
		return
	}

	resp := make([]*ParticipantResponse, len(participants))
	for i, p := range participants {
		resp[i] = p.ToResponse()
	}

	response.JSON(w, http.StatusOK, resp)
}

// UpdateParticipant handles PUT /trips/{id}/participants/{userId}
// @Summary      Update a participant
// @Description  The organizer may change anyone; other users only their own status
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        X-User-ID header string true "Caller user ID"
// @Param        id path string true "Trip ID"
// @Param        userId path string true "User ID"
// @Param        request body UpdateParticipantRequest true "Status or role change"
// @Success      200 {object} response.APIResponse{data=ParticipantResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /trips/{id}/participants/{userId} [put]
func (h *Handler) UpdateParticipant(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(w, r, "id", "Invalid trip ID")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId", "Invalid user ID")
	if !ok {
		return
	}

	var req UpdateParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if fields := h.validator.Struct(&req); fields != nil {
		response.ValidationFailed(w, fields)
		return
	}

	callerID, _ := middleware.GetUserID(r.Context())
	p, err := h.service.UpdateParticipant(r.Context(), callerID, tripID, userID, &req)
	if err != nil {
		h.writeError(w, err, "Failed to update participant")
		return
	}

	response.JSON(w, http.StatusOK, p.ToResponse())
}

// RemoveParticipant handles DELETE /trips/{id}/participants/{userId}
// @Summary      Remove a participant
// @Description  The organizer may remove anyone not on an expense; other users may only leave
// @Tags         trips
// @Produce      json
// @Param        X-User-ID header string true "Caller user ID"
// @Param        id path string true "Trip ID"
// @Param        userId path string true "User ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /trips/{id}/participants/{userId} [delete]
func (h *Handler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(w, r, "id", "Invalid trip ID")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId", "Invalid user ID")
	if !ok {
		return
	}

	callerID, _ := middleware.GetUserID(r.Context())
	if err := h.service.RemoveParticipant(r.Context(), callerID, tripID, userID); err != nil {
		h.writeError(w, err, "Failed to remove participant")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Participant removed successfully"})
}

// AcceptInvitation handles POST /trips/{id}/join
// @Summary      Join a trip
// @Description  Accept the caller's invitation to the trip
// @Tags         trips
// @Produce      json
// @Param        X-User-ID header string true "Caller user ID"
// @Param        id path string true "Trip ID"
// @Success      200 {object} response.APIResponse{data=ParticipantResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /trips/{id}/join [post]
func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathID(w, r, "id", "Invalid trip ID")
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(r.Context())

	p, err := h.service.AcceptInvitation(r.Context(), tripID, userID)
	if err != nil {
		h.writeError(w, err, "Failed to join trip")
		return
	}

	response.JSON(w, http.StatusOK, p.ToResponse())
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrTripNotFound), errors.Is(err, ErrParticipantNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotOrganizer):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrParticipantExists), errors.Is(err, ErrOrganizerCannotBeMoved), errors.Is(err, ErrParticipantHasExpenses):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrInvalidDates):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}

func pathID(w http.ResponseWriter, r *http.Request, param, message string) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		response.BadRequest(w, message)
		return "", false
	}
	return id.String(), true
}
