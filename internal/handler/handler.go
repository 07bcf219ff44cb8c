// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ticketbooth/internal/model"
	"ticketbooth/internal/service"
)

// Error envelope messages, mirrored by clients to distinguish failure kinds.
const (
	msgValidation   = "Validation Error"
	msgNotFound     = "Event Not Found"
	msgInsufficient = "Insufficient Tickets"
	msgConflict     = "Booking Conflict"
	msgInternal     = "Internal Server Error"
)

// BookingHandler holds all HTTP handlers for the booking API.
type BookingHandler struct {
	svc *service.BookingService
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, model.ErrorResponse{
		Timestamp: time.Now().UTC(),
		Message:   message,
		Details:   details,
	})
}

// writeServiceError maps domain errors onto the HTTP status space. Clients
// can tell "your request was invalid/exhausted" apart from "the system is
// unavailable, try again".
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, msgValidation, err.Error())
	case errors.Is(err, model.ErrEventNotFound):
		writeError(w, http.StatusNotFound, msgNotFound, err.Error())
	case errors.Is(err, model.ErrInsufficientTickets):
		writeError(w, http.StatusConflict, msgInsufficient, err.Error())
	case errors.Is(err, model.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, msgConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, msgInternal, "unexpected error, please retry")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func eventIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events
// Administrative endpoint: creates an event with a fixed ticket capacity.
func (h *BookingHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgValidation, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
// Returns a JSON array of all events with current availability.
func (h *BookingHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Empty array rather than null for client compatibility.
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /tickets/{id}
// Returns a single event including its remaining ticket count.
func (h *BookingHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgValidation, "event id must be a number")
		return
	}

	event, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Book handles POST /tickets/{id}/book?count={n}&userId={id}
// Performs the concurrency-safe booking and reports the remaining count from
// the same transaction, so the confirmation never races a concurrent booking.
// An optional Idempotency-Key header makes client retries safe.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgValidation, "event id must be a number")
		return
	}

	countStr := r.URL.Query().Get("count")
	count, err := strconv.Atoi(countStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgValidation, "count must be a positive integer")
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = "anonymous"
	}

	booking, event, err := h.svc.Book(r.Context(), id, count, userID, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.BookingResponse{
		BookingID:        booking.ID,
		EventID:          event.ID,
		EventName:        event.Name,
		TicketsBooked:    booking.TicketCount,
		RemainingTickets: event.AvailableTickets,
		Message:          "Booking successful",
	})
}

// ListBookings handles GET /tickets/{id}/bookings
// Returns all bookings recorded for an event, oldest first.
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgValidation, "event id must be a number")
		return
	}

	bookings, err := h.svc.ListBookings(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
