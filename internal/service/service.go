// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"ticketbooth/internal/clock"
	"ticketbooth/internal/model"
)

// EventStore is the read/create surface of the event catalog.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id int64) (*model.Event, error)
}

// BookingStore performs the atomic check-and-decrement. Book must execute as
// one transaction per attempt: the capacity check, the counter decrement, and
// the booking insert become visible together or not at all. It is the only
// writer of available_tickets.
type BookingStore interface {
	Book(ctx context.Context, att model.BookingAttempt) (*model.Booking, *model.Event, error)
	ListByEvent(ctx context.Context, eventID int64) ([]model.Booking, error)
}

// BookingService orchestrates catalog reads and booking attempts.
type BookingService struct {
	events   EventStore
	bookings BookingStore
	clock    clock.Clock
}

// New constructs a BookingService with its dependencies.
func New(events EventStore, bookings BookingStore, clk clock.Clock) *BookingService {
	return &BookingService{events: events, bookings: bookings, clock: clk}
}

const maxEventCapacity = 100_000

// CreateEvent validates the request and delegates to the catalog store.
func (s *BookingService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: event name is required", model.ErrInvalidRequest)
	}
	if req.TotalTickets <= 0 {
		return nil, fmt.Errorf("%w: totalTickets must be a positive integer", model.ErrInvalidRequest)
	}
	if req.TotalTickets > maxEventCapacity {
		return nil, fmt.Errorf("%w: totalTickets cannot exceed %d", model.ErrInvalidRequest, maxEventCapacity)
	}
	return s.events.Create(ctx, req)
}

// ListEvents returns a snapshot of all events with current availability.
func (s *BookingService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// GetEvent returns a single event by id.
func (s *BookingService) GetEvent(ctx context.Context, id int64) (*model.Event, error) {
	return s.events.GetByID(ctx, id)
}

// Book validates a booking attempt and delegates the concurrency-safe
// check-and-decrement to the booking store. Validation failures are reported
// without any mutation attempt; capacity failures are terminal for the call
// and never retried here.
//
// idempotencyKey is optional. A replay with the same key, count, and user
// returns the original booking; a mismatch is a conflict. When absent, a
// random key is assigned and the attempt is independent.
func (s *BookingService) Book(ctx context.Context, eventID int64, count int, userID, idempotencyKey string) (*model.Booking, *model.Event, error) {
	if count <= 0 {
		return nil, nil, fmt.Errorf("%w: count must be a positive integer, got %d", model.ErrInvalidRequest, count)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil, fmt.Errorf("%w: userId is required", model.ErrInvalidRequest)
	}
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}

	return s.bookings.Book(ctx, model.BookingAttempt{
		EventID:        eventID,
		TicketCount:    count,
		UserID:         userID,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      s.clock.Now(),
	})
}

// ListBookings returns all bookings for an event, oldest first.
func (s *BookingService) ListBookings(ctx context.Context, eventID int64) ([]model.Booking, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.bookings.ListByEvent(ctx, eventID)
}
