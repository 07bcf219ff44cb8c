// Package model defines the core domain types for the ticket booking engine.
package model

import "time"

// Event is a bookable event with a fixed ticket capacity.
// TotalTickets is immutable after creation; AvailableTickets is mutated only
// by the booking engine inside a single transaction per booking attempt.
type Event struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	TotalTickets     int       `json:"totalTickets"`
	AvailableTickets int       `json:"availableTickets"`
	CreatedAt        time.Time `json:"-"`
}

// CanBook reports whether the event has capacity for count tickets.
func (e *Event) CanBook(count int) bool {
	return count > 0 && e.AvailableTickets >= count
}

// Booking is an append-only record of a successful booking. It is never
// edited or deleted once created.
type Booking struct {
	ID             int64     `json:"id"`
	EventID        int64     `json:"event_id"`
	UserID         string    `json:"user_id"`
	TicketCount    int       `json:"ticket_count"`
	IdempotencyKey string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// BookingAttempt carries one validated booking request into the store layer.
type BookingAttempt struct {
	EventID        int64
	TicketCount    int
	UserID         string
	IdempotencyKey string
	CreatedAt      time.Time
}

// CreateEventRequest is the payload for the administrative create endpoint.
type CreateEventRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	TotalTickets int    `json:"totalTickets"`
}

// BookingResponse is the success payload returned to booking clients.
type BookingResponse struct {
	BookingID        int64  `json:"bookingId"`
	EventID          int64  `json:"eventId"`
	EventName        string `json:"eventName"`
	TicketsBooked    int    `json:"ticketsBooked"`
	RemainingTickets int    `json:"remainingTickets"`
	Message          string `json:"message"`
}

// ErrorResponse is the structured error envelope returned on any failure.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Details   string    `json:"details"`
}
