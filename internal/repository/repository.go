// Package repository implements all database queries for the booking engine.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticketbooth/internal/model"
)

const eventColumns = `id, name, description, total_tickets, available_tickets, created_at`

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event with available_tickets equal to total_tickets
// and returns it with its generated id.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event := &model.Event{
		Name:             req.Name,
		Description:      req.Description,
		TotalTickets:     req.TotalTickets,
		AvailableTickets: req.TotalTickets,
	}

	err := r.db.QueryRow(ctx,
		`INSERT INTO events (name, description, total_tickets, available_tickets)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		event.Name, event.Description, event.TotalTickets, event.AvailableTickets,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns all events ordered by id. Listing reads committed state only;
// a list racing a booking sees either the pre- or post-booking count.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or model.ErrEventNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	var e model.Event
	err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	), &e)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

type eventScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row eventScanner, e *model.Event) error {
	return row.Scan(&e.ID, &e.Name, &e.Description, &e.TotalTickets, &e.AvailableTickets, &e.CreatedAt)
}

// BookingRepository handles persistence for bookings.
type BookingRepository struct {
	db *pgxpool.Pool
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{db: db}
}

// Book performs the atomic check-and-decrement for one booking attempt.
//
// A naive read-then-write would let two concurrent transactions read the same
// available count and jointly overspend it. SELECT ... FOR UPDATE takes an
// exclusive row-level lock on the event the moment the read executes, so
// concurrent attempts on the same event serialize while attempts on other
// events proceed on their own rows without contention.
//
// Either the booking row and the decrement both commit, or neither does.
func (r *BookingRepository) Book(ctx context.Context, att model.BookingAttempt) (*model.Booking, *model.Event, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Step 1: lock the event row. Holds until COMMIT or ROLLBACK.
	var event model.Event
	err = scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`,
		att.EventID,
	), &event)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = model.ErrEventNotFound
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("lock event row: %w", err)
	}

	// Step 2: idempotency replay. A retry with the same key returns the
	// original booking instead of consuming capacity again.
	var existing model.Booking
	scanErr := tx.QueryRow(ctx,
		`SELECT id, event_id, user_id, ticket_count, idempotency_key, created_at
		 FROM bookings
		 WHERE event_id = $1 AND idempotency_key = $2`,
		att.EventID, att.IdempotencyKey,
	).Scan(&existing.ID, &existing.EventID, &existing.UserID, &existing.TicketCount,
		&existing.IdempotencyKey, &existing.CreatedAt)
	if scanErr == nil {
		if existing.TicketCount != att.TicketCount || existing.UserID != att.UserID {
			err = model.ErrIdempotencyConflict
			return nil, nil, err
		}
		if err = tx.Commit(ctx); err != nil {
			return nil, nil, fmt.Errorf("commit transaction: %w", err)
		}
		return &existing, &event, nil
	}
	if !errors.Is(scanErr, pgx.ErrNoRows) {
		err = fmt.Errorf("check idempotency key: %w", scanErr)
		return nil, nil, err
	}

	// Step 3: guard against overselling. No partial booking: the count is
	// never silently reduced to fit.
	if !event.CanBook(att.TicketCount) {
		err = fmt.Errorf("%w: requested %d, available %d",
			model.ErrInsufficientTickets, att.TicketCount, event.AvailableTickets)
		return nil, nil, err
	}

	// Step 4: decrement the counter inside the same transaction.
	_, err = tx.Exec(ctx,
		`UPDATE events SET available_tickets = available_tickets - $1 WHERE id = $2`,
		att.TicketCount, att.EventID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("decrement available_tickets: %w", err)
	}

	// Step 5: append the booking record.
	booking := &model.Booking{
		EventID:        att.EventID,
		UserID:         att.UserID,
		TicketCount:    att.TicketCount,
		IdempotencyKey: att.IdempotencyKey,
		CreatedAt:      att.CreatedAt,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO bookings (event_id, user_id, ticket_count, idempotency_key, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		booking.EventID, booking.UserID, booking.TicketCount, booking.IdempotencyKey, booking.CreatedAt,
	).Scan(&booking.ID)
	if err != nil {
		if isUniqueViolation(err) {
			err = model.ErrIdempotencyConflict
		} else {
			err = fmt.Errorf("insert booking: %w", err)
		}
		return nil, nil, err
	}

	// Step 6: commit. Only now does any other caller see the change.
	if err = tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}

	event.AvailableTickets -= att.TicketCount
	return booking, &event, nil
}

// ListByEvent returns all bookings for a given event, oldest first.
func (r *BookingRepository) ListByEvent(ctx context.Context, eventID int64) ([]model.Booking, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, user_id, ticket_count, idempotency_key, created_at
		 FROM bookings
		 WHERE event_id = $1
		 ORDER BY id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.EventID, &b.UserID, &b.TicketCount, &b.IdempotencyKey, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
