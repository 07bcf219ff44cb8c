package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"ticketbooth/internal/model"
	"ticketbooth/migrations"
)

// setupPool connects to the database named by TEST_DATABASE_URL, applies
// migrations, and truncates all tables. Tests are skipped when the variable
// is unset so the suite runs without a live Postgres.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping repository integration tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, migrations.Apply(ctx, pool))

	_, err = pool.Exec(ctx, `TRUNCATE TABLE bookings, events RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

func createEvent(t *testing.T, events *EventRepository, name string, total int) *model.Event {
	t.Helper()
	event, err := events.Create(context.Background(), model.CreateEventRequest{
		Name:         name,
		Description:  "integration test event",
		TotalTickets: total,
	})
	require.NoError(t, err)
	return event
}

func attempt(eventID int64, count int, userID string) model.BookingAttempt {
	return model.BookingAttempt{
		EventID:        eventID,
		TicketCount:    count,
		UserID:         userID,
		IdempotencyKey: fmt.Sprintf("%s-%d-%d", userID, eventID, count),
		CreatedAt:      time.Now().UTC(),
	}
}

func TestEventRepository_CreateListGet(t *testing.T) {
	pool := setupPool(t)
	events := NewEventRepository(pool)
	ctx := context.Background()

	created := createEvent(t, events, "Go Masterclass", 75)
	assert.Equal(t, 75, created.AvailableTickets)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := events.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Go Masterclass", got.Name)

	_, err = events.GetByID(ctx, 999)
	require.ErrorIs(t, err, model.ErrEventNotFound)

	createEvent(t, events, "Workshop", 50)
	all, err := events.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Less(t, all[0].ID, all[1].ID)
}

func TestBookingRepository_Book(t *testing.T) {
	pool := setupPool(t)
	events := NewEventRepository(pool)
	bookings := NewBookingRepository(pool)
	ctx := context.Background()

	event := createEvent(t, events, "Go Masterclass", 10)

	booking, after, err := bookings.Book(ctx, attempt(event.ID, 4, "alice"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), booking.ID)
	assert.Equal(t, 6, after.AvailableTickets)
	assert.Equal(t, "Go Masterclass", after.Name)

	// Unknown event.
	_, _, err = bookings.Book(ctx, attempt(999, 1, "alice"))
	require.ErrorIs(t, err, model.ErrEventNotFound)

	// Over remaining capacity: no partial booking, count unchanged.
	_, _, err = bookings.Book(ctx, attempt(event.ID, 7, "bob"))
	require.ErrorIs(t, err, model.ErrInsufficientTickets)
	got, err := events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.AvailableTickets)

	// Exact drain.
	_, after, err = bookings.Book(ctx, attempt(event.ID, 6, "carol"))
	require.NoError(t, err)
	assert.Equal(t, 0, after.AvailableTickets)
}

func TestBookingRepository_IdempotentReplay(t *testing.T) {
	pool := setupPool(t)
	events := NewEventRepository(pool)
	bookings := NewBookingRepository(pool)
	ctx := context.Background()

	event := createEvent(t, events, "Go Masterclass", 10)
	att := attempt(event.ID, 3, "alice")

	first, _, err := bookings.Book(ctx, att)
	require.NoError(t, err)

	replay, after, err := bookings.Book(ctx, att)
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, 7, after.AvailableTickets)

	conflicting := att
	conflicting.TicketCount = 5
	_, _, err = bookings.Book(ctx, conflicting)
	require.ErrorIs(t, err, model.ErrIdempotencyConflict)

	all, err := bookings.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

// Fires more one-ticket attempts than remaining capacity in parallel and
// checks that the row lock admits exactly capacity of them.
func TestBookingRepository_ConcurrentDrain(t *testing.T) {
	pool := setupPool(t)
	events := NewEventRepository(pool)
	bookings := NewBookingRepository(pool)
	ctx := context.Background()

	const capacity = 5
	const attempts = 20
	event := createEvent(t, events, "Flash Sale", capacity)

	results := make([]error, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		i := i
		g.Go(func() error {
			_, _, err := bookings.Book(ctx, attempt(event.ID, 1, fmt.Sprintf("user-%d", i)))
			results[i] = err
			return nil
		})
	}
	require.NoError(t, g.Wait())

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			require.ErrorIs(t, err, model.ErrInsufficientTickets)
		}
	}
	assert.Equal(t, capacity, successes)

	got, err := events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableTickets)

	all, err := bookings.ListByEvent(ctx, event.ID)
	require.NoError(t, err)
	total := 0
	for _, b := range all {
		total += b.TicketCount
	}
	assert.Equal(t, capacity, total)
}
