package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfman30/salon-booking/internal/availability"
)

// exclusion_violation, raised by the calendar_events_no_overlap constraint.
const pgExclusionViolation = "23P01"

type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres stores events in the calendar_events table. The table carries an
// exclusion constraint over timed events, so a racing insert for an
// overlapping range fails with ErrConflict.
type Postgres struct {
	db execQuerier
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	if pool == nil {
		panic("calendar: pgx pool required")
	}
	return &Postgres{db: pool}
}

func newPostgresWithExec(db execQuerier) *Postgres {
	if db == nil {
		panic("calendar: exec required")
	}
	return &Postgres{db: db}
}

func (p *Postgres) BusyIntervals(ctx context.Context, from, to time.Time) ([]availability.Interval, error) {
	query := `
		SELECT start_at, end_at
		FROM calendar_events
		WHERE NOT all_day AND start_at < $2 AND end_at > $1
		ORDER BY start_at
	`
	rows, err := p.db.Query(ctx, query, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("calendar: query busy: %w", err)
	}
	defer rows.Close()

	var busy []availability.Interval
	for rows.Next() {
		var start, end time.Time
		if err := rows.Scan(&start, &end); err != nil {
			return nil, fmt.Errorf("calendar: scan busy: %w", err)
		}
		busy = append(busy, availability.Interval{Start: start, End: end})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("calendar: iterate busy: %w", err)
	}
	return busy, nil
}

func (p *Postgres) CreateEvent(ctx context.Context, event Event) (string, error) {
	if err := event.Validate(); err != nil {
		return "", err
	}
	id := uuid.New()
	query := `
		INSERT INTO calendar_events (id, summary, description, start_at, end_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := p.db.Exec(ctx, query, id, event.Summary, event.Description, event.Start.UTC(), event.End.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
			return "", ErrConflict
		}
		return "", fmt.Errorf("calendar: insert event: %w", err)
	}
	return id.String(), nil
}
