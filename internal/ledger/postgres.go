package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres appends to the reservations table.
type Postgres struct {
	db execer
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	if pool == nil {
		panic("ledger: pgx pool required")
	}
	return &Postgres{db: pool}
}

func newPostgresWithExec(db execer) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Append(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO reservations (
			id, calendar_event_id, start_at, end_at, customer_name, email, phone,
			course_name, duration_minutes, nail_off, length_extension_count,
			staff_assignment, selected_staff, menu_type, visit_status,
			base_price_yen, length_extension_yen, staff_assignment_yen, total_yen,
			attachment_url, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := p.db.Exec(ctx, query,
		rec.ReservationID, rec.CalendarEventID, rec.Start.UTC(), rec.End.UTC(),
		rec.CustomerName, rec.Email, rec.Phone,
		rec.CourseName, rec.DurationMinutes, rec.NailOff, rec.LengthExtensionCount,
		rec.StaffAssignment, rec.SelectedStaff, rec.MenuType, rec.VisitStatus,
		rec.Breakdown.BasePriceYen, rec.Breakdown.LengthExtensionYen,
		rec.Breakdown.StaffAssignmentYen, rec.Breakdown.TotalYen,
		rec.AttachmentURL, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("ledger: insert reservation: %w", err)
	}
	return nil
}
