// Package ledger keeps the append-only record of committed reservations.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/salon-booking/internal/pricing"
)

// Record is one committed reservation. Prices are the server-computed values.
type Record struct {
	ReservationID        string
	CalendarEventID      string
	Start                time.Time
	End                  time.Time
	CustomerName         string
	Email                string
	Phone                string
	CourseName           string
	DurationMinutes      int
	NailOff              bool
	LengthExtensionCount int
	StaffAssignment      bool
	SelectedStaff        string
	MenuType             string
	VisitStatus          string
	Breakdown            pricing.Breakdown
	AttachmentURL        string
	CreatedAt            time.Time
}

// Sink appends records. Implementations never update or delete.
type Sink interface {
	Append(ctx context.Context, rec Record) error
}

// Memory collects records in process.
type Memory struct {
	mu      sync.Mutex
	records []Record
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy in append order.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}
