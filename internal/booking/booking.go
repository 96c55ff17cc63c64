// Package booking validates reservation submissions against live calendar
// state and commits them, then fans out the ledger row and notifications.
package booking

import (
	"errors"
	"time"

	"github.com/wolfman30/salon-booking/internal/attachments"
	"github.com/wolfman30/salon-booking/internal/pricing"
)

var (
	// ErrInvalidInput covers malformed submissions, unknown courses and
	// out-of-range options. Nothing external is called.
	ErrInvalidInput = errors.New("booking: invalid input")
	// ErrUpstreamUnavailable means live calendar or menu state could not be
	// read, or the calendar write failed, so the booking was not committed.
	ErrUpstreamUnavailable = errors.New("booking: upstream unavailable")
)

// Status is the terminal state of a submission.
type Status string

const (
	StatusCommitted Status = "committed"
	StatusRejected  Status = "rejected"
)

// ReasonSlotTaken is the rejection reason when the slot overlaps a busy interval.
const ReasonSlotTaken = "slot_taken"

const (
	MenuTypeHand = "HAND"
	MenuTypeFoot = "FOOT"

	VisitFirst     = "初回"
	VisitReturning = "2回目以降"
)

const (
	messageCommitted = "予約が完了しました。確認メールを送信しましたので、ご確認ください。"
	messageSlotTaken = "申し訳ありません、その時間は直前に予約が埋まってしまいました。お手数ですが最新の空き状況から別の時間をお選びください。"
)

// Request is a decoded submission. Client price fields are only compared
// against the server quote; zero means not supplied.
type Request struct {
	StartTime               time.Time
	DurationMinutes         int
	CourseName              string
	CoursePriceYen          int
	NailOff                 bool
	LengthExtensionCount    int
	LengthExtensionPriceYen int
	StaffAssignment         bool
	SelectedStaff           string
	StaffAssignmentPriceYen int
	Name                    string
	Email                   string
	Phone                   string
	MenuType                string
	VisitStatus             string
	Attachment              *attachments.Attachment
}

func (r Request) options() pricing.Options {
	return pricing.Options{
		NailOff:              r.NailOff,
		LengthExtensionCount: r.LengthExtensionCount,
		StaffAssignment:      r.StaffAssignment,
	}
}

// Outcome is the result of TryCommit.
type Outcome struct {
	Status          Status
	Reason          string
	Message         string
	ReservationID   string
	CalendarEventID string
	Start           time.Time
	End             time.Time
	Quote           pricing.Quote
	AttachmentURL   string
}

// Committed reports whether the reservation was written to the calendar.
func (o *Outcome) Committed() bool {
	return o != nil && o.Status == StatusCommitted
}

func rejected() *Outcome {
	return &Outcome{Status: StatusRejected, Reason: ReasonSlotTaken, Message: messageSlotTaken}
}
