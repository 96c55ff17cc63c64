package booking

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/salon-booking/internal/attachments"
	"github.com/wolfman30/salon-booking/internal/availability"
	"github.com/wolfman30/salon-booking/internal/calendar"
	"github.com/wolfman30/salon-booking/internal/ledger"
	"github.com/wolfman30/salon-booking/internal/menu"
	"github.com/wolfman30/salon-booking/internal/notify"
	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/internal/pricing"
	"github.com/wolfman30/salon-booking/internal/salon"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

var bookingTracer trace.Tracer = otel.Tracer("salon.internal.booking")

// sideEffectTimeout bounds the ledger append and emails after a commit.
const sideEffectTimeout = 30 * time.Second

// Notifier sends the post-commit emails.
type Notifier interface {
	SendCustomerConfirmation(ctx context.Context, r notify.Reservation) error
	NotifySalon(ctx context.Context, r notify.Reservation) error
}

// SettingsSource provides the runtime salon settings.
type SettingsSource interface {
	Get(ctx context.Context) (*salon.Settings, error)
	Defaults() *salon.Settings
}

// Deps are the collaborators of Service. Attachments, Notifier and Metrics may be nil.
type Deps struct {
	Menu        *menu.Provider
	Calendar    calendar.Calendar
	Ledger      ledger.Sink
	Notifier    Notifier
	Attachments attachments.Store
	Settings    SettingsSource
	Engine      *availability.Engine
	Metrics     *metrics.BookingMetrics
	Logger      *logging.Logger
}

// Service runs the availability queries and the commit guard.
type Service struct {
	menu        *menu.Provider
	calendar    calendar.Calendar
	ledger      ledger.Sink
	notifier    Notifier
	attachments attachments.Store
	settings    SettingsSource
	engine      *availability.Engine
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger

	now   func() time.Time
	newID func() string
}

func NewService(deps Deps) *Service {
	if deps.Menu == nil {
		panic("booking: menu provider required")
	}
	if deps.Calendar == nil {
		panic("booking: calendar required")
	}
	if deps.Ledger == nil {
		panic("booking: ledger required")
	}
	if deps.Settings == nil {
		panic("booking: settings required")
	}
	if deps.Engine == nil {
		panic("booking: availability engine required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	return &Service{
		menu:        deps.Menu,
		calendar:    deps.Calendar,
		ledger:      deps.Ledger,
		notifier:    deps.Notifier,
		attachments: deps.Attachments,
		settings:    deps.Settings,
		engine:      deps.Engine,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (s *Service) salonSettings(ctx context.Context) *salon.Settings {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.Warn("salon settings unavailable, using defaults", "error", err)
		s.metrics.ObserveDegraded("settings")
		return s.settings.Defaults()
	}
	return cfg
}

// TryCommit re-validates req against the live calendar and commits it when
// the slot is still free. A taken slot yields a Rejected outcome, not an error.
func (s *Service) TryCommit(ctx context.Context, req Request) (*Outcome, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.try_commit")
	defer span.End()
	started := s.now()

	outcome, err := s.tryCommit(ctx, req)
	elapsed := s.now().Sub(started).Seconds()
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		label := "upstream_error"
		if errors.Is(err, ErrInvalidInput) {
			label = "invalid"
		}
		s.metrics.ObserveCommit(label, elapsed)
	default:
		span.SetAttributes(attribute.String("salon.booking.status", string(outcome.Status)))
		s.metrics.ObserveCommit(string(outcome.Status), elapsed)
	}
	return outcome, err
}

func (s *Service) tryCommit(ctx context.Context, req Request) (*Outcome, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	cat, degraded := s.menu.Catalog(ctx)
	quote, err := pricing.QuoteFor(cat, req.CourseName, req.options())
	if err != nil {
		if degraded && errors.Is(err, menu.ErrUnknownCourse) {
			return nil, fmt.Errorf("%w: menu source unavailable", ErrUpstreamUnavailable)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := checkClientQuote(req, quote); err != nil {
		return nil, err
	}

	cfg := s.salonSettings(ctx)
	loc := s.engine.Location()
	start := req.StartTime.In(loc)
	end := start.Add(time.Duration(quote.TotalMinutes) * time.Minute)
	if err := s.checkWindow(start, end, cfg); err != nil {
		return nil, err
	}

	busyCtx, span := bookingTracer.Start(ctx, "booking.busy_intervals",
		trace.WithAttributes(attribute.String("salon.booking.start", start.Format(time.RFC3339))))
	busy, err := s.calendar.BusyIntervals(busyCtx, start, end)
	span.End()
	if err != nil {
		s.logger.Error("busy interval lookup failed at commit", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	if availability.OverlapsAny(start, end, busy) {
		s.logger.Info("reservation rejected, slot taken", "start", start, "course", quote.CourseName)
		return rejected(), nil
	}

	reservationID := s.newID()
	logger := s.logger.With("reservation_id", reservationID)
	attachmentURL := s.storeAttachment(ctx, req, logger)

	eventID, err := s.calendar.CreateEvent(ctx, calendar.Event{
		Summary:     eventTitle(req),
		Description: eventDescription(req, quote, attachmentURL, reservationID),
		Start:       start,
		End:         end,
	})
	if err != nil {
		if errors.Is(err, calendar.ErrConflict) {
			logger.Info("reservation rejected by calendar store, slot taken", "start", start)
			if attachmentURL != "" && attachmentURL != attachments.UploadFailedPlaceholder {
				logger.Warn("attachment stored for rejected reservation", "attachment_url", attachmentURL)
				s.metrics.ObserveSideEffectFailure("attachment_orphaned")
			}
			return rejected(), nil
		}
		logger.Error("calendar write failed, reservation not committed", "error", err)
		s.metrics.ObserveSideEffectFailure("calendar")
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	outcome := &Outcome{
		Status:          StatusCommitted,
		Message:         messageCommitted,
		ReservationID:   reservationID,
		CalendarEventID: eventID,
		Start:           start,
		End:             end,
		Quote:           quote,
		AttachmentURL:   attachmentURL,
	}
	logger.Info("reservation committed", "start", start, "course", quote.CourseName, "total_yen", quote.Breakdown.TotalYen)

	// The reservation exists once the event is written; the ledger row and
	// emails must not be lost when the caller goes away.
	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	s.afterCommit(sideCtx, req, outcome, logger)
	return outcome, nil
}

// afterCommit runs ledger and notification side effects; failures never undo the commit.
func (s *Service) afterCommit(ctx context.Context, req Request, o *Outcome, logger *logging.Logger) {
	rec := ledger.Record{
		ReservationID:        o.ReservationID,
		CalendarEventID:      o.CalendarEventID,
		Start:                o.Start,
		End:                  o.End,
		CustomerName:         req.Name,
		Email:                req.Email,
		Phone:                req.Phone,
		CourseName:           o.Quote.CourseName,
		DurationMinutes:      o.Quote.TotalMinutes,
		NailOff:              req.NailOff,
		LengthExtensionCount: req.LengthExtensionCount,
		StaffAssignment:      req.StaffAssignment,
		SelectedStaff:        req.SelectedStaff,
		MenuType:             req.MenuType,
		VisitStatus:          req.VisitStatus,
		Breakdown:            o.Quote.Breakdown,
		AttachmentURL:        o.AttachmentURL,
		CreatedAt:            s.now(),
	}
	if err := s.ledger.Append(ctx, rec); err != nil {
		logger.Error("ledger append failed after commit", "error", err)
		s.metrics.ObserveSideEffectFailure("ledger")
	}

	if s.notifier == nil {
		return
	}
	msg := notify.Reservation{
		ReservationID:        o.ReservationID,
		CustomerName:         req.Name,
		Email:                req.Email,
		Phone:                req.Phone,
		VisitStatus:          req.VisitStatus,
		MenuType:             req.MenuType,
		CourseName:           o.Quote.CourseName,
		DurationMinutes:      o.Quote.TotalMinutes,
		Start:                o.Start,
		NailOff:              req.NailOff,
		LengthExtensionCount: req.LengthExtensionCount,
		StaffAssignment:      req.StaffAssignment,
		SelectedStaff:        req.SelectedStaff,
		Breakdown:            o.Quote.Breakdown,
		AttachmentURL:        o.AttachmentURL,
	}
	if err := s.notifier.SendCustomerConfirmation(ctx, msg); err != nil {
		logger.Error("customer confirmation failed", "error", err)
		s.metrics.ObserveSideEffectFailure("customer_email")
	}
	if err := s.notifier.NotifySalon(ctx, msg); err != nil {
		logger.Error("salon notification failed", "error", err)
		s.metrics.ObserveSideEffectFailure("salon_email")
	}
}

func (s *Service) storeAttachment(ctx context.Context, req Request, logger *logging.Logger) string {
	if req.Attachment == nil {
		return ""
	}
	if s.attachments == nil {
		logger.Warn("attachment received but no attachment store is configured")
		return ""
	}
	a := *req.Attachment
	a.CustomerName = req.Name
	a.UploadedAt = s.now()
	url, err := s.attachments.Put(ctx, a)
	if err != nil {
		logger.Error("attachment upload failed", "error", err)
		s.metrics.ObserveSideEffectFailure("attachment")
		return attachments.UploadFailedPlaceholder
	}
	return url
}

func (s *Service) checkWindow(start, end time.Time, cfg *salon.Settings) error {
	loc := s.engine.Location()
	if !cfg.Hours().Contains(start, end, loc) {
		return fmt.Errorf("%w: %s-%s is outside business hours", ErrInvalidInput, start.Format("15:04"), end.Format("15:04"))
	}
	now := s.now().In(loc)
	if !start.After(now) {
		return fmt.Errorf("%w: start time has already passed", ErrInvalidInput)
	}
	if cfg.DaysToShow > 0 && !start.Before(s.horizon(cfg)) {
		return fmt.Errorf("%w: start time is beyond the booking window", ErrInvalidInput)
	}
	return nil
}

// normalize trims customer fields, applies defaults and validates them.
func normalize(req Request) (Request, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.CourseName = strings.TrimSpace(req.CourseName)
	req.SelectedStaff = strings.TrimSpace(req.SelectedStaff)
	req.MenuType = strings.ToUpper(strings.TrimSpace(req.MenuType))
	req.VisitStatus = strings.TrimSpace(req.VisitStatus)

	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.Email == "" {
		missing = append(missing, "email")
	}
	if req.Phone == "" {
		missing = append(missing, "phone")
	}
	if req.CourseName == "" {
		missing = append(missing, "courseNameOnly")
	}
	if req.StartTime.IsZero() {
		missing = append(missing, "startTime")
	}
	if len(missing) > 0 {
		return req, fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return req, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}

	switch req.MenuType {
	case "":
		req.MenuType = MenuTypeHand
	case MenuTypeHand, MenuTypeFoot:
	default:
		return req, fmt.Errorf("%w: unknown menu type %q", ErrInvalidInput, req.MenuType)
	}
	switch req.VisitStatus {
	case "":
		req.VisitStatus = VisitFirst
	case VisitFirst, VisitReturning:
	default:
		return req, fmt.Errorf("%w: unknown visit status %q", ErrInvalidInput, req.VisitStatus)
	}

	if req.StaffAssignment && req.SelectedStaff == "" {
		return req, fmt.Errorf("%w: staff assignment requires selectedStaff", ErrInvalidInput)
	}
	if !req.StaffAssignment {
		req.SelectedStaff = ""
	}
	return req, nil
}

// checkClientQuote rejects client-submitted figures that disagree with the server quote.
func checkClientQuote(req Request, q pricing.Quote) error {
	mismatch := func(field string, got, want int) error {
		return fmt.Errorf("%w: %s %d does not match %d", ErrInvalidInput, field, got, want)
	}
	if req.DurationMinutes != 0 && req.DurationMinutes != q.TotalMinutes {
		return mismatch("courseDuration", req.DurationMinutes, q.TotalMinutes)
	}
	if req.CoursePriceYen != 0 && req.CoursePriceYen != q.Breakdown.BasePriceYen {
		return mismatch("coursePrice", req.CoursePriceYen, q.Breakdown.BasePriceYen)
	}
	if req.LengthExtensionPriceYen != 0 && req.LengthExtensionPriceYen != q.Breakdown.LengthExtensionYen {
		return mismatch("lengthExtensionPrice", req.LengthExtensionPriceYen, q.Breakdown.LengthExtensionYen)
	}
	if req.StaffAssignmentPriceYen != 0 && req.StaffAssignmentPriceYen != q.Breakdown.StaffAssignmentYen {
		return mismatch("staffAssignmentPrice", req.StaffAssignmentPriceYen, q.Breakdown.StaffAssignmentYen)
	}
	return nil
}
