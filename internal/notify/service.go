// Package notify sends reservation confirmations to customers and new-booking
// notices to salon staff.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/template"
	"time"

	"github.com/wolfman30/salon-booking/internal/pricing"
	"github.com/wolfman30/salon-booking/internal/salon"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// SettingsStore retrieves the salon profile used in message bodies.
type SettingsStore interface {
	Get(ctx context.Context) (*salon.Settings, error)
}

// Reservation is the committed booking a message describes.
type Reservation struct {
	ReservationID        string
	CustomerName         string
	Email                string
	Phone                string
	VisitStatus          string
	MenuType             string
	CourseName           string
	DurationMinutes      int
	Start                time.Time
	NailOff              bool
	LengthExtensionCount int
	StaffAssignment      bool
	SelectedStaff        string
	Breakdown            pricing.Breakdown
	AttachmentURL        string
}

// Service renders and sends reservation emails.
type Service struct {
	email    EmailSender
	settings SettingsStore
	loc      *time.Location
	logger   *logging.Logger
}

// NewService creates a notification service. A nil sender falls back to the stub.
func NewService(email EmailSender, settings SettingsStore, loc *time.Location, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{email: email, settings: settings, loc: loc, logger: logger}
}

type messageData struct {
	R            Reservation
	Start        time.Time
	Salon        string
	Policies     string
	Footer       string
	Options      []string
	SalonOptions []string
}

func (s *Service) profile(ctx context.Context) *salon.Settings {
	if s.settings == nil {
		return &salon.Settings{Name: defaultFromName}
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.Warn("notify: salon settings unavailable, using defaults", "error", err)
		return &salon.Settings{Name: defaultFromName}
	}
	return cfg
}

func (s *Service) data(r Reservation, cfg *salon.Settings) messageData {
	return messageData{
		R:            r,
		Start:        r.Start.In(s.loc),
		Salon:        cfg.Name,
		Policies:     cfg.Policies,
		Footer:       cfg.ConfirmationFooter,
		Options:      customerOptions(r),
		SalonOptions: salonOptions(r),
	}
}

// SendCustomerConfirmation emails the booking summary to the customer.
func (s *Service) SendCustomerConfirmation(ctx context.Context, r Reservation) error {
	if r.Email == "" {
		return errors.New("notify: customer email required")
	}
	cfg := s.profile(ctx)
	body, err := render(customerTemplate, s.data(r, cfg))
	if err != nil {
		return err
	}
	msg := EmailMessage{
		To:      r.Email,
		ToName:  r.CustomerName,
		Subject: fmt.Sprintf("【%s】ご予約ありがとうございます", cfg.Name),
		Body:    body,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: customer confirmation: %w", err)
	}
	return nil
}

// NotifySalon emails every configured salon recipient. Each recipient is
// attempted; failures are logged and returned joined.
func (s *Service) NotifySalon(ctx context.Context, r Reservation) error {
	cfg := s.profile(ctx)
	if !cfg.NotifyOnBooking {
		s.logger.Debug("notify: booking notifications disabled")
		return nil
	}
	recipients := cfg.Recipients()
	if len(recipients) == 0 {
		s.logger.Info("notify: no salon notification recipients configured")
		return nil
	}

	body, err := render(salonTemplate, s.data(r, cfg))
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("【新規予約】%s様 - %s", r.CustomerName, FormatStart(r.Start.In(s.loc)))

	var errs []error
	for _, to := range recipients {
		err := s.email.Send(ctx, EmailMessage{To: to, ReplyTo: r.Email, Subject: subject, Body: body})
		if err != nil {
			s.logger.Error("notify: salon notification failed", "error", err, "to", to, "reservation_id", r.ReservationID)
			errs = append(errs, fmt.Errorf("notify: salon notification to %s: %w", to, err))
			continue
		}
		s.logger.Info("notify: salon notification sent", "to", to, "reservation_id", r.ReservationID)
	}
	return errors.Join(errs...)
}

func render(t *template.Template, data messageData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func customerOptions(r Reservation) []string {
	var opts []string
	if r.NailOff {
		opts = append(opts, "ジェルオフ")
	}
	if r.LengthExtensionCount > 0 {
		line := "長さ出し " + strconv.Itoa(r.LengthExtensionCount) + "本"
		if r.Breakdown.LengthExtensionYen > 0 {
			line += "　" + Yen(r.Breakdown.LengthExtensionYen)
		}
		opts = append(opts, line)
	}
	if r.StaffAssignment {
		line := "担当者指名 (" + r.SelectedStaff + ")"
		if r.Breakdown.StaffAssignmentYen > 0 {
			line += "　" + Yen(r.Breakdown.StaffAssignmentYen)
		}
		opts = append(opts, line)
	}
	return opts
}

func salonOptions(r Reservation) []string {
	var opts []string
	if r.NailOff {
		opts = append(opts, "ジェルオフ")
	}
	if r.LengthExtensionCount > 0 {
		line := "長さ出し " + strconv.Itoa(r.LengthExtensionCount) + "本"
		if r.Breakdown.LengthExtensionYen > 0 {
			line += " (+" + Yen(r.Breakdown.LengthExtensionYen) + ")"
		}
		opts = append(opts, line)
	}
	if r.StaffAssignment {
		opts = append(opts, "担当者指名 (+"+Yen(r.Breakdown.StaffAssignmentYen)+")")
	}
	return opts
}
