package booking

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/salon-booking/internal/attachments"
	"github.com/wolfman30/salon-booking/internal/availability"
	"github.com/wolfman30/salon-booking/internal/calendar"
	"github.com/wolfman30/salon-booking/internal/ledger"
	"github.com/wolfman30/salon-booking/internal/menu"
	"github.com/wolfman30/salon-booking/internal/notify"
	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/internal/salon"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

var jst = time.FixedZone("Asia/Tokyo", 9*60*60)

type stubCalendar struct {
	*calendar.Memory
	busyErr   error
	createErr error
}

func (c *stubCalendar) BusyIntervals(ctx context.Context, from, to time.Time) ([]availability.Interval, error) {
	if c.busyErr != nil {
		return nil, c.busyErr
	}
	return c.Memory.BusyIntervals(ctx, from, to)
}

func (c *stubCalendar) CreateEvent(ctx context.Context, ev calendar.Event) (string, error) {
	if c.createErr != nil {
		return "", c.createErr
	}
	return c.Memory.CreateEvent(ctx, ev)
}

type failingLedger struct{}

func (failingLedger) Append(ctx context.Context, rec ledger.Record) error {
	return errors.New("sheets quota exceeded")
}

type fakeNotifier struct {
	mu       sync.Mutex
	customer []notify.Reservation
	salon    []notify.Reservation
	err      error
}

func (n *fakeNotifier) SendCustomerConfirmation(ctx context.Context, r notify.Reservation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.customer = append(n.customer, r)
	return n.err
}

func (n *fakeNotifier) NotifySalon(ctx context.Context, r notify.Reservation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.salon = append(n.salon, r)
	return n.err
}

type failingStore struct{}

func (failingStore) Put(ctx context.Context, a attachments.Attachment) (string, error) {
	return "", errors.New("drive unavailable")
}

type failingMenu struct{}

func (failingMenu) List(ctx context.Context) ([]menu.Item, error) {
	return nil, errors.New("sheet not reachable")
}

type fixture struct {
	svc      *Service
	cal      *stubCalendar
	ledger   *ledger.Memory
	notifier *fakeNotifier
	reg      *prometheus.Registry
}

func testSettings() salon.Settings {
	return salon.Settings{
		Name:              "CARAT",
		StartHour:         10,
		EndHour:           19,
		DaysToShow:        30,
		NotificationEmail: "owner@example.com",
		NotifyOnBooking:   true,
	}
}

func newFixture(t *testing.T, mutate ...func(*Deps)) *fixture {
	t.Helper()
	f := &fixture{
		cal:      &stubCalendar{Memory: calendar.NewMemory()},
		ledger:   ledger.NewMemory(),
		notifier: &fakeNotifier{},
		reg:      prometheus.NewRegistry(),
	}
	deps := Deps{
		Menu:     menu.NewProvider(menu.NewStaticSource(nil), nil),
		Calendar: f.cal,
		Ledger:   f.ledger,
		Notifier: f.notifier,
		Settings: salon.NewStore(nil, testSettings()),
		Engine:   availability.NewEngine(jst, 15),
		Metrics:  metrics.NewBookingMetrics(f.reg),
	}
	for _, m := range mutate {
		m(&deps)
	}
	f.svc = NewService(deps)
	f.svc.now = func() time.Time { return time.Date(2026, 11, 2, 9, 0, 0, 0, jst) }
	return f
}

func validRequest(start time.Time) Request {
	return Request{
		StartTime:  start,
		CourseName: "ジェルネイル",
		Name:       "山田花子",
		Email:      "hanako@example.com",
		Phone:      "090-1234-5678",
	}
}

func TestTryCommit_SecondSubmissionForSameSlotIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 11, 3, 10, 0, 0, 0, jst)

	first, err := f.svc.TryCommit(ctx, validRequest(start))
	require.NoError(t, err)
	require.True(t, first.Committed())
	assert.Equal(t, start.Add(90*time.Minute), first.End)
	assert.NotEmpty(t, first.ReservationID)
	assert.NotEmpty(t, first.CalendarEventID)

	second, err := f.svc.TryCommit(ctx, validRequest(start))
	require.NoError(t, err)
	assert.False(t, second.Committed())
	assert.Equal(t, StatusRejected, second.Status)
	assert.Equal(t, ReasonSlotTaken, second.Reason)
	assert.Empty(t, second.ReservationID)

	overlapping, err := f.svc.TryCommit(ctx, validRequest(start.Add(30*time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, overlapping.Status)

	assert.Len(t, f.cal.Events(), 1)
	assert.Len(t, f.ledger.Records(), 1)
	assert.Len(t, f.notifier.customer, 1)
}

func TestTryCommit_AdjacentSlotsBothCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 11, 3, 10, 0, 0, 0, jst)

	first, err := f.svc.TryCommit(ctx, validRequest(start))
	require.NoError(t, err)
	require.True(t, first.Committed())

	second, err := f.svc.TryCommit(ctx, validRequest(first.End))
	require.NoError(t, err)
	assert.True(t, second.Committed())
	assert.Len(t, f.cal.Events(), 2)
}

func TestTryCommit_AppliesOptionsToDurationAndLedger(t *testing.T) {
	f := newFixture(t)
	req := validRequest(time.Date(2026, 11, 3, 14, 0, 0, 0, jst))
	req.NailOff = true
	req.LengthExtensionCount = 4
	req.StaffAssignment = true
	req.SelectedStaff = "佐藤"
	req.VisitStatus = VisitReturning
	req.MenuType = "foot"

	out, err := f.svc.TryCommit(context.Background(), req)
	require.NoError(t, err)
	require.True(t, out.Committed())
	assert.Equal(t, 150, out.Quote.TotalMinutes)
	assert.Equal(t, 8000+3500+400, out.Quote.Breakdown.TotalYen)

	recs := f.ledger.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, MenuTypeFoot, recs[0].MenuType)
	assert.Equal(t, "佐藤", recs[0].SelectedStaff)
	assert.Equal(t, out.ReservationID, recs[0].ReservationID)

	ev := f.cal.Events()[out.CalendarEventID]
	assert.Equal(t, "[予約] 山田花子様 (FOOT (+オフ/長さ出し4本))", ev.Summary)
	assert.Contains(t, ev.Description, "担当者指名: 佐藤")
	assert.Contains(t, ev.Description, "合計: 11900円")
}

func TestTryCommit_SideEffectFailuresKeepCommit(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Ledger = failingLedger{}
		d.Attachments = failingStore{}
	})
	f.notifier.err = errors.New("sendgrid 500")

	req := validRequest(time.Date(2026, 11, 3, 10, 0, 0, 0, jst))
	req.Attachment = &attachments.Attachment{FileName: "design.png", MimeType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}

	out, err := f.svc.TryCommit(context.Background(), req)
	require.NoError(t, err)
	require.True(t, out.Committed())
	assert.Equal(t, attachments.UploadFailedPlaceholder, out.AttachmentURL)

	ev := f.cal.Events()[out.CalendarEventID]
	assert.Contains(t, ev.Description, attachments.UploadFailedPlaceholder)
	assert.Len(t, f.notifier.customer, 1)
	assert.Len(t, f.notifier.salon, 1)

	n, err := testutil.GatherAndCount(f.reg, "salon_booking_side_effect_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestTryCommit_StoresAttachmentLink(t *testing.T) {
	stored := &recordingStore{url: "https://cdn.example.com/designs/a.png"}
	f := newFixture(t, func(d *Deps) { d.Attachments = stored })

	req := validRequest(time.Date(2026, 11, 3, 10, 0, 0, 0, jst))
	req.Attachment = &attachments.Attachment{FileName: "a.png", MimeType: "image/png", Data: []byte("png")}

	out, err := f.svc.TryCommit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, stored.url, out.AttachmentURL)
	assert.Equal(t, "山田花子", stored.got.CustomerName)
	assert.Equal(t, stored.url, f.ledger.Records()[0].AttachmentURL)
}

type recordingStore struct {
	url string
	got attachments.Attachment
}

func (s *recordingStore) Put(ctx context.Context, a attachments.Attachment) (string, error) {
	s.got = a
	return s.url, nil
}

func TestTryCommit_CalendarReadFailureCommitsNothing(t *testing.T) {
	f := newFixture(t)
	f.cal.busyErr = errors.New("calendar 503")

	out, err := f.svc.TryCommit(context.Background(), validRequest(time.Date(2026, 11, 3, 10, 0, 0, 0, jst)))
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Nil(t, out)
	assert.Empty(t, f.cal.Events())
	assert.Empty(t, f.ledger.Records())
	assert.Empty(t, f.notifier.customer)
}

func TestTryCommit_CalendarWriteFailure(t *testing.T) {
	f := newFixture(t)
	f.cal.createErr = errors.New("insufficient permissions")

	_, err := f.svc.TryCommit(context.Background(), validRequest(time.Date(2026, 11, 3, 10, 0, 0, 0, jst)))
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Empty(t, f.ledger.Records())
	assert.Empty(t, f.notifier.salon)
}

func TestTryCommit_StoreConflictIsRejected(t *testing.T) {
	f := newFixture(t)
	f.cal.createErr = calendar.ErrConflict

	out, err := f.svc.TryCommit(context.Background(), validRequest(time.Date(2026, 11, 3, 10, 0, 0, 0, jst)))
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, out.Status)
	assert.Empty(t, f.ledger.Records())
}

func TestTryCommit_DegradedMenuUnknownCourse(t *testing.T) {
	f := newFixture(t, func(d *Deps) { d.Menu = menu.NewProvider(failingMenu{}, nil) })
	req := validRequest(time.Date(2026, 11, 3, 10, 0, 0, 0, jst))
	req.CourseName = "季節限定アート"

	_, err := f.svc.TryCommit(context.Background(), req)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestTryCommit_InvalidInput(t *testing.T) {
	base := time.Date(2026, 11, 3, 10, 0, 0, 0, jst)
	tests := []struct {
		name   string
		mutate func(*Request)
		want   string
	}{
		{"missing name", func(r *Request) { r.Name = "  " }, "missing name"},
		{"missing start", func(r *Request) { r.StartTime = time.Time{} }, "startTime"},
		{"bad email", func(r *Request) { r.Email = "not-an-email" }, "email"},
		{"unknown course", func(r *Request) { r.CourseName = "存在しないコース" }, "unknown course"},
		{"unknown menu type", func(r *Request) { r.MenuType = "TOE" }, "menu type"},
		{"unknown visit status", func(r *Request) { r.VisitStatus = "常連" }, "visit status"},
		{"staff without name", func(r *Request) { r.StaffAssignment = true }, "selectedStaff"},
		{"extension count too high", func(r *Request) { r.LengthExtensionCount = 11 }, "length extension"},
		{"duration mismatch", func(r *Request) { r.DurationMinutes = 60 }, "courseDuration"},
		{"price mismatch", func(r *Request) { r.CoursePriceYen = 1 }, "coursePrice"},
		{"before opening", func(r *Request) { r.StartTime = base.Add(-time.Hour) }, "business hours"},
		{"past closing", func(r *Request) { r.StartTime = time.Date(2026, 11, 3, 18, 0, 0, 0, jst) }, "business hours"},
		{"already passed", func(r *Request) { r.StartTime = time.Date(2026, 11, 1, 12, 0, 0, 0, jst) }, "already passed"},
		{"beyond window", func(r *Request) { r.StartTime = time.Date(2027, 1, 15, 12, 0, 0, 0, jst) }, "booking window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := validRequest(base)
			tt.mutate(&req)

			out, err := f.svc.TryCommit(context.Background(), req)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Nil(t, out)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, f.cal.Events())
		})
	}
}

func TestTryCommit_MatchingClientFiguresAccepted(t *testing.T) {
	f := newFixture(t)
	req := validRequest(time.Date(2026, 11, 3, 10, 0, 0, 0, jst))
	req.LengthExtensionCount = 5
	req.DurationMinutes = 120
	req.CoursePriceYen = 8000
	req.LengthExtensionPriceYen = 3500

	out, err := f.svc.TryCommit(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, out.Committed())
}

func TestTryCommit_NotificationsCarryReservation(t *testing.T) {
	f := newFixture(t)
	out, err := f.svc.TryCommit(context.Background(), validRequest(time.Date(2026, 11, 3, 10, 0, 0, 0, jst)))
	require.NoError(t, err)

	require.Len(t, f.notifier.customer, 1)
	got := f.notifier.customer[0]
	assert.Equal(t, out.ReservationID, got.ReservationID)
	assert.Equal(t, VisitFirst, got.VisitStatus)
	assert.Equal(t, MenuTypeHand, got.MenuType)
	assert.Equal(t, 8000, got.Breakdown.TotalYen)
	assert.True(t, strings.HasPrefix(f.cal.Events()[out.CalendarEventID].Summary, "[予約] 【初回】"))
}

func TestEventTitle(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"returning no options", Request{Name: "A", MenuType: "HAND", VisitStatus: VisitReturning}, "[予約] A様 (HAND)"},
		{"first with off", Request{Name: "B", MenuType: "HAND", VisitStatus: VisitFirst, NailOff: true}, "[予約] 【初回】B様 (HAND (+オフ))"},
		{"extension only", Request{Name: "C", MenuType: "FOOT", VisitStatus: VisitReturning, LengthExtensionCount: 2}, "[予約] C様 (FOOT (+長さ出し2本))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eventTitle(tt.req))
		})
	}
}

// cancellingCalendar cancels the caller's context once the event is written,
// as a client disconnect or router timeout would.
type cancellingCalendar struct {
	*calendar.Memory
	cancel context.CancelFunc
}

func (c *cancellingCalendar) CreateEvent(ctx context.Context, ev calendar.Event) (string, error) {
	id, err := c.Memory.CreateEvent(ctx, ev)
	c.cancel()
	return id, err
}

type contextLedger struct {
	*ledger.Memory
}

func (l contextLedger) Append(ctx context.Context, rec ledger.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.Memory.Append(ctx, rec)
}

type contextNotifier struct {
	fakeNotifier
}

func (n *contextNotifier) SendCustomerConfirmation(ctx context.Context, r notify.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.fakeNotifier.SendCustomerConfirmation(ctx, r)
}

func (n *contextNotifier) NotifySalon(ctx context.Context, r notify.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.fakeNotifier.NotifySalon(ctx, r)
}

func TestTryCommit_SideEffectsSurviveCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cal := &cancellingCalendar{Memory: calendar.NewMemory(), cancel: cancel}
	sink := contextLedger{Memory: ledger.NewMemory()}
	notifier := &contextNotifier{}
	f := newFixture(t, func(d *Deps) {
		d.Calendar = cal
		d.Ledger = sink
		d.Notifier = notifier
	})

	out, err := f.svc.TryCommit(ctx, validRequest(time.Date(2026, 11, 3, 10, 0, 0, 0, jst)))
	require.NoError(t, err)
	require.True(t, out.Committed())
	require.ErrorIs(t, ctx.Err(), context.Canceled)

	assert.Len(t, cal.Events(), 1)
	recs := sink.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, out.ReservationID, recs[0].ReservationID)
	assert.Len(t, notifier.customer, 1)
	assert.Len(t, notifier.salon, 1)

	n, err := testutil.GatherAndCount(f.reg, "salon_booking_side_effect_failures_total")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTryCommit_ConflictLogsStoredAttachment(t *testing.T) {
	var buf bytes.Buffer
	stored := &recordingStore{url: "https://cdn.example.com/designs/late.png"}
	f := newFixture(t, func(d *Deps) {
		d.Attachments = stored
		d.Logger = logging.NewWithWriter("info", &buf)
	})
	f.cal.createErr = calendar.ErrConflict

	req := validRequest(time.Date(2026, 11, 3, 10, 0, 0, 0, jst))
	req.Attachment = &attachments.Attachment{FileName: "late.png", MimeType: "image/png", Data: []byte("png")}

	out, err := f.svc.TryCommit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, out.Status)
	assert.Contains(t, buf.String(), "attachment stored for rejected reservation")
	assert.Contains(t, buf.String(), stored.url)
	assert.Empty(t, f.ledger.Records())

	n, err := testutil.GatherAndCount(f.reg, "salon_booking_side_effect_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTryCommit_BookingHorizon(t *testing.T) {
	f := newFixture(t)

	// now is 2026-11-02 with 30 days shown, so 2026-12-01 is the last bookable day.
	last, err := f.svc.TryCommit(context.Background(), validRequest(time.Date(2026, 12, 1, 10, 0, 0, 0, jst)))
	require.NoError(t, err)
	assert.True(t, last.Committed())

	_, err = f.svc.TryCommit(context.Background(), validRequest(time.Date(2026, 12, 2, 10, 0, 0, 0, jst)))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
