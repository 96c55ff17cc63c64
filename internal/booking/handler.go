package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/salon-booking/internal/attachments"
	"github.com/wolfman30/salon-booking/internal/availability"
	"github.com/wolfman30/salon-booking/internal/pricing"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

const (
	messageInvalid     = "入力内容に誤りがあります"
	messageUnavailable = "現在ご予約を受け付けられません。しばらくしてから再度お試しください。"
)

// MenuInvalidator drops any cached copy of the menu.
type MenuInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Handler serves the widget API.
type Handler struct {
	svc                *Service
	maxAttachmentBytes int
	menuCache          MenuInvalidator
	logger             *logging.Logger
}

// NewHandler builds the HTTP handler. menuCache may be nil.
func NewHandler(svc *Service, maxAttachmentBytes int, menuCache MenuInvalidator, logger *logging.Logger) *Handler {
	if svc == nil {
		panic("booking: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, maxAttachmentBytes: maxAttachmentBytes, menuCache: menuCache, logger: logger}
}

// Routes returns the public widget routes, mounted under /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/initial-data", h.GetInitialData)
	r.Get("/busy-slots", h.GetBusySlots)
	r.Post("/quote", h.PostQuote)
	r.Get("/availability", h.GetAvailability)
	r.Get("/availability/days", h.GetAvailableDays)
	r.Post("/reservations", h.PostReservation)
	return r
}

// MenuRoutes returns the staff-only menu routes, mounted under /admin/menu.
func (h *Handler) MenuRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetMenu)
	r.Post("/refresh", h.RefreshMenu)
	return r
}

// GET /api/initial-data
func (h *Handler) GetInitialData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.InitialData(r.Context()))
}

type busySlotsResponse struct {
	BusySlots []availability.Interval `json:"busySlots"`
	Warning   string                  `json:"warning,omitempty"`
}

// GET /api/busy-slots
func (h *Handler) GetBusySlots(w http.ResponseWriter, r *http.Request) {
	busy, degraded := h.svc.BusySlots(r.Context())
	resp := busySlotsResponse{BusySlots: busy}
	if degraded {
		resp.Warning = warningBusyUnknown
	}
	writeJSON(w, http.StatusOK, resp)
}

type quoteRequest struct {
	CourseName           string `json:"courseName"`
	NailOff              bool   `json:"nailOff"`
	LengthExtensionCount int    `json:"lengthExtensionCount"`
	StaffAssignment      bool   `json:"staffAssignment"`
}

// POST /api/quote
func (h *Handler) PostQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	q, err := h.svc.Quote(r.Context(), req.CourseName, pricing.Options{
		NailOff:              req.NailOff,
		LengthExtensionCount: req.LengthExtensionCount,
		StaffAssignment:      req.StaffAssignment,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type availabilityResponse struct {
	Date            string      `json:"date"`
	DurationMinutes int         `json:"durationMinutes"`
	Slots           []time.Time `json:"slots"`
	Warning         string      `json:"warning,omitempty"`
}

// GET /api/availability?date=2026-11-02&course=...&nailOff=true&lengthExtension=3&staff=false
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	loc := h.svc.engine.Location()
	day, err := time.ParseInLocation(time.DateOnly, r.URL.Query().Get("date"), loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	course, opts, err := parseSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Slots(r.Context(), day, course, opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		Date:            res.Date.Format(time.DateOnly),
		DurationMinutes: res.DurationMinutes,
		Slots:           res.Slots,
		Warning:         res.Warning,
	})
}

type availableDaysResponse struct {
	Days    []string `json:"days"`
	Warning string   `json:"warning,omitempty"`
}

// GET /api/availability/days?from=2026-11-01&days=30&course=...
func (h *Handler) GetAvailableDays(w http.ResponseWriter, r *http.Request) {
	loc := h.svc.engine.Location()
	q := r.URL.Query()

	from := h.svc.today()
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = parsed
	}
	days := 0
	if raw := q.Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}
	course, opts, err := parseSelection(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dates, warning, err := h.svc.AvailableDays(r.Context(), from, days, course, opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	resp := availableDaysResponse{Days: make([]string, 0, len(dates)), Warning: warning}
	for _, d := range dates {
		resp.Days = append(resp.Days, d.Format(time.DateOnly))
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseSelection(r *http.Request) (string, pricing.Options, error) {
	q := r.URL.Query()
	var opts pricing.Options
	var err error
	if opts.NailOff, err = queryBool(q.Get("nailOff")); err != nil {
		return "", opts, fmt.Errorf("nailOff: %w", err)
	}
	if opts.StaffAssignment, err = queryBool(q.Get("staff")); err != nil {
		return "", opts, fmt.Errorf("staff: %w", err)
	}
	if raw := q.Get("lengthExtension"); raw != "" {
		if opts.LengthExtensionCount, err = strconv.Atoi(raw); err != nil {
			return "", opts, fmt.Errorf("lengthExtension must be an integer")
		}
	}
	return q.Get("course"), opts, nil
}

func queryBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

// SubmissionPayload is the JSON body of POST /api/reservations.
type SubmissionPayload struct {
	StartTime            string        `json:"startTime"`
	CourseDuration       int           `json:"courseDuration"`
	CourseNameOnly       string        `json:"courseNameOnly"`
	CoursePrice          int           `json:"coursePrice"`
	IsNailOff            bool          `json:"isNailOff"`
	LengthExtensionCount int           `json:"lengthExtensionCount"`
	LengthExtensionPrice int           `json:"lengthExtensionPrice"`
	IsStaffAssignment    bool          `json:"isStaffAssignment"`
	SelectedStaff        string        `json:"selectedStaff"`
	StaffAssignmentPrice int           `json:"staffAssignmentPrice"`
	Name                 string        `json:"name"`
	Email                string        `json:"email"`
	Phone                string        `json:"phone"`
	MenuType             string        `json:"menuType"`
	VisitStatus          string        `json:"visitStatus"`
	ImageFile            *ImagePayload `json:"imageFile,omitempty"`
}

// ImagePayload is an inline base64 design image.
type ImagePayload struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
	FileName string `json:"fileName"`
}

// ToRequest parses the start time in loc (RFC 3339, or a zone-less
// datetime-local value) and decodes the image.
func (p SubmissionPayload) ToRequest(loc *time.Location, maxAttachmentBytes int) (Request, error) {
	start, err := parseStartTime(p.StartTime, loc)
	if err != nil {
		return Request{}, err
	}
	req := Request{
		StartTime:               start,
		DurationMinutes:         p.CourseDuration,
		CourseName:              p.CourseNameOnly,
		CoursePriceYen:          p.CoursePrice,
		NailOff:                 p.IsNailOff,
		LengthExtensionCount:    p.LengthExtensionCount,
		LengthExtensionPriceYen: p.LengthExtensionPrice,
		StaffAssignment:         p.IsStaffAssignment,
		SelectedStaff:           p.SelectedStaff,
		StaffAssignmentPriceYen: p.StaffAssignmentPrice,
		Name:                    p.Name,
		Email:                   p.Email,
		Phone:                   p.Phone,
		MenuType:                p.MenuType,
		VisitStatus:             p.VisitStatus,
	}
	if p.ImageFile != nil && strings.TrimSpace(p.ImageFile.Base64) != "" {
		a, err := attachments.Decode(p.ImageFile.Base64, p.ImageFile.MimeType, p.ImageFile.FileName, maxAttachmentBytes)
		if err != nil {
			return Request{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		req.Attachment = a
	}
	return req, nil
}

func parseStartTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: missing startTime", ErrInvalidInput)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: startTime %q is not a valid timestamp", ErrInvalidInput, raw)
}

type submitResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ReservationID string `json:"reservationId,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// POST /api/reservations
func (h *Handler) PostReservation(w http.ResponseWriter, r *http.Request) {
	limit := int64(64 << 10)
	if h.maxAttachmentBytes > 0 {
		limit += int64(h.maxAttachmentBytes)*4/3 + 4
	}
	var payload SubmissionPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, submitResponse{Message: messageInvalid + ": invalid JSON body"})
		return
	}
	req, err := payload.ToRequest(h.svc.engine.Location(), h.maxAttachmentBytes)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, submitResponse{Message: messageInvalid + ": " + err.Error()})
		return
	}

	outcome, err := h.svc.TryCommit(r.Context(), req)
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, submitResponse{Message: messageInvalid + ": " + err.Error()})
	case err != nil:
		h.logger.Error("reservation failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, submitResponse{Message: messageUnavailable})
	case !outcome.Committed():
		writeJSON(w, http.StatusConflict, submitResponse{Message: outcome.Message, Reason: outcome.Reason})
	default:
		writeJSON(w, http.StatusCreated, submitResponse{
			Success:       true,
			Message:       outcome.Message,
			ReservationID: outcome.ReservationID,
		})
	}
}

type menuResponse struct {
	Items    any  `json:"items"`
	Degraded bool `json:"degraded"`
}

// GET /admin/menu
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	cat, degraded := h.svc.menu.Catalog(r.Context())
	writeJSON(w, http.StatusOK, menuResponse{Items: cat.Items(), Degraded: degraded})
}

// POST /admin/menu/refresh
func (h *Handler) RefreshMenu(w http.ResponseWriter, r *http.Request) {
	if h.menuCache != nil {
		if err := h.menuCache.Invalidate(r.Context()); err != nil {
			h.logger.Error("menu cache invalidation failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}
	h.GetMenu(w, r)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("availability request failed", "error", err)
	writeError(w, http.StatusServiceUnavailable, "service unavailable")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
