package salon

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// Handler exposes the settings document to salon staff.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if store == nil {
		panic("salon: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Routes mounts GET and PUT on the router root.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetSettings)
	r.Put("/", h.UpdateSettings)
	return r
}

// GET /admin/settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to get salon settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// UpdateSettingsRequest carries a partial update; nil fields are left unchanged.
type UpdateSettingsRequest struct {
	Name               *string  `json:"name,omitempty"`
	StartHour          *int     `json:"startHour,omitempty"`
	EndHour            *int     `json:"endHour,omitempty"`
	DaysToShow         *int     `json:"daysToShow,omitempty"`
	NotificationEmail  *string  `json:"notificationEmail,omitempty"`
	NotificationEmails []string `json:"notificationEmails,omitempty"`
	NotifyOnBooking    *bool    `json:"notifyOnBooking,omitempty"`
	Policies           *string  `json:"policies,omitempty"`
	ConfirmationFooter *string  `json:"confirmationFooter,omitempty"`
}

func (req UpdateSettingsRequest) apply(cfg *Settings) {
	if req.Name != nil {
		cfg.Name = *req.Name
	}
	if req.StartHour != nil {
		cfg.StartHour = *req.StartHour
	}
	if req.EndHour != nil {
		cfg.EndHour = *req.EndHour
	}
	if req.DaysToShow != nil {
		cfg.DaysToShow = *req.DaysToShow
	}
	if req.NotificationEmail != nil {
		cfg.NotificationEmail = *req.NotificationEmail
	}
	if req.NotificationEmails != nil {
		cfg.NotificationEmails = req.NotificationEmails
	}
	if req.NotifyOnBooking != nil {
		cfg.NotifyOnBooking = *req.NotifyOnBooking
	}
	if req.Policies != nil {
		cfg.Policies = *req.Policies
	}
	if req.ConfirmationFooter != nil {
		cfg.ConfirmationFooter = *req.ConfirmationFooter
	}
}

// PUT /admin/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cfg, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to load salon settings for update", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	req.apply(cfg)

	if err := h.store.Set(r.Context(), cfg); err != nil {
		if errors.Is(err, ErrNoStore) {
			writeError(w, http.StatusServiceUnavailable, "settings storage is not configured")
			return
		}
		if cfg.Validate() != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to save salon settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("salon settings updated", "name", cfg.Name, "start_hour", cfg.StartHour, "end_hour", cfg.EndHour)
	writeJSON(w, http.StatusOK, cfg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
