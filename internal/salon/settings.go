// Package salon holds the salon settings staff can change at runtime.
package salon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/salon-booking/internal/availability"
)

const settingsKey = "salon:settings:v1"

// recipientPlaceholder is the unfilled value left in templates for the salon address.
const recipientPlaceholder = "メールアドレスを入力"

// ErrNoStore is returned by Set when no Redis client is configured.
var ErrNoStore = errors.New("salon: settings store not configured")

// Settings is the runtime-editable salon profile.
type Settings struct {
	Name               string    `json:"name"`
	StartHour          int       `json:"startHour"`
	EndHour            int       `json:"endHour"`
	DaysToShow         int       `json:"daysToShow"`
	NotificationEmail  string    `json:"notificationEmail,omitempty"`
	NotificationEmails []string  `json:"notificationEmails,omitempty"`
	NotifyOnBooking    bool      `json:"notifyOnBooking"`
	Policies           string    `json:"policies,omitempty"`
	ConfirmationFooter string    `json:"confirmationFooter,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt,omitempty"`
}

// Hours returns the opening window used by the slot engine.
func (s *Settings) Hours() availability.BusinessHours {
	return availability.BusinessHours{StartHour: s.StartHour, EndHour: s.EndHour}
}

// Validate checks the hours and the booking horizon.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("salon: name required")
	}
	if err := s.Hours().Validate(); err != nil {
		return fmt.Errorf("salon: %w", err)
	}
	if s.DaysToShow < 1 || s.DaysToShow > 366 {
		return fmt.Errorf("salon: daysToShow %d outside 1..366", s.DaysToShow)
	}
	return nil
}

// Recipients merges the primary notification address with the list,
// dropping blanks, the unfilled placeholder and duplicates.
func (s *Settings) Recipients() []string {
	seen := make(map[string]struct{})
	var recipients []string
	add := func(addr string) {
		addr = strings.TrimSpace(addr)
		if addr == "" || addr == recipientPlaceholder {
			return
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		recipients = append(recipients, addr)
	}

	add(s.NotificationEmail)
	for _, addr := range s.NotificationEmails {
		add(addr)
	}
	return recipients
}

func (s *Settings) clone() *Settings {
	out := *s
	out.NotificationEmails = append([]string(nil), s.NotificationEmails...)
	return &out
}

// Store persists Settings as one JSON document in Redis.
type Store struct {
	redis    *redis.Client
	defaults Settings
}

// NewStore creates a settings store. A nil client serves defaults only.
func NewStore(redisClient *redis.Client, defaults Settings) *Store {
	return &Store{redis: redisClient, defaults: defaults}
}

// Defaults returns a copy of the environment-provided settings.
func (s *Store) Defaults() *Settings {
	return s.defaults.clone()
}

// Get returns the stored settings, or the defaults when none were saved.
func (s *Store) Get(ctx context.Context) (*Settings, error) {
	if s.redis == nil {
		return s.Defaults(), nil
	}
	data, err := s.redis.Get(ctx, settingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.Defaults(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("salon: get settings: %w", err)
	}

	var cfg Settings
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("salon: unmarshal settings: %w", err)
	}
	return &cfg, nil
}

// Set validates and saves cfg.
func (s *Store) Set(ctx context.Context, cfg *Settings) error {
	if s.redis == nil {
		return ErrNoStore
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("salon: marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, settingsKey, data, 0).Err(); err != nil {
		return fmt.Errorf("salon: set settings: %w", err)
	}
	return nil
}
