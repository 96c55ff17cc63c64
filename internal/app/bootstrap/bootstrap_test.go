package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/salon-booking/internal/attachments"
	"github.com/wolfman30/salon-booking/internal/calendar"
	appconfig "github.com/wolfman30/salon-booking/internal/config"
	"github.com/wolfman30/salon-booking/internal/ledger"
	"github.com/wolfman30/salon-booking/internal/menu"
	"github.com/wolfman30/salon-booking/internal/notify"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

func localConfig() *appconfig.Config {
	return &appconfig.Config{
		SalonName:              "CARAT",
		SalonTimezone:          "Asia/Tokyo",
		BusinessStartHour:      10,
		BusinessEndHour:        19,
		DaysToShow:             90,
		SlotGranularityMinutes: 15,
		MenuProvider:           "static",
		CalendarProvider:       "memory",
		LedgerProvider:         "memory",
		AttachmentProvider:     "none",
		EmailProvider:          "stub",
		MaxAttachmentBytes:     1 << 20,
	}
}

func TestBuildRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := logging.New("error")

	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{}, logger, true))

	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger, true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	assert.Nil(t, BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: "127.0.0.1:1"}, logger, true))
}

func TestBuildPostgresPoolDisabled(t *testing.T) {
	pool, err := BuildPostgresPool(context.Background(), &appconfig.Config{})
	require.NoError(t, err)
	assert.Nil(t, pool)
}

func TestSalonDefaults(t *testing.T) {
	cfg := localConfig()
	cfg.SalonNotificationEmail = "owner@example.com"
	cfg.NotificationEmails = []string{"staff@example.com"}

	s := SalonDefaults(cfg)
	assert.Equal(t, "CARAT", s.Name)
	assert.Equal(t, 10, s.StartHour)
	assert.True(t, s.NotifyOnBooking)
	assert.Equal(t, []string{"owner@example.com", "staff@example.com"}, s.Recipients())
	require.NoError(t, s.Validate())
}

func TestGoogleScopesAndAWS(t *testing.T) {
	cfg := localConfig()
	assert.Empty(t, GoogleScopes(cfg))
	assert.False(t, NeedsAWS(cfg))

	cfg.MenuProvider = "sheets"
	cfg.LedgerProvider = "sheets"
	cfg.CalendarProvider = "google"
	cfg.AttachmentProvider = "drive"
	assert.Len(t, GoogleScopes(cfg), 3)

	cfg.EmailProvider = "ses"
	assert.True(t, NeedsAWS(cfg))
}

func TestProviderDefaults(t *testing.T) {
	cfg := localConfig()
	logger := logging.New("error")

	src, err := BuildMenuSource(cfg, Clients{}, logger)
	require.NoError(t, err)
	assert.IsType(t, &menu.StaticSource{}, src)

	cal, err := BuildCalendar(context.Background(), cfg, Clients{})
	require.NoError(t, err)
	assert.IsType(t, &calendar.Memory{}, cal)

	sink, err := BuildLedger(cfg, Clients{})
	require.NoError(t, err)
	assert.IsType(t, &ledger.Memory{}, sink)

	store, err := BuildAttachmentStore(context.Background(), cfg, Clients{})
	require.NoError(t, err)
	assert.Nil(t, store)

	email, err := BuildEmailSender(cfg, Clients{}, logger)
	require.NoError(t, err)
	assert.IsType(t, &notify.StubEmailSender{}, email)
}

func TestProvidersRequireDependencies(t *testing.T) {
	logger := logging.New("error")
	tests := []struct {
		name  string
		build func(cfg *appconfig.Config) error
	}{
		{"postgres menu", func(cfg *appconfig.Config) error {
			cfg.MenuProvider = "postgres"
			_, err := BuildMenuSource(cfg, Clients{}, logger)
			return err
		}},
		{"sheets ledger", func(cfg *appconfig.Config) error {
			cfg.LedgerProvider = "sheets"
			_, err := BuildLedger(cfg, Clients{})
			return err
		}},
		{"dynamodb ledger", func(cfg *appconfig.Config) error {
			cfg.LedgerProvider = "dynamodb"
			_, err := BuildLedger(cfg, Clients{})
			return err
		}},
		{"google calendar", func(cfg *appconfig.Config) error {
			cfg.CalendarProvider = "google"
			_, err := BuildCalendar(context.Background(), cfg, Clients{})
			return err
		}},
		{"s3 attachments", func(cfg *appconfig.Config) error {
			cfg.AttachmentProvider = "s3"
			_, err := BuildAttachmentStore(context.Background(), cfg, Clients{AWS: &aws.Config{}})
			return err
		}},
		{"sendgrid", func(cfg *appconfig.Config) error {
			cfg.EmailProvider = "sendgrid"
			_, err := BuildEmailSender(cfg, Clients{}, logger)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build(localConfig())
			assert.True(t, errors.Is(err, errMissingDependency), "got %v", err)
		})
	}
}

func TestUnknownProvider(t *testing.T) {
	cfg := localConfig()
	cfg.CalendarProvider = "outlook"
	_, err := BuildCalendar(context.Background(), cfg, Clients{})
	assert.ErrorContains(t, err, "CALENDAR_PROVIDER")
}

func TestAWSProviders(t *testing.T) {
	cfg := localConfig()
	cfg.AttachmentBucket = "designs"
	cfg.AttachmentProvider = "s3"
	cfg.LedgerProvider = "dynamodb"
	cfg.EmailProvider = "ses"
	c := Clients{AWS: &aws.Config{Region: "ap-northeast-1"}}

	store, err := BuildAttachmentStore(context.Background(), cfg, c)
	require.NoError(t, err)
	assert.IsType(t, &attachments.S3Store{}, store)

	sink, err := BuildLedger(cfg, c)
	require.NoError(t, err)
	assert.IsType(t, &ledger.Dynamo{}, sink)

	email, err := BuildEmailSender(cfg, c, nil)
	require.NoError(t, err)
	assert.IsType(t, &notify.SESSender{}, email)
}

func TestNewAppServesWidget(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := localConfig()
	cfg.RedisAddr = mr.Addr()
	cfg.AdminJWTSecret = "secret"
	logger := logging.New("error")

	app, err := New(context.Background(), cfg, Clients{Redis: BuildRedisClient(context.Background(), cfg, logger, true)}, logger)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	for _, path := range []string{"/health", "/api/initial-data", "/api/busy-slots", "/metrics"} {
		rr := httptest.NewRecorder()
		app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	app.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/settings", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), nil, Clients{}, nil)
	assert.Error(t, err)
}
