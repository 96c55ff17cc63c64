// Package bootstrap assembles the booking service and HTTP router from
// configuration. Both the API server and the Lambda handler use it.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/salon-booking/internal/api/router"
	"github.com/wolfman30/salon-booking/internal/availability"
	"github.com/wolfman30/salon-booking/internal/booking"
	appconfig "github.com/wolfman30/salon-booking/internal/config"
	"github.com/wolfman30/salon-booking/internal/gworkspace"
	httpmiddleware "github.com/wolfman30/salon-booking/internal/http/middleware"
	"github.com/wolfman30/salon-booking/internal/menu"
	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/internal/notify"
	"github.com/wolfman30/salon-booking/internal/salon"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// App is the assembled application.
type App struct {
	Handler     http.Handler
	Booking     *booking.Service
	RateLimiter *httpmiddleware.RateLimiter
	clients     Clients
}

// New wires every provider selected in cfg. c.Google and c.Sheets are filled
// in here when a Google provider is selected and they are unset.
func New(ctx context.Context, cfg *appconfig.Config, c Clients, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	loc := cfg.Location()

	if scopes := GoogleScopes(cfg); len(scopes) > 0 && c.Google == nil {
		c.Google = gworkspace.ClientOptions(cfg.GoogleCredentialsFile, scopes...)
	}
	if (cfg.MenuProvider == "sheets" || cfg.LedgerProvider == "sheets") && c.Sheets == nil {
		sh, err := gworkspace.NewSheets(ctx, c.Google...)
		if err != nil {
			return nil, err
		}
		c.Sheets = sh
	}

	menuSource, err := BuildMenuSource(cfg, c, logger.Component("menu"))
	if err != nil {
		return nil, err
	}
	cal, err := BuildCalendar(ctx, cfg, c)
	if err != nil {
		return nil, err
	}
	sink, err := BuildLedger(cfg, c)
	if err != nil {
		return nil, err
	}
	store, err := BuildAttachmentStore(ctx, cfg, c)
	if err != nil {
		return nil, err
	}
	email, err := BuildEmailSender(cfg, c, logger.Component("email"))
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	settings := salon.NewStore(c.Redis, SalonDefaults(cfg))
	svc := booking.NewService(booking.Deps{
		Menu:        menu.NewProvider(menuSource, logger.Component("menu")),
		Calendar:    cal,
		Ledger:      sink,
		Notifier:    notify.NewService(email, settings, loc, logger.Component("notify")),
		Attachments: store,
		Settings:    settings,
		Engine:      availability.NewEngine(loc, cfg.SlotGranularityMinutes),
		Metrics:     metrics.NewBookingMetrics(reg),
		Logger:      logger.Component("booking"),
	})

	var invalidator booking.MenuInvalidator
	if inv, ok := menuSource.(booking.MenuInvalidator); ok {
		invalidator = inv
	}

	app := &App{Booking: svc, clients: c}
	if cfg.RateLimitPerSecond > 0 {
		app.RateLimiter = httpmiddleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}
	app.Handler = router.New(&router.Config{
		Logger:             logger,
		BookingHandler:     booking.NewHandler(svc, cfg.MaxAttachmentBytes, invalidator, logger.Component("http")),
		SettingsHandler:    salon.NewHandler(settings, logger.Component("settings")),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		HealthChecks:       healthChecks(c),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		StaffAuthSecret:    cfg.AdminJWTSecret,
		RateLimiter:        app.RateLimiter,
		RequestTimeout:     cfg.RequestTimeout,
	})

	logger.Info("booking app assembled",
		"menu_provider", cfg.MenuProvider,
		"calendar_provider", cfg.CalendarProvider,
		"ledger_provider", cfg.LedgerProvider,
		"attachment_provider", cfg.AttachmentProvider,
		"email_provider", cfg.EmailProvider,
		"timezone", loc.String(),
	)
	return app, nil
}

// Close releases the shared connections.
func (a *App) Close() {
	if a.clients.Redis != nil {
		_ = a.clients.Redis.Close()
	}
	if a.clients.Postgres != nil {
		a.clients.Postgres.Close()
	}
}

func healthChecks(c Clients) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}
	if c.Postgres != nil {
		checks["postgres"] = c.Postgres.Ping
	}
	return checks
}
