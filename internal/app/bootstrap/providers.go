package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	gcalendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/wolfman30/salon-booking/internal/attachments"
	"github.com/wolfman30/salon-booking/internal/calendar"
	appconfig "github.com/wolfman30/salon-booking/internal/config"
	"github.com/wolfman30/salon-booking/internal/gworkspace"
	"github.com/wolfman30/salon-booking/internal/ledger"
	"github.com/wolfman30/salon-booking/internal/menu"
	"github.com/wolfman30/salon-booking/internal/notify"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

var errMissingDependency = errors.New("bootstrap: missing dependency")

// Clients are the shared connections the providers are built from. Any of
// them may be nil when no selected provider needs it.
type Clients struct {
	Redis    *redis.Client
	Postgres *pgxpool.Pool
	AWS      *aws.Config
	Google   []option.ClientOption
	Sheets   *gworkspace.Sheets
}

// GoogleScopes lists the OAuth scopes for the selected Google providers.
func GoogleScopes(cfg *appconfig.Config) []string {
	var scopes []string
	if cfg.MenuProvider == "sheets" || cfg.LedgerProvider == "sheets" {
		scopes = append(scopes, sheets.SpreadsheetsScope)
	}
	if cfg.CalendarProvider == "google" {
		scopes = append(scopes, gcalendar.CalendarScope)
	}
	if cfg.AttachmentProvider == "drive" {
		scopes = append(scopes, drive.DriveFileScope)
	}
	return scopes
}

// NeedsAWS reports whether any selected provider talks to AWS.
func NeedsAWS(cfg *appconfig.Config) bool {
	return cfg.LedgerProvider == "dynamodb" || cfg.AttachmentProvider == "s3" || cfg.EmailProvider == "ses"
}

// BuildMenuSource selects the menu source and puts the Redis cache in front of
// remote sources.
func BuildMenuSource(cfg *appconfig.Config, c Clients, logger *logging.Logger) (menu.Source, error) {
	var src menu.Source
	switch cfg.MenuProvider {
	case "", "static":
		return menu.NewStaticSource(nil), nil
	case "sheets":
		if c.Sheets == nil || strings.TrimSpace(cfg.SpreadsheetID) == "" {
			return nil, fmt.Errorf("%w: sheets menu needs SPREADSHEET_ID and Google credentials", errMissingDependency)
		}
		src = menu.NewSheetsSource(c.Sheets, cfg.SpreadsheetID, cfg.MenuSheetName, logger)
	case "postgres":
		if c.Postgres == nil {
			return nil, fmt.Errorf("%w: postgres menu needs DATABASE_URL", errMissingDependency)
		}
		src = menu.NewPostgresSource(c.Postgres)
	default:
		return nil, fmt.Errorf("bootstrap: unknown MENU_PROVIDER %q", cfg.MenuProvider)
	}
	return menu.NewCachedSource(src, c.Redis, cfg.MenuCacheTTL, logger), nil
}

// BuildCalendar selects the busy-interval source and event writer.
func BuildCalendar(ctx context.Context, cfg *appconfig.Config, c Clients) (calendar.Calendar, error) {
	switch cfg.CalendarProvider {
	case "", "memory":
		return calendar.NewMemory(), nil
	case "google":
		if strings.TrimSpace(cfg.GoogleCalendarID) == "" {
			return nil, fmt.Errorf("%w: google calendar needs GOOGLE_CALENDAR_ID", errMissingDependency)
		}
		return calendar.NewGoogle(ctx, cfg.GoogleCalendarID, cfg.Location(), c.Google...)
	case "postgres":
		if c.Postgres == nil {
			return nil, fmt.Errorf("%w: postgres calendar needs DATABASE_URL", errMissingDependency)
		}
		return calendar.NewPostgres(c.Postgres), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown CALENDAR_PROVIDER %q", cfg.CalendarProvider)
	}
}

// BuildLedger selects where committed reservations are recorded.
func BuildLedger(cfg *appconfig.Config, c Clients) (ledger.Sink, error) {
	switch cfg.LedgerProvider {
	case "", "memory":
		return ledger.NewMemory(), nil
	case "sheets":
		if c.Sheets == nil || strings.TrimSpace(cfg.SpreadsheetID) == "" {
			return nil, fmt.Errorf("%w: sheets ledger needs SPREADSHEET_ID and Google credentials", errMissingDependency)
		}
		return ledger.NewSheets(c.Sheets, cfg.SpreadsheetID, cfg.LedgerSheetName, cfg.Location()), nil
	case "postgres":
		if c.Postgres == nil {
			return nil, fmt.Errorf("%w: postgres ledger needs DATABASE_URL", errMissingDependency)
		}
		return ledger.NewPostgres(c.Postgres), nil
	case "dynamodb":
		if c.AWS == nil {
			return nil, fmt.Errorf("%w: dynamodb ledger needs AWS config", errMissingDependency)
		}
		return ledger.NewDynamo(dynamodb.NewFromConfig(*c.AWS), cfg.LedgerTable, cfg.Location()), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown LEDGER_PROVIDER %q", cfg.LedgerProvider)
	}
}

// BuildAttachmentStore selects the design-image store; nil disables uploads.
func BuildAttachmentStore(ctx context.Context, cfg *appconfig.Config, c Clients) (attachments.Store, error) {
	switch cfg.AttachmentProvider {
	case "", "none":
		return nil, nil
	case "s3":
		if c.AWS == nil || strings.TrimSpace(cfg.AttachmentBucket) == "" {
			return nil, fmt.Errorf("%w: s3 attachments need ATTACHMENT_BUCKET and AWS config", errMissingDependency)
		}
		client := s3.NewFromConfig(*c.AWS, func(o *s3.Options) {
			o.UsePathStyle = cfg.AWSEndpointOverride != ""
		})
		return attachments.NewS3Store(client, cfg.AttachmentBucket, cfg.PublicBaseURL), nil
	case "drive":
		if strings.TrimSpace(cfg.DriveFolderID) == "" {
			return nil, fmt.Errorf("%w: drive attachments need DRIVE_FOLDER_ID", errMissingDependency)
		}
		return attachments.NewDriveStore(ctx, cfg.DriveFolderID, c.Google...)
	default:
		return nil, fmt.Errorf("bootstrap: unknown ATTACHMENT_PROVIDER %q", cfg.AttachmentProvider)
	}
}

// BuildEmailSender selects the email transport.
func BuildEmailSender(cfg *appconfig.Config, c Clients, logger *logging.Logger) (notify.EmailSender, error) {
	switch cfg.EmailProvider {
	case "", "stub":
		return notify.NewStubEmailSender(logger), nil
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromEmail,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			return nil, fmt.Errorf("%w: sendgrid needs SENDGRID_API_KEY", errMissingDependency)
		}
		return sender, nil
	case "ses":
		if c.AWS == nil {
			return nil, fmt.Errorf("%w: ses needs AWS config", errMissingDependency)
		}
		return notify.NewSESSender(sesv2.NewFromConfig(*c.AWS), notify.SESConfig{
			FromEmail: cfg.EmailFromEmail,
			FromName:  cfg.EmailFromName,
		}, logger), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
}
