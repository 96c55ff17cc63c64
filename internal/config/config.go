package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	// Salon defaults; runtime overrides live in the salon settings store.
	SalonName              string
	SalonTimezone          string
	BusinessStartHour      int
	BusinessEndHour        int
	DaysToShow             int
	SlotGranularityMinutes int
	SalonNotificationEmail string
	NotificationEmails     []string

	// Provider selection
	MenuProvider       string // "sheets", "postgres" or "static"
	CalendarProvider   string // "google", "postgres" or "memory"
	LedgerProvider     string // "sheets", "postgres", "dynamodb" or "memory"
	AttachmentProvider string // "s3", "drive" or "none"
	EmailProvider      string // "sendgrid", "ses" or "stub"

	// Google Workspace
	GoogleCredentialsFile string
	GoogleCalendarID      string
	SpreadsheetID         string
	MenuSheetName         string
	LedgerSheetName       string
	DriveFolderID         string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	MenuCacheTTL  time.Duration

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	AttachmentBucket    string
	LedgerTable         string

	// SendGrid / SES Email Configuration
	SendGridAPIKey string
	EmailFromEmail string
	EmailFromName  string

	MaxAttachmentBytes int
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
	AdminJWTSecret     string
	RequestTimeout     time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		SalonName:              getEnv("SALON_NAME", "CARAT"),
		SalonTimezone:          getEnv("SALON_TIMEZONE", "Asia/Tokyo"),
		BusinessStartHour:      getEnvAsInt("BUSINESS_START_HOUR", 10),
		BusinessEndHour:        getEnvAsInt("BUSINESS_END_HOUR", 19),
		DaysToShow:             getEnvAsInt("DAYS_TO_SHOW", 90),
		SlotGranularityMinutes: getEnvAsInt("SLOT_GRANULARITY_MINUTES", 15),
		SalonNotificationEmail: getEnv("SALON_NOTIFICATION_EMAIL", ""),
		NotificationEmails:     getEnvAsList("NOTIFICATION_EMAILS"),

		MenuProvider:       strings.ToLower(getEnv("MENU_PROVIDER", "static")),
		CalendarProvider:   strings.ToLower(getEnv("CALENDAR_PROVIDER", "memory")),
		LedgerProvider:     strings.ToLower(getEnv("LEDGER_PROVIDER", "memory")),
		AttachmentProvider: strings.ToLower(getEnv("ATTACHMENT_PROVIDER", "none")),
		EmailProvider:      strings.ToLower(getEnv("EMAIL_PROVIDER", "stub")),

		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCalendarID:      getEnv("GOOGLE_CALENDAR_ID", ""),
		SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),
		MenuSheetName:         getEnv("MENU_SHEET_NAME", "メニュー"),
		LedgerSheetName:       getEnv("LEDGER_SHEET_NAME", "予約台帳"),
		DriveFolderID:         getEnv("DRIVE_FOLDER_ID", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		MenuCacheTTL:  getEnvAsDuration("MENU_CACHE_TTL", 5*time.Minute),

		AWSRegion:           getEnv("AWS_REGION", "ap-northeast-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		AttachmentBucket:    getEnv("ATTACHMENT_BUCKET", ""),
		LedgerTable:         getEnv("LEDGER_TABLE", "reservations"),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFromEmail: getEnv("EMAIL_FROM_EMAIL", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "CARAT"),

		MaxAttachmentBytes: getEnvAsInt("MAX_ATTACHMENT_BYTES", 10<<20),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		RequestTimeout:     getEnvAsDuration("REQUEST_TIMEOUT", 20*time.Second),
	}
}

// Location resolves the salon timezone, falling back to UTC when the name is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SalonTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty entries.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
