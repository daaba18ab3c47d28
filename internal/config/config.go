package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	WhatsApp  WhatsAppConfig
	Reporting ReportingConfig
	Sheets    SheetsConfig
	MongoDB   MongoDBConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken      string
	PhoneNumberID    string
	VerifyToken      string
	BaseURL          string
	APIVersion       string
	TemplateName     string
	TemplateLanguage string
	GraphDebug       string
	RequestTimeout   time.Duration
}

// SinkTimeout bounds each audit write (status archive, contact journal) made while
// handling a webhook event.
const SinkTimeout = 10 * time.Second

const writeTimeoutSlack = 15 * time.Second

// ServerWriteTimeout is the HTTP write deadline that still lets an event finish its
// sends and audit write before the acknowledgement is written. Zero means no deadline,
// which is the only safe value when Graph calls themselves are unbounded.
func (c WhatsAppConfig) ServerWriteTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return 0
	}
	return 2*c.RequestTimeout + SinkTimeout + writeTimeoutSlack
}

// CanSend reports whether outbound sends have the credentials they need.
func (c WhatsAppConfig) CanSend() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
	Recipient    string
}

// Location resolves Timezone, falling back to UTC when it cannot be loaded.
func (c ReportingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SheetsConfig contains configuration required to append to the contacts journal.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	ContactsRange   string
}

// Enabled reports whether the contacts journal should be wired.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Enabled reports whether the status archive should be wired.
func (c MongoDBConfig) Enabled() bool {
	return c.URI != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	timeout, err := time.ParseDuration(getenvWithDefault("WHATSAPP_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid WHATSAPP_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:      os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID:    os.Getenv("WABA_PHONE_NUMBER_ID"),
			VerifyToken:      getenvWithDefault("VERIFY_TOKEN", "eurocam123"),
			BaseURL:          getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:       getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			TemplateName:     getenvWithDefault("TEMPLATE_NAME_AUTOREPLY", "respuesta_automatica_eurocam"),
			TemplateLanguage: getenvWithDefault("TEMPLATE_LANG_CODE", "es"),
			GraphDebug:       getenvWithDefault("WHATSAPP_GRAPH_DEBUG", "all"),
			RequestTimeout:   timeout,
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "America/Argentina/Buenos_Aires"),
			Recipient:    os.Getenv("REPORT_RECIPIENT"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			ContactsRange:   getenvWithDefault("GOOGLE_SHEET_CONTACTS_RANGE", "Contactos!A:G"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "eurocam"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated. A missing access
// token or phone number id is not an error: sends fail and are logged instead.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.WhatsApp.VerifyToken == "":
		return errors.New("VERIFY_TOKEN must not be empty")
	case c.WhatsApp.BaseURL == "":
		return errors.New("WHATSAPP_BASE_URL must not be empty")
	case c.WhatsApp.APIVersion == "":
		return errors.New("WHATSAPP_API_VERSION must not be empty")
	case c.WhatsApp.TemplateName == "":
		return errors.New("TEMPLATE_NAME_AUTOREPLY must not be empty")
	case c.WhatsApp.TemplateLanguage == "":
		return errors.New("TEMPLATE_LANG_CODE must not be empty")
	case c.WhatsApp.RequestTimeout < 0:
		return errors.New("WHATSAPP_TIMEOUT must not be negative")
	}

	if _, err := cron.ParseStandard(c.Reporting.CronSchedule); err != nil {
		return fmt.Errorf("invalid REPORT_CRON_SCHEDULE %q: %w", c.Reporting.CronSchedule, err)
	}

	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Reporting.Timezone, err)
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be provided together")
	}

	if c.Sheets.Enabled() && c.Sheets.ContactsRange == "" {
		return errors.New("GOOGLE_SHEET_CONTACTS_RANGE must not be empty")
	}

	if c.MongoDB.Enabled() && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
