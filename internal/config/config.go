package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Booking calendar
	BookingTimezone  string
	BookingOpenHour  int
	BookingCloseHour int
	SlotStep         time.Duration
	BookingBuffer    time.Duration
	ClosedWeekdays   []time.Weekday

	AvailabilityCacheSize int
	AvailabilityCacheTTL  time.Duration
	DuplicateWindow       time.Duration
	SubmitLockTTL         time.Duration
	MaxUploadBytes        int64

	// HTTP surface
	AdminJWTSecret     string
	AdminEmail         string
	CSRFKey            string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// AWS (SES email + S3 attachments)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	AttachmentsBucket   string
}

// Load reads configuration from environment variables, after applying a
// .env file when one is present in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		BookingTimezone:  getEnv("BOOKING_TIMEZONE", "Asia/Kolkata"),
		BookingOpenHour:  getEnvAsInt("BOOKING_OPEN_HOUR", 9),
		BookingCloseHour: getEnvAsInt("BOOKING_CLOSE_HOUR", 17),
		SlotStep:         getEnvAsDuration("BOOKING_SLOT_STEP", 15*time.Minute),
		BookingBuffer:    getEnvAsDuration("BOOKING_BUFFER", 15*time.Minute),
		ClosedWeekdays:   getEnvAsWeekdays("BOOKING_CLOSED_DAYS"),

		AvailabilityCacheSize: getEnvAsInt("AVAILABILITY_CACHE_SIZE", 512),
		AvailabilityCacheTTL:  getEnvAsDuration("AVAILABILITY_CACHE_TTL", 2*time.Minute),
		DuplicateWindow:       getEnvAsDuration("DUPLICATE_WINDOW", 5*time.Minute),
		SubmitLockTTL:         getEnvAsDuration("SUBMIT_LOCK_TTL", 30*time.Second),
		MaxUploadBytes:        int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		AdminEmail:         getEnv("ADMIN_EMAIL", ""),
		CSRFKey:            getEnv("CSRF_KEY", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "KP RegTech Consultations"),

		AWSRegion:           getEnv("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		AttachmentsBucket:   getEnv("ATTACHMENTS_BUCKET", ""),
	}
}

// Location resolves BookingTimezone, falling back to UTC on unknown names.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BookingTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// getEnvAsWeekdays parses a comma separated list like "sat,sun". Unknown
// names are ignored.
func getEnvAsWeekdays(key string) []time.Weekday {
	var days []time.Weekday
	for _, name := range getEnvAsList(key) {
		if day, ok := weekdayNames[strings.ToLower(name)]; ok {
			days = append(days, day)
		}
	}
	return days
}
