package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Clinic locale. All day boundaries and slot labels are computed in
	// this timezone; dates without a year resolve against CurrentYear.
	Timezone    string
	CurrentYear int

	// Published Google Sheets catalogs (pubhtml URLs, converted to CSV
	// export URLs by the directory client).
	SheetDoctorsURL      string
	SheetRoomsURL        string
	SheetProceduresURL   string
	SheetReservationsURL string
	SheetsCacheTTL       time.Duration
	SheetsFetchTimeout   time.Duration

	// Remote booking endpoint (Apps Script style: POST record, POST
	// ?action=cancel).
	BookingEndpoint      string
	BookingWriteTimeout  time.Duration
	BookingCancelTimeout time.Duration

	// Local durable fallback for reservations.
	LocalReservationsFile string

	// Availability engine.
	SlotBufferMin int

	// Session storage.
	SessionBackend string // "memory" or "redis"
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool

	// Twilio webhook validation (optional).
	TwilioWebhookSecret string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Timezone:    getEnv("TIMEZONE", "America/Mexico_City"),
		CurrentYear: getEnvAsInt("CURRENT_YEAR", 2025),

		SheetDoctorsURL:      getEnv("SHEET_DOCTORS_URL", ""),
		SheetRoomsURL:        getEnv("SHEET_ROOMS_URL", ""),
		SheetProceduresURL:   getEnv("SHEET_PROCEDURES_URL", ""),
		SheetReservationsURL: getEnv("SHEET_RESERVATIONS_URL", ""),
		SheetsCacheTTL:       getEnvAsDuration("SHEETS_CACHE_TTL", 30*time.Second),
		SheetsFetchTimeout:   getEnvAsDuration("SHEETS_FETCH_TIMEOUT", 8*time.Second),

		BookingEndpoint:      getEnv("BOOKING_ENDPOINT", ""),
		BookingWriteTimeout:  getEnvAsDuration("BOOKING_WRITE_TIMEOUT", 10*time.Second),
		BookingCancelTimeout: getEnvAsDuration("BOOKING_CANCEL_TIMEOUT", 8*time.Second),

		LocalReservationsFile: getEnv("LOCAL_RESERVATIONS_FILE", "./reservas.json"),

		SlotBufferMin: getEnvAsInt("SLOT_BUFFER_MIN", 10),

		SessionBackend: getEnv("SESSION_BACKEND", "memory"),
		SessionTTL:     getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		TwilioWebhookSecret: getEnv("TWILIO_WEBHOOK_SECRET", ""),
	}
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
