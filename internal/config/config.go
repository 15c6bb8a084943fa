package config

import (
	"os"
	"strconv"
	"strings"
	"time"
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

	// Gemini conversational assistant
	GeminiAPIKey  string
	GeminiModelID string

	// Google Calendar service-account credentials
	GoogleClientEmail string
	GooglePrivateKey  string

	// Asaas billing
	AsaasAPIKey        string
	AsaasBaseURL       string
	BillingRefPrefix   string
	ShinePlanValue     float64
	GlamourPlanValue   float64
	AdminJWTSecret     string
	CORSAllowedOrigins []string

	// API rate limiting, disabled when RateLimitRPS is zero
	RateLimitRPS   float64
	RateLimitBurst int

	// Scheduling
	SalonTimezone        string
	DayWindowStart       string
	DayWindowEnd         string
	SlotTimes            []string
	DefaultDurationMins  int
	AvailabilityCacheTTL time.Duration

	// Stale-booking calendar sync worker
	CalendarSyncEnabled    bool
	CalendarSyncInterval   time.Duration
	CalendarSyncWindowDays int

	// SendGrid owner notifications
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModelID: getEnv("GEMINI_MODEL_ID", "gemini-2.0-flash"),

		GoogleClientEmail: getEnv("GOOGLE_CLIENT_EMAIL", ""),
		GooglePrivateKey:  getEnv("GOOGLE_PRIVATE_KEY", ""),

		AsaasAPIKey:        getEnv("ASAAS_API_KEY", ""),
		AsaasBaseURL:       getEnv("ASAAS_BASE_URL", "https://www.asaas.com/api/v3"),
		BillingRefPrefix:   getEnv("BILLING_REF_PREFIX", "LAVIE_"),
		ShinePlanValue:     getEnvAsFloat("SHINE_PLAN_VALUE", 49.90),
		GlamourPlanValue:   getEnvAsFloat("GLAMOUR_PLAN_VALUE", 89.90),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", "*"),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 0),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),

		SalonTimezone:        getEnv("SALON_TIMEZONE", "America/Sao_Paulo"),
		DayWindowStart:       getEnv("DAY_WINDOW_START", "08:00"),
		DayWindowEnd:         getEnv("DAY_WINDOW_END", "20:00"),
		SlotTimes:            getEnvAsList("SLOT_TIMES", "09:00,10:00,11:00,13:00,14:00,15:00,16:00,17:00"),
		DefaultDurationMins:  getEnvAsInt("DEFAULT_DURATION_MINS", 60),
		AvailabilityCacheTTL: getEnvAsDuration("AVAILABILITY_CACHE_TTL", 30*time.Second),

		CalendarSyncEnabled:    getEnvAsBool("CALENDAR_SYNC_ENABLED", false),
		CalendarSyncInterval:   getEnvAsDuration("CALENDAR_SYNC_INTERVAL", 30*time.Minute),
		CalendarSyncWindowDays: getEnvAsInt("CALENDAR_SYNC_WINDOW_DAYS", 30),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "La Vie Beauty"),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
