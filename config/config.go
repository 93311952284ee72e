package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DepositType is the billing model for the global deposit policy.
type DepositType string

const (
	DepositPercentage DepositType = "percentage"
	DepositFixed      DepositType = "fixed"
)

// ProviderRoute is a per-operation LLM routing mode.
type ProviderRoute string

const (
	RoutePrimary ProviderRoute = "primary"
	RouteFallback ProviderRoute = "fallback"
	RouteStub     ProviderRoute = "stub"
)

// PreFilterMode selects the duplicate/structural-attack pre-filter
// implementation.
type PreFilterMode string

const (
	PreFilterEnhanced PreFilterMode = "enhanced"
	PreFilterLegacy   PreFilterMode = "legacy"
)

// DetectionMode selects the intent/entity detection pipeline.
type DetectionMode string

const (
	DetectionUnified DetectionMode = "unified"
	DetectionLegacy  DetectionMode = "legacy"
)

// GlobalDeposit is the venue-wide deposit policy applied when an offer
// is composed (domain.DepositInfo is derived from this at offer time).
type GlobalDeposit struct {
	Enabled          bool
	Type             DepositType
	Percentage       float64
	FixedAmount      float64
	DeadlineDays     int
}

// Venue describes the operating venue the engine books for.
type Venue struct {
	Name           string
	Timezone       string
	OperatingHours string // e.g. "08:00-22:00"
}

// SiteVisitPolicy constrains which dates/slots may be proposed for a
// site visit.
type SiteVisitPolicy struct {
	BlockedDates []string
	Slots        []string
	WeekdaysOnly bool
	MinDaysAhead int
}

// LLMProviderRouting is the per-operation {primary, fallback, stub}
// routing table (spec.md §6).
type LLMProviderRouting struct {
	IntentProvider        ProviderRoute
	EntityProvider        ProviderRoute
	VerbalizationProvider ProviderRoute
}

// Config holds all engine configuration values: the ambient server/log
// keys inherited from the gateway layout, plus the booking-domain keys
// named in spec.md §6.
type Config struct {
	// Server
	Addr            string
	Env             string
	GracefulTimeout time.Duration

	// Event store
	StoreDBPath string

	// Redis (active_conversations cache, HIL notify)
	RedisURL string

	// Authentication
	APIKeyHeader string

	// Rate limiting
	RateLimitEnabled bool
	RateLimitRPM     int
	RateLimitBurst   int

	// Timeouts
	DefaultTimeout time.Duration

	// Body limits
	MaxBodyBytes int64

	// Logging
	LogLevel string

	// Fallback diagnostics (SPEC_FULL.md §5.4)
	FallbackDiagnostics bool

	// Booking-domain keys (spec.md §6)
	HILModeEnabled bool
	LLMProviders   LLMProviderRouting
	PreFilterMode  PreFilterMode
	DetectionMode  DetectionMode
	GlobalDeposit  GlobalDeposit
	Venue          Venue
	SiteVisit      SiteVisitPolicy
	ManagerNames   []string
}

// Load reads configuration from environment variables and an optional
// .env file.
func Load() *Config {
	_ = godotenv.Load()

	gracefulSec := getEnvInt("ENGINE_GRACEFUL_TIMEOUT_SEC", 15)
	defaultTimeoutSec := getEnvInt("ENGINE_DEFAULT_TIMEOUT_SEC", 60)

	cfg := &Config{
		Addr:            getEnv("ENGINE_ADDR", ":8080"),
		Env:             getEnv("ENV", "development"),
		GracefulTimeout: time.Duration(gracefulSec) * time.Second,
		StoreDBPath:     getEnv("STORE_DB_PATH", "./data/events.json"),
		RedisURL:        getEnv("REDIS_URL", "redis://redis:6379"),
		APIKeyHeader:    getEnv("API_KEY_HEADER", "Authorization"),
		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRPM:    getEnvInt("RATE_LIMIT_RPM", 60),
		RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 10),
		DefaultTimeout:  time.Duration(defaultTimeoutSec) * time.Second,
		MaxBodyBytes:    int64(getEnvInt("ENGINE_MAX_BODY_BYTES", 1*1024*1024)),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		FallbackDiagnostics: getEnvBool("FALLBACK_DIAGNOSTICS", false),

		HILModeEnabled: getEnvBool("HIL_MODE_ENABLED", true),
		LLMProviders: LLMProviderRouting{
			IntentProvider:        ProviderRoute(getEnv("LLM_INTENT_PROVIDER", string(RoutePrimary))),
			EntityProvider:        ProviderRoute(getEnv("LLM_ENTITY_PROVIDER", string(RoutePrimary))),
			VerbalizationProvider: ProviderRoute(getEnv("LLM_VERBALIZATION_PROVIDER", string(RoutePrimary))),
		},
		PreFilterMode: PreFilterMode(getEnv("PRE_FILTER_MODE", string(PreFilterEnhanced))),
		DetectionMode: DetectionMode(getEnv("DETECTION_MODE", string(DetectionUnified))),

		GlobalDeposit: GlobalDeposit{
			Enabled:      getEnvBool("DEPOSIT_ENABLED", true),
			Type:         DepositType(getEnv("DEPOSIT_TYPE", string(DepositPercentage))),
			Percentage:   getEnvFloat("DEPOSIT_PERCENTAGE", 20.0),
			FixedAmount:  getEnvFloat("DEPOSIT_FIXED_AMOUNT", 0),
			DeadlineDays: getEnvInt("DEPOSIT_DEADLINE_DAYS", 14),
		},
		Venue: Venue{
			Name:           getEnv("VENUE_NAME", "The Venue"),
			Timezone:       getEnv("VENUE_TIMEZONE", "Europe/Zurich"),
			OperatingHours: getEnv("VENUE_OPERATING_HOURS", "08:00-22:00"),
		},
		SiteVisit: SiteVisitPolicy{
			BlockedDates: splitCSV(getEnv("SITE_VISIT_BLOCKED_DATES", "")),
			Slots:        splitCSV(getEnv("SITE_VISIT_SLOTS", "10:00,14:00,16:00")),
			WeekdaysOnly: getEnvBool("SITE_VISIT_WEEKDAYS_ONLY", true),
			MinDaysAhead: getEnvInt("SITE_VISIT_MIN_DAYS_AHEAD", 2),
		},
		ManagerNames: splitCSV(getEnv("MANAGER_NAMES", "")),
	}
	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// IsManager reports whether name matches a configured manager name,
// case-insensitively, for escalation recognition.
func (c *Config) IsManager(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, m := range c.ManagerNames {
		if strings.ToLower(m) == name {
			return true
		}
	}
	return false
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
