package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for provider chain ordering. Open-data providers lead; the
// commercial provider is last and only participates when a token is set.
const (
	defaultNominatimPriority = 1
	defaultPhotonPriority    = 2
	defaultMapboxPriority    = 3
)

// ProviderSettings holds per-provider chain configuration.
type ProviderSettings struct {
	Enabled  bool
	Priority int
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Cache tuning.
	CacheExpiry  time.Duration
	CacheMaxSize int

	// Resolution tuning.
	MinConfidence    float64
	AcceptConfidence float64
	MaxAlternatives  int
	RequestTimeout   time.Duration
	CoalesceRequests bool

	// Provider chain membership.
	Nominatim          ProviderSettings
	NominatimBaseURL   string
	NominatimUserAgent string
	Photon             ProviderSettings
	PhotonBaseURL      string
	Mapbox             ProviderSettings
	MapboxToken        string
	MapboxRateLimit    float64
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheExpiry, err := parseDuration("CACHE_EXPIRY", time.Hour)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := parseDuration("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheMaxSize, err := parsePositiveInt("CACHE_MAX_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	maxAlternatives, err := parsePositiveInt("MAX_ALTERNATIVES", 5)
	if err != nil {
		return nil, err
	}
	minConfidence, err := parseUnitFloat("MIN_CONFIDENCE", 0.3)
	if err != nil {
		return nil, err
	}
	acceptConfidence, err := parseUnitFloat("ACCEPT_CONFIDENCE", 0.7)
	if err != nil {
		return nil, err
	}
	mapboxRateLimit, err := parseNonNegativeFloat("MAPBOX_RATE_LIMIT", 0)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CacheExpiry:  cacheExpiry,
		CacheMaxSize: cacheMaxSize,

		MinConfidence:    minConfidence,
		AcceptConfidence: acceptConfidence,
		MaxAlternatives:  maxAlternatives,
		RequestTimeout:   requestTimeout,
		CoalesceRequests: os.Getenv("COALESCE_REQUESTS") == "true",

		Nominatim: ProviderSettings{
			Enabled:  envOrDefault("NOMINATIM_ENABLED", "true") == "true",
			Priority: defaultNominatimPriority,
		},
		NominatimBaseURL: os.Getenv("NOMINATIM_BASE_URL"),
		NominatimUserAgent: envOrDefault("NOMINATIM_USER_AGENT",
			"place-resolver/1.0 (github.com/couchcryptid/place-resolver)"),
		Photon: ProviderSettings{
			Enabled:  envOrDefault("PHOTON_ENABLED", "true") == "true",
			Priority: defaultPhotonPriority,
		},
		PhotonBaseURL: os.Getenv("PHOTON_BASE_URL"),
		Mapbox: ProviderSettings{
			Enabled:  mapboxEnabled,
			Priority: defaultMapboxPriority,
		},
		MapboxToken:     mapboxToken,
		MapboxRateLimit: mapboxRateLimit,
	}

	if cfg.Nominatim.Priority, err = parsePositiveInt("NOMINATIM_PRIORITY", cfg.Nominatim.Priority); err != nil {
		return nil, err
	}
	if cfg.Photon.Priority, err = parsePositiveInt("PHOTON_PRIORITY", cfg.Photon.Priority); err != nil {
		return nil, err
	}
	if cfg.Mapbox.Priority, err = parsePositiveInt("MAPBOX_PRIORITY", cfg.Mapbox.Priority); err != nil {
		return nil, err
	}

	if cfg.Mapbox.Enabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseUnitFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > 1 {
		return 0, fmt.Errorf("invalid %s: %q (want a value in [0,1])", key, s)
	}
	return f, nil
}

func parseNonNegativeFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}
