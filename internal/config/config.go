package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/boringdede/Snr-Attendance/internal/domain"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken  string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath    string `envconfig:"DB_PATH" default:"./data/attendance.db"` // ":memory:" keeps everything in RAM
	Timezone  string `envconfig:"TIMEZONE" default:"Asia/Tashkent"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`  // debug|info|warn|error
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"` // json|console
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"` // healthz, empty disables

	RadiusM        float64        `envconfig:"RADIUS_M" default:"200"`
	GraceMinutes   int            `envconfig:"GRACE_MINUTES" default:"10"`
	GraceByUser    map[int64]int  `envconfig:"GRACE_BY_USER"`  // 12345:15,67890:5
	GraceByPlace   map[string]int `envconfig:"GRACE_BY_PLACE"` // Riverside:20
	RadiusPolicy   string         `envconfig:"RADIUS_POLICY" default:"permissive"`
	CheckoutPolicy string         `envconfig:"CHECKOUT_POLICY" default:"ignore"`
	AdminIDs       []int64        `envconfig:"ADMIN_IDS"`
	AdminChatIDs   []int64        `envconfig:"ADMIN_CHAT_IDS"`
	SweepInterval  time.Duration  `envconfig:"SWEEP_INTERVAL" default:"60s"`
	Reminders      bool           `envconfig:"REMINDER_ENABLED" default:"false"`
	Diagnostics    bool           `envconfig:"DIAGNOSTICS_TO_ADMINS" default:"true"`

	AlwaysPlaceKey  string `envconfig:"ALWAYS_PLACE_KEY" default:"SNR School"`
	AlwaysPlaceName string `envconfig:"ALWAYS_PLACE_NAME"`
	AlwaysPlaceLat  string `envconfig:"ALWAYS_PLACE_LAT" default:"41.322921"`
	AlwaysPlaceLon  string `envconfig:"ALWAYS_PLACE_LON" default:"69.277808"`
}

// Load reads an optional env file (ENV_FILE, default .env) and then the
// environment into Config. Variables already set win over the file.
func Load() (Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the bot cannot run with.
func (c Config) Validate() error {
	if _, err := domain.ParseRadiusPolicy(c.RadiusPolicy); err != nil {
		return err
	}
	if _, err := domain.ParseCheckoutPolicy(c.CheckoutPolicy); err != nil {
		return err
	}
	if c.RadiusM <= 0 {
		return fmt.Errorf("RADIUS_M must be positive, got %v", c.RadiusM)
	}
	if c.GraceMinutes < 0 {
		return fmt.Errorf("GRACE_MINUTES must not be negative, got %d", c.GraceMinutes)
	}
	for id, g := range c.GraceByUser {
		if g < 0 {
			return fmt.Errorf("GRACE_BY_USER: negative grace for %d", id)
		}
	}
	for key, g := range c.GraceByPlace {
		if g < 0 {
			return fmt.Errorf("GRACE_BY_PLACE: negative grace for %q", key)
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	if c.AlwaysPlaceKey != "" {
		if _, err := c.AlwaysPlace(); err != nil {
			return err
		}
	}
	return nil
}

// Location resolves the configured time zone.
func (c Config) Location() (*time.Location, error) {
	return domain.ValidateTZ(c.Timezone)
}

// Policy builds the evaluation policy. Call after Validate.
func (c Config) Policy() domain.Policy {
	radius, _ := domain.ParseRadiusPolicy(c.RadiusPolicy)
	checkout, _ := domain.ParseCheckoutPolicy(c.CheckoutPolicy)
	return domain.Policy{
		DefaultRadiusM: c.RadiusM,
		GraceMinutes:   c.GraceMinutes,
		GraceByUser:    c.GraceByUser,
		GraceByPlace:   c.GraceByPlace,
		Radius:         radius,
		Checkout:       checkout,
	}
}

// AlwaysPlace describes the configured always-available place. Blank
// coordinates leave it unverifiable.
func (c Config) AlwaysPlace() (domain.Place, error) {
	p := domain.Place{
		Key:             strings.TrimSpace(c.AlwaysPlaceKey),
		Name:            strings.TrimSpace(c.AlwaysPlaceName),
		RadiusM:         c.RadiusM,
		AlwaysAvailable: true,
	}
	if p.Name == "" {
		p.Name = p.Key
	}
	if strings.TrimSpace(c.AlwaysPlaceLat) != "" || strings.TrimSpace(c.AlwaysPlaceLon) != "" {
		lat, err := domain.ParseCoordinate(c.AlwaysPlaceLat)
		if err != nil {
			return p, fmt.Errorf("ALWAYS_PLACE_LAT: %w", err)
		}
		lon, err := domain.ParseCoordinate(c.AlwaysPlaceLon)
		if err != nil {
			return p, fmt.Errorf("ALWAYS_PLACE_LON: %w", err)
		}
		p.Lat, p.Lon = domain.Float(lat), domain.Float(lon)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("always-available place: %w", err)
	}
	return p, nil
}

// IsAdmin reports whether userID is on the administrator allow-list.
func (c Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// AdminTargets returns the chats that receive administrator notifications:
// ADMIN_CHAT_IDS when set, otherwise the administrators themselves.
func (c Config) AdminTargets() []int64 {
	if len(c.AdminChatIDs) > 0 {
		return c.AdminChatIDs
	}
	return c.AdminIDs
}
