package qguild

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/qguild-go/qguild/api"
	"github.com/qguild-go/qguild/gateway"
	"github.com/qguild-go/qguild/qerr"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvAppID  = "QQBOT_APP_ID"
	EnvSecret = "QQBOT_SECRET"
	EnvMode   = "QQBOT_MODE"
)

// Mode selects the platform environment.
type Mode string

const (
	ModeProd    Mode = "PROD"
	ModeSandbox Mode = "SANDBOX"
)

// BaseURL is the API origin for the mode.
func (m Mode) BaseURL() string {
	if m == ModeProd {
		return api.ProdBaseURL
	}
	return api.SandboxBaseURL
}

// ParseMode accepts the environment names case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "SANDBOX":
		return ModeSandbox, nil
	case "PROD", "PRODUCTION":
		return ModeProd, nil
	default:
		return "", qerr.New(qerr.KindUnexpected, fmt.Sprintf("unknown mode %q", s))
	}
}

// Config describes a Bot.
type Config struct {
	AppID  string
	Secret string
	Mode   Mode

	Intents gateway.Intents
	// BusCapacity sizes the event broadcaster; zero takes the default.
	BusCapacity int
	// AuditTTL bounds how long a moderated send waits for its outcome.
	AuditTTL time.Duration

	// BaseURL overrides the mode's API origin, mainly for tests.
	BaseURL string
	// HTTPClient overrides the API transport.
	HTTPClient *http.Client

	Logger zerolog.Logger
}

// ConfigFromEnv loads a .env file when one is present, then reads the
// QQBOT_* variables.
func ConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	appID := os.Getenv(EnvAppID)
	secret := os.Getenv(EnvSecret)
	if appID == "" || secret == "" {
		return Config{}, qerr.New(qerr.KindUnexpected, EnvAppID+" and "+EnvSecret+" must be set")
	}
	mode, err := ParseMode(os.Getenv(EnvMode))
	if err != nil {
		return Config{}, err
	}
	return Config{
		AppID:   appID,
		Secret:  secret,
		Mode:    mode,
		Intents: gateway.DefaultIntents,
	}, nil
}
