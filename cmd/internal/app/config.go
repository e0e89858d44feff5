package app

import (
	"errors"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/iostack-ai/client-example/cmd/client"
)

// ErrMissingAccessKey is returned by LoadConfig when IOSTACK_ACCESS_KEY is unset.
var ErrMissingAccessKey = errors.New("IOSTACK_ACCESS_KEY must be set")

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	AccessKey    string
	PlatformRoot string
	UserID       string

	// SessionID resumes an existing session instead of creating one.
	SessionID   string
	UseCaseData map[string]any

	// MetadataDetails is nil unless IOSTACK_METADATA_DETAILS is set.
	MetadataDetails []string

	LogLevel  string
	LogFormat string
	// LogColor defaults to true when stderr is a terminal.
	LogColor bool

	CallTimeout        time.Duration
	StreamTimeout      time.Duration
	ConcurrentHandlers bool

	// MetricsAddr enables the /metrics and /healthz listener when non-empty.
	MetricsAddr       string
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() (Config, error) {
	data, err := EnvJSONObject("IOSTACK_USE_CASE_DATA")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AccessKey:    EnvString("IOSTACK_ACCESS_KEY", ""),
		PlatformRoot: EnvString("IOSTACK_PLATFORM_ROOT", client.DefaultPlatformRoot),
		UserID:       EnvString("IOSTACK_USER_ID", ""),
		SessionID:    EnvString("IOSTACK_SESSION_ID", ""),
		UseCaseData:  data,

		MetadataDetails: EnvList("IOSTACK_METADATA_DETAILS", nil),

		LogLevel:  EnvString("IOSTACK_LOG_LEVEL", "info"),
		LogFormat: EnvString("IOSTACK_LOG_FORMAT", "json"),
		LogColor:  EnvBool("IOSTACK_LOG_COLOR", term.IsTerminal(int(os.Stderr.Fd()))),

		CallTimeout:        EnvDuration("IOSTACK_CALL_TIMEOUT", 30*time.Second),
		StreamTimeout:      EnvDuration("IOSTACK_STREAM_TIMEOUT", 60*time.Second),
		ConcurrentHandlers: EnvBool("IOSTACK_CONCURRENT_HANDLERS", false),

		MetricsAddr:       EnvString("IOSTACK_METRICS_ADDR", ""),
		ReadHeaderTimeout: EnvDuration("IOSTACK_METRICS_READ_HEADER_TIMEOUT", 5*time.Second),
		IdleTimeout:       EnvDuration("IOSTACK_METRICS_IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    EnvInt("IOSTACK_METRICS_MAX_HEADER_BYTES", 1<<20),
	}

	if cfg.AccessKey == "" {
		return Config{}, ErrMissingAccessKey
	}
	return cfg, nil
}
