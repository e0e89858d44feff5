package client

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultPlatformRoot is the production platform URL.
const DefaultPlatformRoot = "https://platform.iostack.ai"

const (
	defaultCallTimeout   = 30 * time.Second
	defaultStreamTimeout = 60 * time.Second
)

// MetadataTriggerPhrase is the use-case metadata detail sent as the first message.
const MetadataTriggerPhrase = "trigger_phrase"

// Config configures a Client.
type Config struct {
	// AccessKey identifies the use case and authenticates session calls. Required.
	AccessKey string
	// UseCaseData is passed through to the platform as client_data.
	UseCaseData map[string]any
	// UserID is sent when a session is established.
	UserID string
	// PlatformRoot defaults to DefaultPlatformRoot.
	PlatformRoot string

	StreamFragmentHandlers               []StreamFragmentHandler
	ErrorHandlers                        []ErrorHandler
	UseCaseNotificationHandlers          []UseCaseNotificationHandler
	ActiveNodeChangeNotificationHandlers []ActiveNodeChangeNotificationHandler
	ReferenceNotificationHandlers        []ReferenceNotificationHandler
	DebugNotificationHandlers            []DebugNotificationHandler

	// MetadataDetails lists the use-case metadata fetched by StartSession.
	// nil means [trigger_phrase]; an empty non-nil slice skips the fetch.
	MetadataDetails []string

	// CallTimeout bounds session, token and metadata calls (default 30s).
	CallTimeout time.Duration
	// StreamTimeout bounds a whole streamed reply (default 60s).
	StreamTimeout time.Duration

	// ConcurrentHandlers runs the handlers of one registry in parallel.
	// They are still joined before the next packet is decoded.
	ConcurrentHandlers bool

	HTTPClient *http.Client
	Logger     *slog.Logger
	// Registerer receives the client's Prometheus collectors. nil disables metrics.
	Registerer prometheus.Registerer
}

func (cfg Config) withDefaults() (Config, error) {
	cfg.AccessKey = strings.TrimSpace(cfg.AccessKey)
	if cfg.AccessKey == "" {
		return Config{}, ErrConfig
	}

	cfg.PlatformRoot = strings.TrimRight(strings.TrimSpace(cfg.PlatformRoot), "/")
	if cfg.PlatformRoot == "" {
		cfg.PlatformRoot = DefaultPlatformRoot
	}
	if !strings.HasPrefix(cfg.PlatformRoot, "http://") && !strings.HasPrefix(cfg.PlatformRoot, "https://") {
		return Config{}, ErrConfig
	}

	if cfg.MetadataDetails == nil {
		cfg.MetadataDetails = []string{MetadataTriggerPhrase}
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = defaultStreamTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg, nil
}
