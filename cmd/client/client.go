package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"

	"github.com/iostack-ai/client-example/cmd/internal/auth/credentials"
	"github.com/iostack-ai/client-example/cmd/internal/deadline"
	"github.com/iostack-ai/client-example/cmd/internal/metrics"
	"github.com/iostack-ai/client-example/cmd/internal/stream"
	"github.com/iostack-ai/client-example/cmd/internal/transport"
	"github.com/iostack-ai/client-example/cmd/security/token"
)

// Client is a single conversation with a platform use case.
type Client struct {
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics

	api        *transport.Client
	creds      *credentials.Manager
	registry   *stream.Registry
	dispatcher *stream.Dispatcher
	decoder    *stream.Decoder

	sessionID   string
	userID      string
	useCaseData map[string]any
	metadata    map[string]any
	started     bool
}

// New constructs a Client from cfg.
func New(cfg Config) (*Client, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Registerer != nil {
		if m, err = metrics.New(cfg.Registerer); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	log := cfg.Logger.With("component", "iostack.client")

	registry := stream.NewRegistry(stream.Handlers{
		Fragment:         cfg.StreamFragmentHandlers,
		Error:            cfg.ErrorHandlers,
		UseCase:          cfg.UseCaseNotificationHandlers,
		ActiveNodeChange: cfg.ActiveNodeChangeNotificationHandlers,
		StreamedRef:      cfg.ReferenceNotificationHandlers,
		Debug:            cfg.DebugNotificationHandlers,
	})
	dispatcher := stream.NewDispatcher(registry, log,
		stream.WithConcurrentHandlers(cfg.ConcurrentHandlers),
		stream.WithMetrics(m),
	)

	c := &Client{
		cfg:         cfg,
		log:         log,
		metrics:     m,
		api:         transport.New(cfg.PlatformRoot, httpClient(cfg.HTTPClient), log, m),
		registry:    registry,
		dispatcher:  dispatcher,
		decoder:     stream.NewDecoder(dispatcher, log),
		userID:      cfg.UserID,
		useCaseData: cfg.UseCaseData,
	}
	c.creds = credentials.NewManager(credentials.NewStore(cfg.AccessKey), renewer{c: c}, log)

	return c, nil
}

func httpClient(hc *http.Client) *http.Client {
	if hc != nil {
		return hc
	}
	return &http.Client{}
}

// SessionID returns the current session id, or "" when no session exists.
func (c *Client) SessionID() string { return c.sessionID }

// SetSessionDetails adopts a session created elsewhere. No call is made.
func (c *Client) SetSessionDetails(sessionID, userID string) {
	c.sessionID = sessionID
	c.userID = userID
}

// DeregisterAllHandlers empties all six handler registries at once.
func (c *Client) DeregisterAllHandlers() { c.registry.Clear() }

// Metadata returns a copy of the use-case metadata retrieved by StartSession.
func (c *Client) Metadata() map[string]any { return maps.Clone(c.metadata) }

// StartSession establishes a session (or adopts sessionID when non-empty),
// retrieves an access token and the use-case metadata, then sends the use
// case's trigger phrase ("-" when it has none) to prompt the agent's first reply.
//
// A Client starts at most one session.
func (c *Client) StartSession(ctx context.Context, sessionID string) error {
	if c.started {
		c.reportErrorString(ctx, "Error starting session", ErrSessionStarted.Error())
		return &Error{Op: "Error starting session", Err: ErrSessionStarted}
	}

	if sessionID != "" {
		c.sessionID = sessionID
	} else if err := c.establishSession(ctx); err != nil {
		return err
	}
	c.started = true

	c.log.Info("token.access.retrieve", "session_id", c.sessionID)
	if err := c.creds.RetrieveAccessToken(ctx); err != nil {
		return c.surface(ctx, "Error while retrieving access token", err)
	}

	if len(c.cfg.MetadataDetails) > 0 {
		if err := c.retrieveUseCaseMetadata(ctx); err != nil {
			return err
		}
	}

	trigger := c.triggerPhrase()
	c.log.Info("session.trigger.send", "trigger_phrase", trigger)
	return c.SendMessage(ctx, trigger)
}

// SendMessage sends message and blocks until the streamed reply has been
// dispatched. An empty message is ignored.
func (c *Client) SendMessage(ctx context.Context, message string) error {
	if message == "" {
		return nil
	}

	if c.sessionID == "" {
		c.reportErrorString(ctx, "Error sending message", msgNoSession)
		return nil
	}

	if err := c.creds.EnsureFresh(ctx); err != nil {
		return c.surface(ctx, "Error while streaming response", err)
	}

	c.decoder.Reset()

	t := deadline.New(ctx, c.cfg.StreamTimeout)
	defer t.Reset()

	resp, err := c.api.Do(t.Context(), c.streamRequest(message))
	if err != nil {
		return c.surface(ctx, "Error while streaming response", timeoutErr(t, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if err := c.decoder.Consume(t.Context(), resp.Body); err != nil {
		err = timeoutErr(t, err)
		if errors.Is(err, stream.ErrDecode) {
			return c.surface(ctx, "Error while decoding streaming response", err)
		}
		return c.surface(ctx, "Error while streaming response", err)
	}

	return nil
}

func (c *Client) triggerPhrase() string {
	if s, ok := c.metadata[MetadataTriggerPhrase].(string); ok && s != "" {
		return s
	}
	return "-"
}

// surface reports err to the error handlers unless that already happened and
// returns it as *Error. Token format errors are returned untouched.
func (c *Client) surface(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}

	var reported *Error
	if errors.As(err, &reported) {
		return err
	}
	if errors.Is(err, token.ErrMissingExpiry) || errors.Is(err, token.ErrMalformedToken) {
		c.log.Error("token.malformed", "op", op, "err", err)
		return err
	}

	var herr *transport.HTTPError
	var serr *stream.ServerError
	switch {
	case errors.As(err, &herr):
		c.reportError(ctx, herr)
	case errors.As(err, &serr):
		// The dispatcher delivered the server's message already.
	default:
		c.reportErrorString(ctx, op, err.Error())
	}
	return &Error{Op: op, Err: err}
}

func timeoutErr(t *deadline.Timer, err error) error {
	if err != nil && t.Fired() && !errors.Is(err, deadline.ErrTimeout) {
		return fmt.Errorf("%w: %w", deadline.ErrTimeout, err)
	}
	return err
}
