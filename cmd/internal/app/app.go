// Package app wires the interactive IOStack client: config, logging, the
// conversation loop over stdin/stdout and an optional metrics listener.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iostack-ai/client-example/cmd/client"
	v1 "github.com/iostack-ai/client-example/contracts/stream/v1"
)

// agentClient is the part of *client.Client the conversation loop drives.
type agentClient interface {
	StartSession(ctx context.Context, sessionID string) error
	SendMessage(ctx context.Context, message string) error
	SessionID() string
	DeregisterAllHandlers()
}

// App is one interactive conversation with a platform use case.
type App struct {
	cfg Config
	log Logger

	client   agentClient
	registry *prometheus.Registry

	in     io.Reader
	out    io.Writer
	errOut io.Writer
	outMu  sync.Mutex
}

// New constructs an App that reads user turns from in and writes the agent's
// replies to out. Error handler output goes to errOut.
func New(cfg Config, log Logger, in io.Reader, out, errOut io.Writer) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogColor, errOut)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		cfg:      cfg,
		log:      log,
		registry: reg,
		in:       in,
		out:      out,
		errOut:   errOut,
	}

	c, err := client.New(client.Config{
		AccessKey:    cfg.AccessKey,
		UseCaseData:  cfg.UseCaseData,
		UserID:       cfg.UserID,
		PlatformRoot: cfg.PlatformRoot,

		StreamFragmentHandlers:               []client.StreamFragmentHandler{a.onFragment},
		ErrorHandlers:                        []client.ErrorHandler{a.onError},
		UseCaseNotificationHandlers:          []client.UseCaseNotificationHandler{a.onUseCaseNotification},
		ActiveNodeChangeNotificationHandlers: []client.ActiveNodeChangeNotificationHandler{a.onActiveNodeChange},
		ReferenceNotificationHandlers:        []client.ReferenceNotificationHandler{a.onReference},
		DebugNotificationHandlers:            []client.DebugNotificationHandler{a.onDebug},

		MetadataDetails:    cfg.MetadataDetails,
		CallTimeout:        cfg.CallTimeout,
		StreamTimeout:      cfg.StreamTimeout,
		ConcurrentHandlers: cfg.ConcurrentHandlers,
		Logger:             log,
		Registerer:         reg,
	})
	if err != nil {
		return nil, err
	}
	a.client = c

	return a, nil
}

// Run starts the session and relays user turns until in is exhausted, the
// user types /quit, or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	stopMetrics, err := a.startMetrics()
	if err != nil {
		return err
	}
	defer stopMetrics()
	defer a.client.DeregisterAllHandlers()

	if err := a.client.StartSession(ctx, a.cfg.SessionID); err != nil {
		var reported *client.Error
		if !errors.As(err, &reported) || a.client.SessionID() == "" {
			a.log.Error("session.start.fail", "err", err)
			return err
		}
		a.log.Warn("session.start.degraded", "err", err)
	}

	a.log.Info("session.ready", "session_id", a.client.SessionID())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := readLines(ctx, a.in)
	for {
		a.prompt()

		select {
		case <-ctx.Done():
			a.log.Info("session.stop", "reason", "context_done")
			return nil
		case line, ok := <-lines:
			if !ok {
				a.log.Info("session.stop", "reason", "input_closed")
				return nil
			}

			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "/quit", "/exit":
				a.log.Info("session.stop", "reason", "user_quit")
				return nil
			}

			if err := a.client.SendMessage(ctx, line); err != nil {
				var reported *client.Error
				if !errors.As(err, &reported) {
					a.log.Error("message.send.fail", "err", err)
					return err
				}
				a.log.Warn("message.send.fail", "err", err)
			}
		}
	}
}

func (a *App) startMetrics() (func(), error) {
	if a.cfg.MetricsAddr == "" {
		return func() {}, nil
	}

	ln, err := net.Listen("tcp", a.cfg.MetricsAddr)
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}

	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.registry)

	srv := &http.Server{
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("metrics.start", "addr", ln.Addr().String())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics.fail", "err", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("metrics.shutdown.fail", "err", err)
		}
	}, nil
}

// readLines feeds lines from r into the returned channel until EOF or ctx ends.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (a *App) prompt() {
	a.write(a.out, "> ")
}

func (a *App) write(w io.Writer, s string) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	_, _ = io.WriteString(w, s)
}

func (a *App) onFragment(_ context.Context, f v1.Fragment) {
	if f.Final {
		a.write(a.out, f.Fragment+"\n")
		return
	}
	a.write(a.out, f.Fragment)
}

func (a *App) onError(_ context.Context, message string) {
	a.write(a.errOut, "error: "+message+"\n")
}

func (a *App) onUseCaseNotification(_ context.Context, n v1.UseCaseNotification) {
	a.log.Debug("notification.use_case", "name", n.Name)
}

func (a *App) onActiveNodeChange(_ context.Context, n v1.ActiveNodeChange) {
	a.log.Info("notification.active_node", "node", n.Data.ActiveNode, "code", n.Data.ActiveNodeCode)
}

func (a *App) onReference(_ context.Context, ref v1.StreamedReference) {
	a.log.Info("notification.reference", "value", ref.Value)
}

func (a *App) onDebug(_ context.Context, n v1.Debug) {
	a.log.Debug("notification.debug", "name", n.Name)
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
