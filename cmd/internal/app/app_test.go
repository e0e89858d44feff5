package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iostack-ai/client-example/cmd/client"
	v1 "github.com/iostack-ai/client-example/contracts/stream/v1"
)

func discardLogger() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAgent struct {
	startErr  error
	sendErr   error
	sessionID string

	sent         []string
	deregistered bool
}

func (f *fakeAgent) StartSession(_ context.Context, id string) error {
	if f.startErr == nil && f.sessionID == "" {
		f.sessionID = "S1"
	}
	return f.startErr
}

func (f *fakeAgent) SendMessage(_ context.Context, msg string) error {
	f.sent = append(f.sent, msg)
	return f.sendErr
}

func (f *fakeAgent) SessionID() string      { return f.sessionID }
func (f *fakeAgent) DeregisterAllHandlers() { f.deregistered = true }

func newLoopApp(agent *fakeAgent, input string) (*App, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &App{
		log:    discardLogger(),
		client: agent,
		in:     strings.NewReader(input),
		out:    out,
		errOut: io.Discard,
	}, out
}

func TestRun_RelaysLinesUntilQuit(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{}
	a, _ := newLoopApp(agent, "first\n\n  second  \n/quit\nnever\n")

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Join(agent.sent, "|") != "first|second" {
		t.Fatalf("sent=%v", agent.sent)
	}
	if !agent.deregistered {
		t.Fatalf("handlers must be deregistered on exit")
	}
}

func TestRun_StopsAtEOF(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{}
	a, _ := newLoopApp(agent, "only")

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(agent.sent) != 1 || agent.sent[0] != "only" {
		t.Fatalf("sent=%v", agent.sent)
	}
}

func TestRun_ReportedSendErrorContinues(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{sendErr: &client.Error{Op: "Error while streaming response", Err: errors.New("boom")}}
	a, _ := newLoopApp(agent, "a\nb\n")

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(agent.sent) != 2 {
		t.Fatalf("sent=%v want both lines", agent.sent)
	}
}

func TestRun_UnreportedErrorIsFatal(t *testing.T) {
	t.Parallel()

	fatal := errors.New("token has no exp claim")

	agent := &fakeAgent{sendErr: fatal}
	a, _ := newLoopApp(agent, "a\nb\n")
	if err := a.Run(context.Background()); !errors.Is(err, fatal) {
		t.Fatalf("expected fatal send error, got %v", err)
	}
	if len(agent.sent) != 1 {
		t.Fatalf("sent=%v want stop after first", agent.sent)
	}

	agent = &fakeAgent{startErr: &client.Error{Op: "Error while establishing session", Err: fatal}}
	a, _ = newLoopApp(agent, "a\n")
	if err := a.Run(context.Background()); !errors.Is(err, fatal) {
		t.Fatalf("expected start failure without a session to be fatal, got %v", err)
	}
	if len(agent.sent) != 0 {
		t.Fatalf("no lines may be sent without a session")
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	agent := &fakeAgent{}
	a, _ := newLoopApp(agent, "")
	a.in = pr

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancellation")
	}
}

func TestHandlers_WriteReplies(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	a := &App{log: discardLogger(), out: &out, errOut: &errOut}
	ctx := context.Background()

	a.onFragment(ctx, v1.Fragment{Fragment: "Hel"})
	a.onFragment(ctx, v1.Fragment{Fragment: "lo", Final: true})
	a.onError(ctx, "Unauthorized:token revoked")

	if out.String() != "Hello\n" {
		t.Fatalf("out=%q", out.String())
	}
	if errOut.String() != "error: Unauthorized:token revoked\n" {
		t.Fatalf("errOut=%q", errOut.String())
	}
}

func mintToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}).SignedString([]byte("platform-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestApp_EndToEnd(t *testing.T) {
	t.Parallel()

	refresh := mintToken(t, time.Hour)
	access := mintToken(t, 100*time.Second)

	var mu sync.Mutex
	var messages []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/v1/use_case/session":
			_ = json.NewEncoder(w).Encode(map[string]any{"session_id": "S1", "refresh_token": refresh})
		case strings.HasSuffix(r.URL.Path, "/access_token"):
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": access})
		case r.URL.Path == "/v1/use_case/meta":
			_ = json.NewEncoder(w).Encode(map[string]any{"use_case": map[string]any{"trigger_phrase": "hello"}})
		case strings.HasSuffix(r.URL.Path, "/stream"):
			var body struct {
				Message string `json:"message"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			messages = append(messages, body.Message)
			mu.Unlock()
			_, _ = io.WriteString(w, `{"type":"fragment","fragment":"echo:`+body.Message+`","final":true}__|__`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	var out, errOut bytes.Buffer
	a, err := New(Config{
		AccessKey:    "K",
		PlatformRoot: srv.URL,
	}, discardLogger(), strings.NewReader("how are you\n"), &out, &errOut)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(messages, "|") != "hello|how are you" {
		t.Fatalf("messages=%v", messages)
	}
	if !strings.Contains(out.String(), "echo:hello\n") || !strings.Contains(out.String(), "echo:how are you\n") {
		t.Fatalf("out=%q", out.String())
	}
	if errOut.Len() != 0 {
		t.Fatalf("errOut=%q", errOut.String())
	}
}
