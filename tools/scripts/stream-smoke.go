// Package main provides a CI-friendly smoke test against a live IOStack platform.
//
// It validates:
//   - session establishment and access-token retrieval
//   - the trigger phrase reply streams at least one fragment
//   - a follow-up message streams a reply ending in a final fragment
//   - no error handler fired along the way
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/iostack-ai/client-example/cmd/client"
	v1 "github.com/iostack-ai/client-example/contracts/stream/v1"
)

type recorder struct {
	mu        sync.Mutex
	fragments []v1.Fragment
	errors    []string
	nodes     []string
}

func (r *recorder) onFragment(_ context.Context, f v1.Fragment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fragments = append(r.fragments, f)
}

func (r *recorder) onError(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *recorder) onActiveNode(_ context.Context, n v1.ActiveNodeChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = append(r.nodes, n.Data.ActiveNode)
}

// take returns and clears the recorded fragments and errors.
func (r *recorder) take() ([]v1.Fragment, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, e := r.fragments, r.errors
	r.fragments, r.errors = nil, nil
	return f, e
}

func main() {
	var (
		root    = flag.StringP("root", "r", client.DefaultPlatformRoot, "Platform root URL")
		key     = flag.StringP("key", "k", os.Getenv("IOSTACK_ACCESS_KEY"), "Use-case access key (defaults to IOSTACK_ACCESS_KEY)")
		session = flag.StringP("session", "s", "", "Existing session id to resume")
		text    = flag.StringP("text", "t", "What can you help me with?", "Follow-up message to send")
		timeout = flag.Duration("timeout", 60*time.Second, "Per-reply stream timeout")
		verbose = flag.BoolP("verbose", "v", false, "Verbose output")
	)
	flag.Parse()

	if strings.TrimSpace(*key) == "" {
		fatalf("missing --key (or IOSTACK_ACCESS_KEY)")
	}
	if err := validateRoot(*root); err != nil {
		fatalf("invalid --root: %v", err)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	rec := &recorder{}
	c, err := client.New(client.Config{
		AccessKey:                            *key,
		PlatformRoot:                         *root,
		StreamFragmentHandlers:               []client.StreamFragmentHandler{rec.onFragment},
		ErrorHandlers:                        []client.ErrorHandler{rec.onError},
		ActiveNodeChangeNotificationHandlers: []client.ActiveNodeChangeNotificationHandler{rec.onActiveNode},
		StreamTimeout:                        *timeout,
		Logger:                               log,
	})
	if err != nil {
		fatalf("client: %v", err)
	}
	defer c.DeregisterAllHandlers()

	ctx := context.Background()

	start := time.Now()
	if err := c.StartSession(ctx, *session); err != nil {
		fatalf("start session: %v", describe(err))
	}
	if c.SessionID() == "" {
		fatalf("start session: no session id")
	}
	frags, errs := rec.take()
	if len(errs) > 0 {
		fatalf("start session: error handler fired: %v", errs)
	}
	if len(frags) == 0 {
		fatalf("start session: trigger reply streamed no fragments")
	}
	logf(*verbose, "session %s ready in %s (%d fragments)", c.SessionID(), time.Since(start).Round(time.Millisecond), len(frags))

	start = time.Now()
	if err := c.SendMessage(ctx, *text); err != nil {
		fatalf("send message: %v", describe(err))
	}
	frags, errs = rec.take()
	if len(errs) > 0 {
		fatalf("send message: error handler fired: %v", errs)
	}
	if len(frags) == 0 {
		fatalf("send message: reply streamed no fragments")
	}
	if !frags[len(frags)-1].Final {
		logf(true, "warning: last fragment not marked final")
	}

	var reply strings.Builder
	for _, f := range frags {
		reply.WriteString(f.Fragment)
	}
	logf(*verbose, "reply in %s: %q", time.Since(start).Round(time.Millisecond), reply.String())
	if len(rec.nodes) > 0 {
		logf(*verbose, "active nodes: %s", strings.Join(rec.nodes, " -> "))
	}

	fmt.Println("OK")
}

func validateRoot(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func describe(err error) string {
	var ce *client.Error
	if errors.As(err, &ce) {
		return fmt.Sprintf("%s (reported)", ce.Error())
	}
	return err.Error()
}

func logf(enabled bool, format string, args ...any) {
	if !enabled {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
