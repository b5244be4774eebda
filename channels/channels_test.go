package channels

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/clearwatch/connectivity"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testRegistry returns a Registry with fast retries so failure tests finish
// quickly.
func testRegistry(srv *httptest.Server) *Registry {
	d := DefaultDelivery()
	d.Backoff = time.Millisecond
	d.MaxRetries = 2
	return NewRegistry(
		WithLogger(quietLogger()),
		WithHTTPClient(srv.Client()),
		WithDelivery(d),
	)
}

func mustBuild(t *testing.T, r *Registry, name, platform string, cfg any) Channel {
	t.Helper()
	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	ch, err := r.Build(name, platform, raw)
	if err != nil {
		t.Fatalf("Build(%s): %v", platform, err)
	}
	return ch
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

func TestRegistry_BuiltinPlatforms(t *testing.T) {
	got := NewRegistry().Platforms()
	want := []string{"discord", "log", "webhook"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Platforms() = %v, want %v", got, want)
	}
}

func TestRegistry_UnknownPlatform(t *testing.T) {
	_, err := NewRegistry().Build("main", "telegram", nil)
	var nf *ErrNoPlatformFactory
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNoPlatformFactory, got %T: %v", err, err)
	}
	if nf.Platform != "telegram" || nf.Channel != "main" {
		t.Errorf("err = %+v", nf)
	}
}

// ---------------------------------------------------------------------------
// Discord
// ---------------------------------------------------------------------------

func TestDiscordFactory_RequiresURL(t *testing.T) {
	_, err := NewRegistry().Build("main", "discord", json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("expected error for missing url")
	}
}

func TestDiscord_SendPostsContent(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ch := mustBuild(t, testRegistry(srv), "main", "discord", DiscordConfig{URL: srv.URL, Username: "Clears"})
	if ch.Name() != "main" {
		t.Errorf("Name() = %q", ch.Name())
	}
	if err := ch.Send(context.Background(), Message{Text: "hello"}); err != nil {
		t.Fatal(err)
	}
	if got.Content != "hello" || got.Username != "Clears" {
		t.Errorf("payload = %+v", got)
	}
}

func TestDiscord_EmptyTextIsNoop(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	ch := mustBuild(t, testRegistry(srv), "main", "discord", DiscordConfig{URL: srv.URL})
	if err := ch.Send(context.Background(), Message{}); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestDiscord_RejectsOversizedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ch := mustBuild(t, testRegistry(srv), "main", "discord", DiscordConfig{URL: srv.URL})
	err := ch.Send(context.Background(), Message{Text: strings.Repeat("é", MaxDiscordContent+1)})
	var sf *ErrSendFailed
	if !errors.As(err, &sf) {
		t.Fatalf("expected ErrSendFailed, got %v", err)
	}
}

func TestDiscord_RetriesAfterRateLimit(t *testing.T) {
	// WHAT: A 429 with retry_after in the body is retried after the hint.
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"message":"You are being rate limited.","retry_after":0.02,"global":false}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ch := mustBuild(t, testRegistry(srv), "main", "discord", DiscordConfig{URL: srv.URL})
	start := time.Now()
	if err := ch.Send(context.Background(), Message{Text: "hi"}); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("retry did not wait for retry_after")
	}
}

func TestDiscord_ClientErrorFails(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"message":"Unknown Webhook"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	ch := mustBuild(t, testRegistry(srv), "main", "discord", DiscordConfig{URL: srv.URL})
	err := ch.Send(context.Background(), Message{Text: "hi"})
	var status *connectivity.ErrStatus
	if !errors.As(err, &status) || status.Code != http.StatusNotFound {
		t.Fatalf("expected 404 ErrStatus, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 404)", calls)
	}
}

func TestDiscord_RateLimiterSpacesMessages(t *testing.T) {
	// WHAT: No window of PerMS ever holds more than Burst messages, including
	// the first one.
	// WHY: Bursting past the webhook limit gets the whole webhook throttled.
	var mu sync.Mutex
	var seen []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	const burst, per = 2, 200 * time.Millisecond
	ch := mustBuild(t, testRegistry(srv), "main", "discord",
		DiscordConfig{URL: srv.URL, Burst: burst, PerMS: int(per / time.Millisecond)})
	for range 6 {
		if err := ch.Send(context.Background(), Message{Text: "x"}); err != nil {
			t.Fatal(err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 6 {
		t.Fatalf("delivered %d messages, want 6", len(seen))
	}
	// Message i+burst must land a full window after message i. The slack
	// absorbs scheduling jitter between the limiter and the server.
	const slack = 20 * time.Millisecond
	for i := 0; i+burst < len(seen); i++ {
		if gap := seen[i+burst].Sub(seen[i]); gap < per-slack {
			t.Errorf("messages %d..%d arrived within %v, want at most %d per %v", i, i+burst, gap, burst, per)
		}
	}
}

// ---------------------------------------------------------------------------
// Webhook
// ---------------------------------------------------------------------------

func TestWebhookFactory_RequiresURL(t *testing.T) {
	if _, err := NewRegistry().Build("hook", "webhook", json.RawMessage(`{"secret":"x"}`)); err == nil {
		t.Fatal("expected error for missing url")
	}
}

func TestWebhook_SendSignsBody(t *testing.T) {
	var body []byte
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		sig = r.Header.Get(SignatureHeader)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ch := mustBuild(t, testRegistry(srv), "hook", "webhook", WebhookConfig{URL: srv.URL, Secret: "s3cret"})
	if err := ch.Send(context.Background(), Message{ID: "m1", Text: "hello"}); err != nil {
		t.Fatal(err)
	}
	if !Verify("s3cret", body, sig) {
		t.Fatalf("signature %q does not verify", sig)
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.ID != "m1" || msg.Text != "hello" || msg.Channel != "hook" || msg.Timestamp.IsZero() {
		t.Errorf("msg = %+v", msg)
	}
}

func TestWebhook_NoSecretNoHeader(t *testing.T) {
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig = r.Header.Get(SignatureHeader)
	}))
	defer srv.Close()

	ch := mustBuild(t, testRegistry(srv), "hook", "webhook", WebhookConfig{URL: srv.URL})
	if err := ch.Send(context.Background(), Message{Text: "x"}); err != nil {
		t.Fatal(err)
	}
	if sig != "" {
		t.Errorf("unexpected signature %q", sig)
	}
}

func TestVerify(t *testing.T) {
	body := []byte(`{"text":"hi"}`)
	sig := Sign("key", body)

	cases := []struct {
		name   string
		secret string
		sig    string
		want   bool
	}{
		{"no secret", "", "", true},
		{"valid", "key", sig, true},
		{"valid without prefix", "key", strings.TrimPrefix(sig, "sha256="), true},
		{"wrong key", "other", sig, false},
		{"missing", "key", "", false},
		{"not hex", "key", "sha256=zz", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Verify(tc.secret, body, tc.sig); got != tc.want {
				t.Errorf("Verify = %v, want %v", got, tc.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Log
// ---------------------------------------------------------------------------

func TestLogChannel(t *testing.T) {
	var buf strings.Builder
	r := NewRegistry(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	ch, err := r.Build("dry", "log", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := ch.Send(context.Background(), Message{Text: "Alice cleared Summit"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Alice cleared Summit") {
		t.Errorf("log output missing text: %s", buf.String())
	}
}

func TestLogFactory_RejectsUnknownLevel(t *testing.T) {
	if _, err := NewRegistry().Build("dry", "log", json.RawMessage(`{"level":"loud"}`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestErrSendFailed_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &ErrSendFailed{Channel: "c", Platform: "p", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see the cause")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("Error() = %q", err.Error())
	}
}
