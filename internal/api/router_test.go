package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/harrylevesque/chesstap/internal/board"
	"github.com/harrylevesque/chesstap/internal/dispatch"
	"github.com/harrylevesque/chesstap/internal/telegram"
	"github.com/harrylevesque/chesstap/internal/utils"
)

type nopTapper struct{}

func (nopTapper) Tap(context.Context, board.Point) error { return nil }

// newTestController wires a controller against a stub Telegram server that
// always returns an empty update batch.
func newTestController(t *testing.T) *Controller {
	t.Helper()

	tg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"result":[]}`))
	}))
	t.Cleanup(tg.Close)

	log, err := utils.NewLogger("")
	if err != nil {
		t.Fatalf("NewLogger() failed: %v", err)
	}
	mapper, err := board.NewMapper(board.Rect{Left: 0, Top: 0, Right: 800, Bottom: 800})
	if err != nil {
		t.Fatalf("NewMapper() failed: %v", err)
	}
	poller := telegram.NewPoller(telegram.NewClient(tg.URL, "tok"), log, nil, telegram.PollerOptions{
		OKDelay:   time.Millisecond,
		FailDelay: time.Millisecond,
	})
	t.Cleanup(poller.Stop)

	return &Controller{
		Dispatcher: dispatch.New(nopTapper{}, mapper, log, time.Millisecond, time.Millisecond),
		Mapper:     mapper,
		Poller:     poller,
		Log:        log,
	}
}

func doRequest(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r := NewRouter(newTestController(t), "")
	rec := doRequest(t, r, "GET", "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
}

func TestStatusDefaults(t *testing.T) {
	r := NewRouter(newTestController(t), "")
	rec := doRequest(t, r, "GET", "/status", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var st StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Dispatcher != "idle" || st.Poller != "idle" || st.Mirrored || st.Cursor != 0 {
		t.Fatalf("status = %+v", st)
	}
}

func TestControlLifecycle(t *testing.T) {
	c := newTestController(t)
	r := NewRouter(c, "")

	doRequest(t, r, "POST", "/control/start", "", "")
	if c.Dispatcher.Status() != dispatch.Running {
		t.Fatalf("after start: dispatcher = %s", c.Dispatcher.Status())
	}
	if c.Poller.State() != telegram.Polling {
		t.Fatalf("after start: poller = %s", c.Poller.State())
	}

	doRequest(t, r, "POST", "/control/pause", "", "")
	if c.Dispatcher.Status() != dispatch.Paused {
		t.Fatalf("after pause: dispatcher = %s", c.Dispatcher.Status())
	}

	doRequest(t, r, "POST", "/control/resume", "", "")
	if c.Dispatcher.Status() != dispatch.Running {
		t.Fatalf("after resume: dispatcher = %s", c.Dispatcher.Status())
	}

	doRequest(t, r, "POST", "/control/emergency-stop", "", "")
	if c.Dispatcher.Status() != dispatch.Paused {
		t.Fatalf("after emergency stop: dispatcher = %s", c.Dispatcher.Status())
	}

	doRequest(t, r, "POST", "/control/stop", "", "")
	if c.Dispatcher.Status() != dispatch.Idle {
		t.Fatalf("after stop: dispatcher = %s", c.Dispatcher.Status())
	}
	if c.Poller.State() != telegram.Idle {
		t.Fatalf("after stop: poller = %s", c.Poller.State())
	}
}

func TestFlipTogglesMirror(t *testing.T) {
	c := newTestController(t)
	r := NewRouter(c, "")

	rec := doRequest(t, r, "POST", "/control/flip", "", "")
	var resp map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode flip response: %v", err)
	}
	if !resp["mirrored"] || !c.Mapper.Mirrored() {
		t.Fatalf("first flip should enable mirror mode")
	}

	doRequest(t, r, "POST", "/control/flip", "", "")
	if c.Mapper.Mirrored() {
		t.Fatalf("second flip should disable mirror mode")
	}
}

func TestSendWithoutReplyTarget(t *testing.T) {
	r := NewRouter(newTestController(t), "")
	rec := doRequest(t, r, "POST", "/control/send", "", `{"text":"played e2e4"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("send without target: status = %d, want 409", rec.Code)
	}
}

func TestSendRejectsEmptyBody(t *testing.T) {
	r := NewRouter(newTestController(t), "")
	rec := doRequest(t, r, "POST", "/control/send", "", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty send: status = %d, want 400", rec.Code)
	}
}

func TestTokenAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt hash failed: %v", err)
	}
	r := NewRouter(newTestController(t), string(hash))

	if rec := doRequest(t, r, "GET", "/status", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}
	if rec := doRequest(t, r, "GET", "/status", "wrong", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d, want 401", rec.Code)
	}
	if rec := doRequest(t, r, "GET", "/status", "secret", ""); rec.Code != http.StatusOK {
		t.Fatalf("good token: status = %d, want 200", rec.Code)
	}
	// Health stays open for probes.
	if rec := doRequest(t, r, "GET", "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health with auth on: status = %d, want 200", rec.Code)
	}
}
