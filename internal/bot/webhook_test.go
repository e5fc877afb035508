package bot

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"crypto-summary-bot/internal/market"
	"crypto-summary-bot/internal/search"
	"crypto-summary-bot/internal/store"
	"crypto-summary-bot/internal/summary"
)

func newServerFixture(t *testing.T) (*Server, *fakeTelegram, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	fake, client := newFakeTelegram(t)
	gen := summary.NewGenerator("", "", "", zerolog.Nop())
	orch := summary.NewOrchestrator(
		st,
		market.NewClient("", zerolog.Nop()),
		search.NewClient(zerolog.Nop()),
		gen, summary.DefaultLimits(), zerolog.Nop(),
	)
	handler := NewHandler(testConfig(), st, client, orch, gen, zerolog.Nop())
	broadcaster := NewBroadcaster(st, client, zerolog.Nop())
	return NewServer(0, handler, orch, broadcaster, zerolog.Nop()), fake, st
}

func TestServer_Health(t *testing.T) {
	s, _, _ := newServerFixture(t)

	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != 200 || w.Body.String() != "OK" {
		t.Errorf("health check: code=%d body=%q", w.Code, w.Body.String())
	}
}

func TestServer_WebhookRoutesUpdate(t *testing.T) {
	s, fake, st := newServerFixture(t)

	body := `{"update_id": 1, "message": {"message_id": 1, "from": {"id": 100, "first_name": "W"}, "chat": {"id": 100}, "text": "/start"}}`
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, httptest.NewRequest("POST", "/webhook", strings.NewReader(body)))

	if w.Code != 200 {
		t.Fatalf("webhook status %d", w.Code)
	}
	if got := lastText(t, fake, "sendMessage"); !strings.Contains(got, "Welcome to Crypto Summary Bot") {
		t.Errorf("update not routed to the handler, last reply %q", got)
	}
	if user, err := st.GetOrCreateUser(context.Background(), 100, "", "", false); err != nil || user == nil {
		t.Errorf("webhook update should reach the store: %v", err)
	}
}

func TestServer_WebhookMalformedBodyStillOK(t *testing.T) {
	s, _, _ := newServerFixture(t)

	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, httptest.NewRequest("POST", "/webhook", strings.NewReader("{broken")))

	// A non-200 would make Telegram redeliver the broken payload forever.
	if w.Code != 200 {
		t.Errorf("malformed update should still answer 200, got %d", w.Code)
	}
}

func TestServer_TriggerBroadcastsSummary(t *testing.T) {
	s, fake, st := newServerFixture(t)
	seedAuthedUsers(t, st, 1, 2)

	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/trigger", nil))

	if w.Code != 200 || w.Body.String() != "Summary sent" {
		t.Fatalf("trigger: code=%d body=%q", w.Code, w.Body.String())
	}
	// No tracked coins: the sentinel document goes out to both users.
	calls := fake.methodCalls("sendMessage")
	if len(calls) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(calls))
	}
	if text := calls[0].Payload["text"].(string); !strings.Contains(text, "Нет отслеживаемых монет") {
		t.Errorf("expected the no-coins sentinel, got %q", text)
	}
}
