package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTelegram(t *testing.T, handler http.HandlerFunc) *Telegram {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewTelegram(Config{
		BotToken: "test-token",
		ChatID:   "42",
		BaseURL:  srv.URL,
		Timeout:  2 * time.Second,
	})
}

func TestNotifySendsMessage(t *testing.T) {
	var path string
	var body map[string]string

	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
	})

	require.NoError(t, tg.Notify(context.Background(), "buy ETH: executed (order ord-1, qty 0.012)"))

	assert.Equal(t, "/bottest-token/sendMessage", path)
	assert.Equal(t, "42", body["chat_id"])
	assert.Equal(t, "buy ETH: executed (order ord-1, qty 0.012)", body["text"])
}

func TestNotifyAPIErrorSurfaces(t *testing.T) {
	tg := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "description": "chat not found"})
	})

	err := tg.Notify(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "order go(abc) filled", StripMarkup("order `go[abc]` filled"))
	assert.Equal(t, "emphasis gone", StripMarkup("*emphasis* _gone_"))
}
