package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTelegram struct {
	mu       sync.Mutex
	sent     []map[string]string
	failures int
	updates  string
}

func (f *fakeTelegram) messages() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.sent...)
}

func (f *fakeTelegram) failNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = n
}

func (f *fakeTelegram) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bottok/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failures > 0 {
			f.failures--
			http.Error(w, `{"ok":false}`, http.StatusTooManyRequests)
			return
		}
		var payload map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		f.sent = append(f.sent, payload)
		w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/bottok/getUpdates", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("offset"))
		w.Write([]byte(f.updates))
	})
	return mux
}

func newTestNotifier(t *testing.T, fake *fakeTelegram) *TelegramNotifier {
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("tok", "chat-1", "")
	n.BaseURL = srv.URL
	n.RetryBase = time.Millisecond
	return n
}

func TestSend(t *testing.T) {
	fake := &fakeTelegram{}
	n := newTestNotifier(t, fake)

	require.NoError(t, n.Send(context.Background(), "<b>hi</b>"))
	sent := fake.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "chat-1", sent[0]["chat_id"])
	assert.Equal(t, "<b>hi</b>", sent[0]["text"])
	assert.Equal(t, "HTML", sent[0]["parse_mode"])
}

func TestSend_APIError(t *testing.T) {
	fake := &fakeTelegram{failures: 1}
	n := newTestNotifier(t, fake)
	err := n.Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestSendWithRetry(t *testing.T) {
	fake := &fakeTelegram{failures: 2}
	n := newTestNotifier(t, fake)
	require.NoError(t, n.SendWithRetry(context.Background(), "x", 3))
	assert.Len(t, fake.messages(), 1)

	fake.failNext(10)
	err := n.SendWithRetry(context.Background(), "x", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 retries exhausted")
}

func TestSendWithRetry_Cancelled(t *testing.T) {
	fake := &fakeTelegram{failures: 10}
	n := newTestNotifier(t, fake)
	n.RetryBase = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	assert.ErrorIs(t, n.SendWithRetry(ctx, "x", 3), context.Canceled)
}

func TestPoll_AnswersCommands(t *testing.T) {
	fake := &fakeTelegram{updates: `{"ok":true,"result":[
		{"update_id":7,"message":{"text":" /quote 000001.SZ "}},
		{"update_id":8,"message":null},
		{"update_id":9,"message":{"text":"/help"}}
	]}`}
	n := newTestNotifier(t, fake)

	var got []string
	next, err := n.poll(context.Background(), n.Client, 7, 0, func(cmd string) string {
		got = append(got, cmd)
		if cmd == "/help" {
			return ""
		}
		return "reply to " + cmd
	})
	require.NoError(t, err)
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"/quote 000001.SZ", "/help"}, got)
	sent := fake.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "reply to /quote 000001.SZ", sent[0]["text"])
}
