package qguild

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qguild-go/qguild/events"
	"github.com/qguild-go/qguild/model"
	"github.com/qguild-go/qguild/qerr"
)

// newTestBot wires a Bot against a fake platform. The mux already handles
// token issuance; tests add their endpoints.
func newTestBot(t *testing.T, mux *http.ServeMux, tweak func(*Config)) *Bot {
	t.Helper()
	mux.HandleFunc("/app/access_token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 7200})
	})
	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)

	cfg := Config{
		AppID:      "102000000",
		Secret:     "secret",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Logger:     zerolog.Nop(),
	}
	if tweak != nil {
		tweak(&cfg)
	}
	bot, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(bot.Close)
	return bot
}

const auditHoldBody = `{"code":304023,"message":"push message is waiting for audit now","data":{"message_audit":{"audit_id":"X"}}}`

func TestSendMessagePublicAuditPass(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels/5/messages", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(auditHoldBody))
	})
	bot := newTestBot(t, mux, nil)

	go func() {
		time.Sleep(50 * time.Millisecond)
		bot.Publish(events.Event{
			Type:    events.TypeMessageAuditPass,
			Audited: &model.MessageAudited{AuditID: "X", MessageID: "M", ChannelID: 5},
		})
	}()

	res, err := bot.SendMessagePublic(context.Background(), 5, model.MessageSend{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, AuditPass, res.Outcome)
	require.NotNil(t, res.Audited)
	assert.Equal(t, model.MessageID("M"), res.Audited.MessageID)
	// The hook is consumed.
	assert.Equal(t, 0, bot.pool.size())
}

func TestSendMessagePublicAuditReject(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels/5/messages", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(auditHoldBody))
	})
	bot := newTestBot(t, mux, nil)

	go func() {
		time.Sleep(50 * time.Millisecond)
		bot.Publish(events.Event{
			Type:    events.TypeMessageAuditReject,
			Audited: &model.MessageAudited{AuditID: "X", ChannelID: 5},
		})
	}()

	res, err := bot.SendMessagePublic(context.Background(), 5, model.MessageSend{Content: "nope"})
	require.NoError(t, err)
	assert.Equal(t, AuditReject, res.Outcome)
}

func TestSendMessagePublicAuditTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels/5/messages", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(auditHoldBody))
	})
	bot := newTestBot(t, mux, func(cfg *Config) { cfg.AuditTTL = 50 * time.Millisecond })

	_, err := bot.SendMessagePublic(context.Background(), 5, model.MessageSend{Content: "hello"})
	require.Error(t, err)
	assert.True(t, qerr.IsKind(err, qerr.KindAuditTimeout))
	assert.Equal(t, 0, bot.pool.size())
}

func TestSendMessagePublicResolvesDespiteBusLag(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels/5/messages", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(auditHoldBody))
	})
	bot := newTestBot(t, mux, func(cfg *Config) { cfg.BusCapacity = 2 })

	// The outcome event is buried under enough traffic to lap the ring; the
	// hook must still resolve because it is settled on the publish path.
	go func() {
		time.Sleep(50 * time.Millisecond)
		for i := 0; i < 8; i++ {
			bot.Publish(messageEvent("noise"))
		}
		bot.Publish(events.Event{
			Type:    events.TypeMessageAuditPass,
			Audited: &model.MessageAudited{AuditID: "X", MessageID: "M", ChannelID: 5},
		})
		for i := 0; i < 8; i++ {
			bot.Publish(messageEvent("noise"))
		}
	}()

	res, err := bot.SendMessagePublic(context.Background(), 5, model.MessageSend{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, AuditPass, res.Outcome)
	assert.Equal(t, 0, bot.pool.size())
}

func TestSendMessagePublicImmediateSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels/5/messages", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(model.MessageReceived{ID: "m1", ChannelID: 5, Content: "hello"})
	})
	bot := newTestBot(t, mux, nil)

	res, err := bot.SendMessagePublic(context.Background(), 5, model.MessageSend{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, AuditNone, res.Outcome)
	require.NotNil(t, res.Message)
	assert.Equal(t, model.MessageID("m1"), res.Message.ID)
}

func TestSendMessagePublicOtherFailurePassesThrough(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels/5/messages", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":11244,"message":"invalid token"}`))
	})
	bot := newTestBot(t, mux, nil)

	_, err := bot.SendMessagePublic(context.Background(), 5, model.MessageSend{Content: "hello"})
	require.Error(t, err)
	var qe *qerr.Error
	require.ErrorAs(t, err, &qe)
	assert.EqualValues(t, 11244, qe.Code)
}

func TestMyGuildsCaches(t *testing.T) {
	mux := http.NewServeMux()
	calls := 0
	mux.HandleFunc("/users/@me/guilds", func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode([]model.Guild{{ID: 1, Name: "g"}})
	})
	bot := newTestBot(t, mux, nil)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		guilds, err := bot.MyGuilds(ctx)
		require.NoError(t, err)
		assert.Len(t, guilds, 1)
	}
	assert.Equal(t, 1, calls)

	_, err := bot.RefreshGuilds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

// recordingHandler collects every event it handles.
type recordingHandler struct {
	mu   sync.Mutex
	seen []events.Event
	only events.Type
}

func (h *recordingHandler) WouldHandle(_ context.Context, _ *Bot, ev events.Event) bool {
	return h.only == "" || ev.Type == h.only
}

func (h *recordingHandler) Handle(_ context.Context, _ *Bot, ev events.Event) error {
	h.mu.Lock()
	h.seen = append(h.seen, ev)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func messageEvent(content string) events.Event {
	return events.Event{
		Type:    events.TypeMessageCreate,
		Message: &model.MessageReceived{ID: "m", Content: content},
	}
}

func TestRegisterReplacesSameID(t *testing.T) {
	bot := newTestBot(t, http.NewServeMux(), nil)

	first := &recordingHandler{}
	second := &recordingHandler{}

	bot.Register("greeter", first)
	bot.Publish(messageEvent("one"))
	require.Eventually(t, func() bool { return first.count() == 1 }, time.Second, 5*time.Millisecond)

	// Same id: the prior handler is cancelled before the replacement runs.
	bot.Register("greeter", second)
	bot.Publish(messageEvent("two"))
	require.Eventually(t, func() bool { return second.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, first.count())
}

func TestUnregisterStopsHandler(t *testing.T) {
	bot := newTestBot(t, http.NewServeMux(), nil)

	h := &recordingHandler{}
	bot.Register("h", h)
	bot.Publish(messageEvent("one"))
	require.Eventually(t, func() bool { return h.count() == 1 }, time.Second, 5*time.Millisecond)

	bot.Unregister("h")
	bot.Publish(messageEvent("two"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, h.count())

	bot.handlerMu.Lock()
	assert.Empty(t, bot.handlers)
	bot.handlerMu.Unlock()
}

func TestWouldHandleFilters(t *testing.T) {
	bot := newTestBot(t, http.NewServeMux(), nil)

	h := &recordingHandler{only: events.TypeMessageAuditPass}
	bot.Register("audit-only", h)

	bot.Publish(messageEvent("ignored"))
	bot.Publish(events.Event{Type: events.TypeMessageAuditPass, Audited: &model.MessageAudited{AuditID: "X"}})

	require.Eventually(t, func() bool { return h.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, events.TypeMessageAuditPass, h.seen[0].Type)
}

func TestShutdownHandlersWaits(t *testing.T) {
	bot := newTestBot(t, http.NewServeMux(), nil)

	bot.Register("a", &recordingHandler{})
	bot.Register("b", &recordingHandler{})
	bot.ShutdownHandlers()

	bot.handlerMu.Lock()
	assert.Empty(t, bot.handlers)
	bot.handlerMu.Unlock()
}

func TestCloseIsIdempotent(t *testing.T) {
	bot := newTestBot(t, http.NewServeMux(), nil)
	bot.Register("h", &recordingHandler{})
	bot.Close()
	bot.Close()
	assert.Nil(t, bot.ref.get())
}
