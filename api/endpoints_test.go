package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qguild-go/qguild/model"
)

func newEndpointClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	mux.HandleFunc("/app/access_token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 7200})
	})
	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		AppID:      "102000000",
		Secret:     "secret",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	return c
}

func TestGetMyGuildsFollowsFullPages(t *testing.T) {
	mux := http.NewServeMux()
	var afters []string
	mux.HandleFunc("/users/@me/guilds", func(w http.ResponseWriter, r *http.Request) {
		after := r.URL.Query().Get("after")
		afters = append(afters, after)

		var page []model.Guild
		if after == "" {
			for i := 1; i <= guildPageSize; i++ {
				page = append(page, model.Guild{ID: model.GuildID(i), Name: fmt.Sprintf("g%d", i)})
			}
		} else {
			// A short second page ends the walk.
			page = []model.Guild{{ID: 101, Name: "g101"}, {ID: 102, Name: "g102"}}
		}
		_ = json.NewEncoder(w).Encode(page)
	})
	c := newEndpointClient(t, mux)

	guilds, err := c.GetMyGuilds(context.Background())
	require.NoError(t, err)
	assert.Len(t, guilds, guildPageSize+2)
	require.Len(t, afters, 2)
	assert.Equal(t, "", afters[0])
	assert.Equal(t, "100", afters[1])
}

func TestGetMyGuildsStopsOnShortFirstPage(t *testing.T) {
	mux := http.NewServeMux()
	calls := 0
	mux.HandleFunc("/users/@me/guilds", func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode([]model.Guild{{ID: 1, Name: "only"}})
	})
	c := newEndpointClient(t, mux)

	guilds, err := c.GetMyGuilds(context.Background())
	require.NoError(t, err)
	assert.Len(t, guilds, 1)
	assert.Equal(t, 1, calls)
}

func TestGetReactionUsersPagesAndDedups(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels/5/messages/m1/reactions/1/128077", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("cookie") {
		case "":
			_ = json.NewEncoder(w).Encode(reactionUsersPage{
				Users:  []model.User{{ID: 1, Username: "a"}, {ID: 2, Username: "b"}},
				Cookie: "next",
			})
		case "next":
			// User 2 repeats across the page boundary.
			_ = json.NewEncoder(w).Encode(reactionUsersPage{
				Users: []model.User{{ID: 2, Username: "b"}, {ID: 3, Username: "c"}},
				IsEnd: true,
			})
		default:
			http.NotFound(w, r)
		}
	})
	c := newEndpointClient(t, mux)

	emoji := model.Emoji{Type: model.EmojiSystem, ID: 128077}
	users, err := c.GetReactionUsers(context.Background(), 5, "m1", emoji)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, model.UserID(1), users[0].ID)
	assert.Equal(t, model.UserID(2), users[1].ID)
	assert.Equal(t, model.UserID(3), users[2].ID)
}

func TestGetMessageUnwrapsEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels/5/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"message": model.MessageReceived{ID: "m1", ChannelID: 5, Content: "hi"},
			})
		case http.MethodDelete:
			assert.Equal(t, "true", r.URL.Query().Get("hidetip"))
			w.WriteHeader(http.StatusOK)
		}
	})
	c := newEndpointClient(t, mux)

	msg, err := c.GetMessage(context.Background(), 5, "m1")
	require.NoError(t, err)
	assert.Equal(t, model.MessageID("m1"), msg.ID)
	assert.Equal(t, "hi", msg.Content)

	require.NoError(t, c.DeleteMessage(context.Background(), 5, "m1", true))
}

func TestPostMessageSurfacesAuditFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels/5/messages", func(w http.ResponseWriter, r *http.Request) {
		var body model.MessageSend
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body.Content)

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"code":304023,"message":"push message is waiting for audit now","data":{"message_audit":{"audit_id":"audit-1"}}}`))
	})
	c := newEndpointClient(t, mux)

	resp, err := c.PostMessage(context.Background(), 5, model.MessageSend{Content: "hello"})
	require.NoError(t, err)
	require.NotNil(t, resp.Fail)
	assert.EqualValues(t, 304023, resp.Fail.Code)
}
