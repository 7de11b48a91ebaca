package api

import (
	"context"
	"net/http"
)

// GetGatewayResponse is the plain gateway URL reply.
type GetGatewayResponse struct {
	URL string `json:"url"`
}

// SessionStartLimit is the identify budget attached to /gateway/bot.
type SessionStartLimit struct {
	Total          uint64 `json:"total"`
	Remaining      uint64 `json:"remaining"`
	ResetAfter     uint64 `json:"reset_after"`
	MaxConcurrency uint64 `json:"max_concurrency"`
}

// GetGatewayBotResponse is the sharding-advice reply: the websocket URL, the
// recommended shard count and the session start budget.
type GetGatewayBotResponse struct {
	URL               string            `json:"url"`
	Shards            uint32            `json:"shards"`
	SessionStartLimit SessionStartLimit `json:"session_start_limit"`
}

// GetGateway fetches the websocket URL without sharding advice.
func (c *Client) GetGateway(ctx context.Context) (GetGatewayResponse, error) {
	resp, err := Do[GetGatewayResponse](ctx, c, http.MethodGet, "/gateway", nil)
	if err != nil {
		return GetGatewayResponse{}, err
	}
	return resp.AsResult()
}

// GetGatewayBot fetches the websocket URL plus the recommended shard layout.
func (c *Client) GetGatewayBot(ctx context.Context) (GetGatewayBotResponse, error) {
	resp, err := Do[GetGatewayBotResponse](ctx, c, http.MethodGet, "/gateway/bot", nil)
	if err != nil {
		return GetGatewayBotResponse{}, err
	}
	return resp.AsResult()
}
