package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/qguild-go/qguild/model"
)

// GetGuild fetches one guild by id.
func (c *Client) GetGuild(ctx context.Context, guildID model.GuildID) (model.Guild, error) {
	resp, err := Do[model.Guild](ctx, c, http.MethodGet, fmt.Sprintf("/guilds/%s", guildID), nil)
	if err != nil {
		return model.Guild{}, err
	}
	return resp.AsResult()
}
