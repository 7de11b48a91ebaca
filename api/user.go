package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/qguild-go/qguild/model"
)

// guildPageSize is the largest page /users/@me/guilds will serve.
const guildPageSize = 100

// GetMe fetches the bot's own user profile.
func (c *Client) GetMe(ctx context.Context) (model.User, error) {
	resp, err := Do[model.User](ctx, c, http.MethodGet, "/users/@me", nil)
	if err != nil {
		return model.User{}, err
	}
	return resp.AsResult()
}

// GetMyGuilds walks /users/@me/guilds to the end, following the after cursor
// until a short page arrives.
func (c *Client) GetMyGuilds(ctx context.Context) ([]model.Guild, error) {
	var (
		guilds []model.Guild
		after  model.GuildID
	)
	for {
		path := fmt.Sprintf("/users/@me/guilds?limit=%d", guildPageSize)
		if after != 0 {
			path = fmt.Sprintf("%s&after=%s", path, after)
		}
		resp, err := Do[[]model.Guild](ctx, c, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		page, err := resp.AsResult()
		if err != nil {
			return nil, err
		}
		guilds = append(guilds, page...)
		if len(page) < guildPageSize {
			return guilds, nil
		}
		after = page[len(page)-1].ID
	}
}
