package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/qguild-go/qguild/model"
)

// reactionUsersPage is one page of the reaction-users listing.
type reactionUsersPage struct {
	Users  []model.User `json:"users"`
	Cookie string       `json:"cookie"`
	IsEnd  bool         `json:"is_end"`
}

func reactionPath(channelID model.ChannelID, messageID model.MessageID, emoji model.Emoji) string {
	return fmt.Sprintf("/channels/%s/messages/%s/reactions/%s", channelID, messageID, emoji.SubPath())
}

// CreateReaction places the bot's reaction on a message.
func (c *Client) CreateReaction(ctx context.Context, channelID model.ChannelID, messageID model.MessageID, emoji model.Emoji) error {
	resp, err := Do[struct{}](ctx, c, http.MethodPut, reactionPath(channelID, messageID, emoji), nil)
	if err != nil {
		return err
	}
	_, err = resp.AsResult()
	return err
}

// DeleteReaction removes the bot's reaction from a message.
func (c *Client) DeleteReaction(ctx context.Context, channelID model.ChannelID, messageID model.MessageID, emoji model.Emoji) error {
	resp, err := Do[struct{}](ctx, c, http.MethodDelete, reactionPath(channelID, messageID, emoji), nil)
	if err != nil {
		return err
	}
	_, err = resp.AsResult()
	return err
}

// GetReactionUsers walks the reaction-users listing to the end, following the
// cookie cursor. The platform occasionally repeats users across page
// boundaries, so the result is deduplicated by id.
func (c *Client) GetReactionUsers(ctx context.Context, channelID model.ChannelID, messageID model.MessageID, emoji model.Emoji) ([]model.User, error) {
	var (
		users  []model.User
		seen   = map[model.UserID]struct{}{}
		cookie string
	)
	for {
		path := reactionPath(channelID, messageID, emoji)
		if cookie != "" {
			path = fmt.Sprintf("%s?cookie=%s", path, url.QueryEscape(cookie))
		}
		resp, err := Do[reactionUsersPage](ctx, c, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		page, err := resp.AsResult()
		if err != nil {
			return nil, err
		}
		for _, u := range page.Users {
			if _, dup := seen[u.ID]; dup {
				continue
			}
			seen[u.ID] = struct{}{}
			users = append(users, u)
		}
		if page.IsEnd || page.Cookie == "" {
			return users, nil
		}
		cookie = page.Cookie
	}
}
