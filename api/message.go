package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/qguild-go/qguild/model"
)

// getMessageResponse wraps the single-message fetch reply.
type getMessageResponse struct {
	Message model.MessageReceived `json:"message"`
}

// PostMessage sends a message to a channel. The returned Response is left as
// an envelope because a failure here may still carry an audit id the caller
// needs to correlate.
func (c *Client) PostMessage(ctx context.Context, channelID model.ChannelID, msg model.MessageSend) (Response[model.MessageReceived], error) {
	return Do[model.MessageReceived](ctx, c, http.MethodPost, fmt.Sprintf("/channels/%s/messages", channelID), msg)
}

// GetMessage fetches one message by channel and message id.
func (c *Client) GetMessage(ctx context.Context, channelID model.ChannelID, messageID model.MessageID) (model.MessageReceived, error) {
	resp, err := Do[getMessageResponse](ctx, c, http.MethodGet,
		fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID), nil)
	if err != nil {
		return model.MessageReceived{}, err
	}
	wrapped, err := resp.AsResult()
	if err != nil {
		return model.MessageReceived{}, err
	}
	return wrapped.Message, nil
}

// DeleteMessage recalls a message. hideTip suppresses the grey recall notice
// in the channel.
func (c *Client) DeleteMessage(ctx context.Context, channelID model.ChannelID, messageID model.MessageID, hideTip bool) error {
	resp, err := Do[struct{}](ctx, c, http.MethodDelete,
		fmt.Sprintf("/channels/%s/messages/%s?hidetip=%t", channelID, messageID, hideTip), nil)
	if err != nil {
		return err
	}
	_, err = resp.AsResult()
	return err
}
