package hostapi

import (
	"context"

	"nb-assistant/internal/messages"
)

const notifyTimeoutMillis = 7000

type pushMsgRequest struct {
	Msg     string `json:"msg"`
	Timeout int    `json:"timeout"`
}

// Notify shows the message in the host UI.
func (c *Client) Notify(ctx context.Context, msg messages.Message) error {
	endpoint := "/api/notification/pushMsg"
	if msg.Level == messages.LevelError {
		endpoint = "/api/notification/pushErrMsg"
	}
	return c.post(ctx, endpoint, pushMsgRequest{Msg: msg.Text, Timeout: notifyTimeoutMillis}, nil)
}
