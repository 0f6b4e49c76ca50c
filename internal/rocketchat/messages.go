package rocketchat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/npezzotti/rocketgate/internal/types"
)

type historyResponse struct {
	errorEnvelope
	Messages []types.Message `json:"messages"`
}

func (c *Client) history(ctx context.Context, path string, session types.Session, roomID string, count int) ([]types.Message, error) {
	query := url.Values{
		"roomId": {roomID},
		"count":  {strconv.Itoa(count)},
	}

	body, err := c.get(ctx, path, &session, query)
	if err != nil {
		return nil, err
	}

	var resp historyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if err := checkEnvelope(resp.errorEnvelope); err != nil {
		return nil, err
	}

	return resp.Messages, nil
}

// ChannelHistory returns up to count messages for a channel or private
// group, newest first. Callers reverse for chronological display.
func (c *Client) ChannelHistory(ctx context.Context, session types.Session, roomID string, count int) ([]types.Message, error) {
	messages, err := c.history(ctx, "/channels.history", session, roomID, count)
	if err != nil {
		return nil, fmt.Errorf("channel history: %w", err)
	}
	return messages, nil
}

// DMHistory returns up to count messages for a direct-message room,
// newest first.
func (c *Client) DMHistory(ctx context.Context, session types.Session, roomID string, count int) ([]types.Message, error) {
	messages, err := c.history(ctx, "/im.history", session, roomID, count)
	if err != nil {
		return nil, fmt.Errorf("dm history: %w", err)
	}
	return messages, nil
}

type sendMessageRequest struct {
	Message struct {
		RoomID string `json:"rid"`
		Text   string `json:"msg"`
	} `json:"message"`
}

// sendMessageResponse normalizes the two body shapes seen in the wild:
// the confirmed message wrapped in a "message" field, or the message
// fields at the top level.
type sendMessageResponse struct {
	errorEnvelope
	types.Message
	Wrapped *types.Message `json:"message,omitempty"`
}

func (r sendMessageResponse) message() types.Message {
	if r.Wrapped != nil {
		return *r.Wrapped
	}
	return r.Message
}

// SendMessage posts text to a room and returns the server-confirmed
// message in the single normalized Message shape.
func (c *Client) SendMessage(ctx context.Context, session types.Session, roomID, text string) (types.Message, error) {
	var req sendMessageRequest
	req.Message.RoomID = roomID
	req.Message.Text = text

	body, err := c.post(ctx, "/chat.sendMessage", &session, req)
	if err != nil {
		return types.Message{}, fmt.Errorf("send message: %w", err)
	}

	var resp sendMessageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.Message{}, fmt.Errorf("send message: parse response: %w", err)
	}
	if err := checkEnvelope(resp.errorEnvelope); err != nil {
		return types.Message{}, fmt.Errorf("send message: %w", err)
	}

	return resp.message(), nil
}

type subscriptionsResponse struct {
	errorEnvelope
	Update []types.Subscription `json:"update"`
}

// GetSubscriptions returns the user's per-room membership and unread
// state, the input of notification aggregation.
func (c *Client) GetSubscriptions(ctx context.Context, session types.Session) ([]types.Subscription, error) {
	body, err := c.get(ctx, "/subscriptions.get", &session, nil)
	if err != nil {
		return nil, fmt.Errorf("get subscriptions: %w", err)
	}

	var resp subscriptionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("get subscriptions: parse response: %w", err)
	}
	if err := checkEnvelope(resp.errorEnvelope); err != nil {
		return nil, fmt.Errorf("get subscriptions: %w", err)
	}

	return resp.Update, nil
}
