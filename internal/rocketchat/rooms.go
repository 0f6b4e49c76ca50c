package rocketchat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/npezzotti/rocketgate/internal/types"
)

type roomsResponse struct {
	errorEnvelope
	Update []types.Room `json:"update"`
}

// GetRooms returns every room the user is a member of, in server order.
func (c *Client) GetRooms(ctx context.Context, session types.Session) ([]types.Room, error) {
	body, err := c.get(ctx, "/rooms.get", &session, nil)
	if err != nil {
		return nil, fmt.Errorf("get rooms: %w", err)
	}

	var resp roomsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("get rooms: parse response: %w", err)
	}
	if err := checkEnvelope(resp.errorEnvelope); err != nil {
		return nil, fmt.Errorf("get rooms: %w", err)
	}

	return resp.Update, nil
}

type usersResponse struct {
	errorEnvelope
	Users []types.User `json:"users"`
}

// ListUsers returns the server's user directory, used to offer
// direct-message targets that have no room yet.
func (c *Client) ListUsers(ctx context.Context, session types.Session) ([]types.User, error) {
	body, err := c.get(ctx, "/users.list", &session, nil)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var resp usersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("list users: parse response: %w", err)
	}
	if err := checkEnvelope(resp.errorEnvelope); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return resp.Users, nil
}

type roomResponse struct {
	errorEnvelope
	Room    *types.Room `json:"room,omitempty"`
	Channel *types.Room `json:"channel,omitempty"`
	Group   *types.Room `json:"group,omitempty"`
}

// room returns whichever field the endpoint populated. The creation
// endpoints disagree on the field name (room/channel/group) but all
// carry the same shape.
func (r roomResponse) room() types.Room {
	switch {
	case r.Room != nil:
		return *r.Room
	case r.Channel != nil:
		return *r.Channel
	case r.Group != nil:
		return *r.Group
	}
	return types.Room{}
}

func (c *Client) roomCall(ctx context.Context, path string, session types.Session, reqBody any) (types.Room, error) {
	body, err := c.post(ctx, path, &session, reqBody)
	if err != nil {
		return types.Room{}, err
	}

	var resp roomResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.Room{}, fmt.Errorf("parse response: %w", err)
	}
	if err := checkEnvelope(resp.errorEnvelope); err != nil {
		return types.Room{}, err
	}

	return resp.room(), nil
}

// CreateDirectMessage resolves a pending-DM placeholder into a real
// room, creating it if the pair has never spoken.
func (c *Client) CreateDirectMessage(ctx context.Context, session types.Session, username string) (types.Room, error) {
	room, err := c.roomCall(ctx, "/im.create", session, map[string]string{"username": username})
	if err != nil {
		return types.Room{}, fmt.Errorf("create direct message: %w", err)
	}
	return room, nil
}

type createChannelRequest struct {
	Name     string `json:"name"`
	ReadOnly bool   `json:"readOnly"`
}

func (c *Client) CreateChannel(ctx context.Context, session types.Session, name string, readOnly bool) (types.Room, error) {
	room, err := c.roomCall(ctx, "/channels.create", session, createChannelRequest{Name: name, ReadOnly: readOnly})
	if err != nil {
		return types.Room{}, fmt.Errorf("create channel: %w", err)
	}
	return room, nil
}

type createGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

func (c *Client) CreateGroup(ctx context.Context, session types.Session, name string, members []string) (types.Room, error) {
	room, err := c.roomCall(ctx, "/groups.create", session, createGroupRequest{Name: name, Members: members})
	if err != nil {
		return types.Room{}, fmt.Errorf("create group: %w", err)
	}
	return room, nil
}

type joinChannelRequest struct {
	RoomID   string `json:"roomId"`
	JoinCode string `json:"joinCode,omitempty"`
}

func (c *Client) JoinChannel(ctx context.Context, session types.Session, roomID, joinCode string) (types.Room, error) {
	room, err := c.roomCall(ctx, "/channels.join", session, joinChannelRequest{RoomID: roomID, JoinCode: joinCode})
	if err != nil {
		return types.Room{}, fmt.Errorf("join channel: %w", err)
	}
	return room, nil
}

// RoomInfo returns the current server-side state of a single room.
func (c *Client) RoomInfo(ctx context.Context, session types.Session, roomID string) (types.Room, error) {
	query := url.Values{"roomId": {roomID}}
	body, err := c.get(ctx, "/rooms.info", &session, query)
	if err != nil {
		return types.Room{}, fmt.Errorf("room info: %w", err)
	}

	var resp roomResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.Room{}, fmt.Errorf("room info: parse response: %w", err)
	}
	if err := checkEnvelope(resp.errorEnvelope); err != nil {
		return types.Room{}, fmt.Errorf("room info: %w", err)
	}

	return resp.room(), nil
}

type updateChannelRequest struct {
	RoomID      string `json:"roomId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (c *Client) UpdateChannel(ctx context.Context, session types.Session, roomID, name, description string) (types.Room, error) {
	room, err := c.roomCall(ctx, "/channels.update", session, updateChannelRequest{
		RoomID:      roomID,
		Name:        name,
		Description: description,
	})
	if err != nil {
		return types.Room{}, fmt.Errorf("update channel: %w", err)
	}
	return room, nil
}

type updateTeamRequest struct {
	TeamID      string `json:"teamId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (c *Client) UpdateTeam(ctx context.Context, session types.Session, teamID, name, description string) (types.Room, error) {
	room, err := c.roomCall(ctx, "/teams.update", session, updateTeamRequest{
		TeamID:      teamID,
		Name:        name,
		Description: description,
	})
	if err != nil {
		return types.Room{}, fmt.Errorf("update team: %w", err)
	}
	return room, nil
}

func (c *Client) deleteCall(ctx context.Context, path string, session types.Session, reqBody any) error {
	body, err := c.post(ctx, path, &session, reqBody)
	if err != nil {
		return err
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return checkEnvelope(env)
}

func (c *Client) DeleteChannel(ctx context.Context, session types.Session, roomID string) error {
	if err := c.deleteCall(ctx, "/channels.delete", session, map[string]string{"roomId": roomID}); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return nil
}

func (c *Client) DeleteTeam(ctx context.Context, session types.Session, teamID string) error {
	if err := c.deleteCall(ctx, "/teams.remove", session, map[string]string{"teamId": teamID}); err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return nil
}
