package rocketchat

import (
	"context"

	"github.com/npezzotti/rocketgate/internal/types"
)

// ChatAPI is the surface of the remote chat server the gateway depends
// on. *Client implements it; tests substitute MockChatAPI.
type ChatAPI interface {
	Login(ctx context.Context, user, password string) (types.Session, error)
	Logout(ctx context.Context, session types.Session) error
	Me(ctx context.Context, session types.Session) (types.Profile, error)
	Register(ctx context.Context, name, email, username, password string) (types.Profile, error)
	GetRooms(ctx context.Context, session types.Session) ([]types.Room, error)
	ListUsers(ctx context.Context, session types.Session) ([]types.User, error)
	ChannelHistory(ctx context.Context, session types.Session, roomID string, count int) ([]types.Message, error)
	DMHistory(ctx context.Context, session types.Session, roomID string, count int) ([]types.Message, error)
	SendMessage(ctx context.Context, session types.Session, roomID, text string) (types.Message, error)
	GetSubscriptions(ctx context.Context, session types.Session) ([]types.Subscription, error)
	CreateDirectMessage(ctx context.Context, session types.Session, username string) (types.Room, error)
	CreateChannel(ctx context.Context, session types.Session, name string, readOnly bool) (types.Room, error)
	CreateGroup(ctx context.Context, session types.Session, name string, members []string) (types.Room, error)
	JoinChannel(ctx context.Context, session types.Session, roomID, joinCode string) (types.Room, error)
	RoomInfo(ctx context.Context, session types.Session, roomID string) (types.Room, error)
	UpdateChannel(ctx context.Context, session types.Session, roomID, name, description string) (types.Room, error)
	UpdateTeam(ctx context.Context, session types.Session, teamID, name, description string) (types.Room, error)
	DeleteChannel(ctx context.Context, session types.Session, roomID string) error
	DeleteTeam(ctx context.Context, session types.Session, teamID string) error
}

var _ ChatAPI = (*Client)(nil)
