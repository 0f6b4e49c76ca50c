package rocketchat

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/npezzotti/rocketgate/internal/types"
)

type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) Login(ctx context.Context, user, password string) (types.Session, error) {
	args := m.Called(ctx, user, password)
	return args.Get(0).(types.Session), args.Error(1)
}

func (m *MockChatAPI) Logout(ctx context.Context, session types.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockChatAPI) Me(ctx context.Context, session types.Session) (types.Profile, error) {
	args := m.Called(ctx, session)
	return args.Get(0).(types.Profile), args.Error(1)
}

func (m *MockChatAPI) Register(ctx context.Context, name, email, username, password string) (types.Profile, error) {
	args := m.Called(ctx, name, email, username, password)
	return args.Get(0).(types.Profile), args.Error(1)
}

func (m *MockChatAPI) GetRooms(ctx context.Context, session types.Session) ([]types.Room, error) {
	args := m.Called(ctx, session)
	if rooms, ok := args.Get(0).([]types.Room); ok {
		return rooms, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatAPI) ListUsers(ctx context.Context, session types.Session) ([]types.User, error) {
	args := m.Called(ctx, session)
	if users, ok := args.Get(0).([]types.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatAPI) ChannelHistory(ctx context.Context, session types.Session, roomID string, count int) ([]types.Message, error) {
	args := m.Called(ctx, session, roomID, count)
	if messages, ok := args.Get(0).([]types.Message); ok {
		return messages, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatAPI) DMHistory(ctx context.Context, session types.Session, roomID string, count int) ([]types.Message, error) {
	args := m.Called(ctx, session, roomID, count)
	if messages, ok := args.Get(0).([]types.Message); ok {
		return messages, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatAPI) SendMessage(ctx context.Context, session types.Session, roomID, text string) (types.Message, error) {
	args := m.Called(ctx, session, roomID, text)
	return args.Get(0).(types.Message), args.Error(1)
}

func (m *MockChatAPI) GetSubscriptions(ctx context.Context, session types.Session) ([]types.Subscription, error) {
	args := m.Called(ctx, session)
	if subs, ok := args.Get(0).([]types.Subscription); ok {
		return subs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockChatAPI) CreateDirectMessage(ctx context.Context, session types.Session, username string) (types.Room, error) {
	args := m.Called(ctx, session, username)
	return args.Get(0).(types.Room), args.Error(1)
}

func (m *MockChatAPI) CreateChannel(ctx context.Context, session types.Session, name string, readOnly bool) (types.Room, error) {
	args := m.Called(ctx, session, name, readOnly)
	return args.Get(0).(types.Room), args.Error(1)
}

func (m *MockChatAPI) CreateGroup(ctx context.Context, session types.Session, name string, members []string) (types.Room, error) {
	args := m.Called(ctx, session, name, members)
	return args.Get(0).(types.Room), args.Error(1)
}

func (m *MockChatAPI) JoinChannel(ctx context.Context, session types.Session, roomID, joinCode string) (types.Room, error) {
	args := m.Called(ctx, session, roomID, joinCode)
	return args.Get(0).(types.Room), args.Error(1)
}

func (m *MockChatAPI) RoomInfo(ctx context.Context, session types.Session, roomID string) (types.Room, error) {
	args := m.Called(ctx, session, roomID)
	return args.Get(0).(types.Room), args.Error(1)
}

func (m *MockChatAPI) UpdateChannel(ctx context.Context, session types.Session, roomID, name, description string) (types.Room, error) {
	args := m.Called(ctx, session, roomID, name, description)
	return args.Get(0).(types.Room), args.Error(1)
}

func (m *MockChatAPI) UpdateTeam(ctx context.Context, session types.Session, teamID, name, description string) (types.Room, error) {
	args := m.Called(ctx, session, teamID, name, description)
	return args.Get(0).(types.Room), args.Error(1)
}

func (m *MockChatAPI) DeleteChannel(ctx context.Context, session types.Session, roomID string) error {
	args := m.Called(ctx, session, roomID)
	return args.Error(0)
}

func (m *MockChatAPI) DeleteTeam(ctx context.Context, session types.Session, teamID string) error {
	args := m.Called(ctx, session, teamID)
	return args.Error(0)
}
