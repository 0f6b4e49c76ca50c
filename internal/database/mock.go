package database

import (
	"github.com/stretchr/testify/mock"

	"github.com/npezzotti/rocketgate/internal/types"
)

type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockStateRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockStateRepository) SaveSession(session types.Session) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockStateRepository) LoadSession() (types.Session, bool, error) {
	args := m.Called()
	return args.Get(0).(types.Session), args.Bool(1), args.Error(2)
}

func (m *MockStateRepository) DeleteSession() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockStateRepository) SetDoNotDisturb(enabled bool) error {
	args := m.Called(enabled)
	return args.Error(0)
}

func (m *MockStateRepository) GetDoNotDisturb() (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

func (m *MockStateRepository) AddDismissals(dismissals []Dismissal) error {
	args := m.Called(dismissals)
	return args.Error(0)
}

func (m *MockStateRepository) RemoveDismissal(roomID string) error {
	args := m.Called(roomID)
	return args.Error(0)
}

func (m *MockStateRepository) ListDismissals() ([]Dismissal, error) {
	args := m.Called()
	if dismissals, ok := args.Get(0).([]Dismissal); ok {
		return dismissals, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStateRepository) ClearDismissals() error {
	args := m.Called()
	return args.Error(0)
}
