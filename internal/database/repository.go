// Package database persists the small amount of client state that
// survives restarts: the resumable session, the do-not-disturb flag and
// the notification dismissal set. Everything here is a local cache; the
// server remains the source of truth for rooms and messages.
package database

import (
	"github.com/npezzotti/rocketgate/internal/types"
)

// Dismissal suppresses a room's notification until its unread count
// rises above the recorded watermark.
type Dismissal struct {
	RoomID string
	Unread int
}

type StateRepository interface {
	Ping() error
	Close() error

	SaveSession(session types.Session) error
	LoadSession() (types.Session, bool, error)
	DeleteSession() error

	SetDoNotDisturb(enabled bool) error
	GetDoNotDisturb() (bool, error)

	AddDismissals(dismissals []Dismissal) error
	RemoveDismissal(roomID string) error
	ListDismissals() ([]Dismissal, error)
	ClearDismissals() error
}
