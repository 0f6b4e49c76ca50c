// Package catalog fetches and classifies the user's rooms: channels,
// private groups, direct messages and pending-DM placeholders for
// users with no room yet.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/npezzotti/rocketgate/internal/rocketchat"
	"github.com/npezzotti/rocketgate/internal/store"
	"github.com/npezzotti/rocketgate/internal/types"
)

var ErrNoSession = errors.New("catalog: no active session")

// Catalog holds the fetched room list and user directory. The held
// list is only replaced on a successful fetch: once something has
// loaded, later failures never evict the current view.
type Catalog struct {
	mu      sync.Mutex
	rooms   []types.Room
	users   []types.User
	loaded  bool
	lastErr error

	api      rocketchat.ChatAPI
	sessions *store.SessionStore
	log      *log.Logger
}

func NewCatalog(logger *log.Logger, api rocketchat.ChatAPI, sessions *store.SessionStore) *Catalog {
	return &Catalog{
		api:      api,
		sessions: sessions,
		log:      logger,
	}
}

// Load fetches the room list and user directory, replacing the held
// state. It returns the initially selected room: the first room in
// server order. A fetch failure before anything has ever loaded is the
// caller's blocking error; afterwards it only records lastErr.
func (c *Catalog) Load(ctx context.Context) (types.Room, error) {
	session, epoch := c.sessions.Current()
	if !session.Valid() {
		return types.Room{}, ErrNoSession
	}

	rooms, err := c.api.GetRooms(ctx, session)
	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		loaded := c.loaded
		c.mu.Unlock()

		if loaded {
			// Keep showing what we have.
			c.log.Printf("room list refresh failed: %v", err)
			return types.Room{}, nil
		}
		return types.Room{}, fmt.Errorf("load rooms: %w", err)
	}

	// The user directory feeds pending-DM placeholders. Losing it is
	// not fatal: the room list still renders.
	users, err := c.api.ListUsers(ctx, session)
	if err != nil {
		c.log.Printf("user list fetch failed: %v", err)
		users = nil
	}

	if c.sessions.Stale(epoch) {
		// Logged out (or re-logged) while the fetch was in flight.
		return types.Room{}, ErrNoSession
	}

	c.mu.Lock()
	c.rooms = rooms
	if users != nil {
		c.users = users
	}
	c.loaded = true
	c.lastErr = nil
	var initial types.Room
	if len(c.rooms) > 0 {
		initial = c.rooms[0]
	}
	c.mu.Unlock()

	return initial, nil
}

// Reset drops all held state. The next session starts from a fresh
// fetch instead of the previous user's cached list.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms = nil
	c.users = nil
	c.loaded = false
	c.lastErr = nil
}

// Loaded reports whether any room list has ever been fetched.
func (c *Catalog) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// LastError returns the most recent fetch error, nil after a success.
func (c *Catalog) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Rooms returns a copy of the held room list in server order.
func (c *Catalog) Rooms() []types.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	rooms := make([]types.Room, len(c.rooms))
	copy(rooms, c.rooms)
	return rooms
}

// Channels returns rooms that are not direct messages.
func (c *Catalog) Channels() []types.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	var channels []types.Room
	for _, r := range c.rooms {
		if !r.IsDirect() {
			channels = append(channels, r)
		}
	}
	return channels
}

// DirectMessages returns rooms with the direct discriminator.
func (c *Catalog) DirectMessages() []types.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	var dms []types.Room
	for _, r := range c.rooms {
		if r.IsDirect() {
			dms = append(dms, r)
		}
	}
	return dms
}

// Placeholders returns a pending-DM placeholder for every known user
// who has neither a DM room yet nor is the current user. Placeholders
// have no discriminator and must never be polled for history.
func (c *Catalog) Placeholders(currentUsername string) []types.Room {
	c.mu.Lock()
	defer c.mu.Unlock()

	haveDM := make(map[string]bool)
	for _, r := range c.rooms {
		if !r.IsDirect() {
			continue
		}
		for _, name := range r.Usernames {
			haveDM[name] = true
		}
	}

	var placeholders []types.Room
	for _, u := range c.users {
		if u.Username == currentUsername || haveDM[u.Username] {
			continue
		}
		placeholders = append(placeholders, types.Room{
			Username: u.Username,
			Name:     u.Name,
		})
	}
	return placeholders
}

// Resolve looks up a held room by id, used to turn a toast click into
// a room selection.
func (c *Catalog) Resolve(roomID string) (types.Room, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.rooms {
		if r.ID == roomID {
			return r, true
		}
	}
	return types.Room{}, false
}

// ReplaceOrAdd installs a room resolved by a create/join call, either
// updating the held entry or appending a new one.
func (c *Catalog) ReplaceOrAdd(room types.Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.rooms {
		if r.ID == room.ID {
			c.rooms[i] = room
			return
		}
	}
	c.rooms = append(c.rooms, room)
}

// Remove drops a room after a delete call. Unknown ids are a no-op.
func (c *Catalog) Remove(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.rooms {
		if r.ID == roomID {
			c.rooms = append(c.rooms[:i], c.rooms[i+1:]...)
			return
		}
	}
}

// Users returns a copy of the held user directory.
func (c *Catalog) Users() []types.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	users := make([]types.User, len(c.users))
	copy(users, c.users)
	return users
}
