// Package conversation owns the currently selected room, its message
// list and the polling loop that keeps the list fresh.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/npezzotti/rocketgate/internal/rocketchat"
	"github.com/npezzotti/rocketgate/internal/stats"
	"github.com/npezzotti/rocketgate/internal/store"
	"github.com/npezzotti/rocketgate/internal/types"
)

type Status int

const (
	// Idle: no room selected.
	Idle Status = iota
	// Loading: a room is selected and its history fetch is in flight.
	Loading
	// Ready: messages populated; the polling loop refreshes silently.
	Ready
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "idle"
	}
}

var (
	// ErrPlaceholder rejects selection of a pending-DM placeholder.
	// Selecting one is only valid as input to DM creation, never as a
	// history fetch.
	ErrPlaceholder = errors.New("conversation: room has no discriminator")
	ErrNoSession   = errors.New("conversation: no active session")
)

const (
	metricPolls        = "MessagePolls"
	metricPollFailures = "MessagePollFailures"
)

// Controller runs the selection state machine Idle -> Loading -> Ready.
// Each selection bumps a generation token; any fetch result carrying a
// superseded generation is discarded, so a slow response for an
// abandoned room can never overwrite the current one.
type Controller struct {
	mu         sync.Mutex
	status     Status
	room       types.Room
	messages   []types.Message
	generation uint64
	stop       chan struct{}

	api          rocketchat.ChatAPI
	sessions     *store.SessionStore
	stats        stats.StatsProvider
	log          *log.Logger
	pollInterval time.Duration
	historyCount int
}

func NewController(logger *log.Logger, api rocketchat.ChatAPI, sessions *store.SessionStore, sp stats.StatsProvider, pollInterval time.Duration, historyCount int) *Controller {
	sp.RegisterMetric(metricPolls)
	sp.RegisterMetric(metricPollFailures)

	return &Controller{
		api:          api,
		sessions:     sessions,
		stats:        sp,
		log:          logger,
		pollInterval: pollInterval,
		historyCount: historyCount,
	}
}

// Select makes room the active conversation. Selecting the already
// selected room is a no-op. Any previous polling loop is torn down
// before the new history fetch starts.
func (c *Controller) Select(ctx context.Context, room types.Room) error {
	if room.IsPlaceholder() {
		return ErrPlaceholder
	}

	session, epoch := c.sessions.Current()
	if !session.Valid() {
		return ErrNoSession
	}

	c.mu.Lock()
	if c.status != Idle && c.room.ID == room.ID {
		c.mu.Unlock()
		return nil
	}

	c.teardownLocked()
	c.generation++
	generation := c.generation
	c.status = Loading
	c.room = room
	c.messages = nil
	c.mu.Unlock()

	messages, err := c.fetchHistory(ctx, session, room)
	if err != nil {
		c.mu.Lock()
		if c.generation == generation {
			c.status = Idle
		}
		c.mu.Unlock()
		return fmt.Errorf("load history for room %s: %w", room.ID, err)
	}

	if c.sessions.Stale(epoch) {
		return ErrNoSession
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		// A newer selection won the race; drop this result.
		return nil
	}

	c.messages = messages
	c.status = Ready
	c.stop = make(chan struct{})
	go c.poll(generation, c.stop)
	return nil
}

// Close tears down the polling loop and returns to Idle. No poll fires
// after Close returns.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.generation++
	c.status = Idle
	c.room = types.Room{}
	c.messages = nil
}

func (c *Controller) teardownLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// fetchHistory retrieves the room's history and reverses the server's
// newest-first order into chronological display order.
func (c *Controller) fetchHistory(ctx context.Context, session types.Session, room types.Room) ([]types.Message, error) {
	var (
		messages []types.Message
		err      error
	)
	if room.IsDirect() {
		messages, err = c.api.DMHistory(ctx, session, room.ID, c.historyCount)
	} else {
		messages, err = c.api.ChannelHistory(ctx, session, room.ID, c.historyCount)
	}
	if err != nil {
		return nil, err
	}

	reversed := make([]types.Message, len(messages))
	for i, m := range messages {
		reversed[len(messages)-1-i] = m
	}
	return reversed, nil
}

func (c *Controller) poll(generation uint64, stop chan struct{}) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.pollOnce(generation)
		}
	}
}

// pollOnce refetches the active room's history. The held list is
// replaced only when the refetched message id set differs; identical
// polls leave the list untouched so readers see a stable snapshot.
func (c *Controller) pollOnce(generation uint64) {
	c.stats.Incr(metricPolls)

	session, epoch := c.sessions.Current()
	if !session.Valid() {
		return
	}

	c.mu.Lock()
	if c.generation != generation || c.status != Ready {
		c.mu.Unlock()
		return
	}
	room := c.room
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), c.pollInterval)
	messages, err := c.fetchHistory(ctx, session, room)
	cancel()
	if err != nil {
		// Transient poll failures never interrupt the user or clear
		// what is already shown.
		c.stats.Incr(metricPollFailures)
		c.log.Printf("poll room %s: %v", room.ID, err)
		return
	}

	if c.sessions.Stale(epoch) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation || c.status != Ready {
		return
	}
	if !sameMessageSet(c.messages, messages) {
		c.messages = messages
	}
}

// sameMessageSet compares by message id, catching same-length edits
// and deletions that a bare length check would miss.
func sameMessageSet(a, b []types.Message) bool {
	if len(a) != len(b) {
		return false
	}
	ids := make(map[string]struct{}, len(a))
	for _, m := range a {
		ids[m.ID] = struct{}{}
	}
	for _, m := range b {
		if _, ok := ids[m.ID]; !ok {
			return false
		}
	}
	return true
}

// Append adds a server-confirmed message to the active list, used by
// the composer after a successful send.
func (c *Controller) Append(msg types.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != Ready || msg.RoomID != c.room.ID {
		return
	}
	for _, held := range c.messages {
		if held.ID == msg.ID {
			return
		}
	}
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the active message list in chronological
// order.
func (c *Controller) Messages() []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	messages := make([]types.Message, len(c.messages))
	copy(messages, c.messages)
	return messages
}

// Room returns the selected room, if any.
func (c *Controller) Room() (types.Room, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room, c.status != Idle
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}
