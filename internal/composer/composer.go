// Package composer handles outgoing messages for the active
// conversation: draft state, send serialization and inline error
// reporting.
package composer

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/npezzotti/rocketgate/internal/conversation"
	"github.com/npezzotti/rocketgate/internal/rocketchat"
	"github.com/npezzotti/rocketgate/internal/store"
	"github.com/npezzotti/rocketgate/internal/types"
)

var (
	// ErrEmptyMessage rejects empty or whitespace-only input before
	// any network call is made.
	ErrEmptyMessage = errors.New("composer: empty message")
	// ErrSendInFlight rejects a send while another is outstanding.
	ErrSendInFlight = errors.New("composer: send already in flight")
	ErrNoSession    = errors.New("composer: no active session")
)

// Composer allows at most one outstanding send. A failed send keeps
// the draft so the user can retry; a successful send appends the
// server-confirmed message to the conversation and clears the draft.
type Composer struct {
	mu      sync.Mutex
	draft   string
	sending bool
	sendErr error

	api      rocketchat.ChatAPI
	sessions *store.SessionStore
	conv     *conversation.Controller
	log      *log.Logger
}

func NewComposer(logger *log.Logger, api rocketchat.ChatAPI, sessions *store.SessionStore, conv *conversation.Controller) *Composer {
	return &Composer{
		api:      api,
		sessions: sessions,
		conv:     conv,
		log:      logger,
	}
}

// Send delivers text to the room. The text is trimmed first; empty
// input returns ErrEmptyMessage with no network call and no state
// change.
func (c *Composer) Send(ctx context.Context, roomID, text string) (types.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.Message{}, ErrEmptyMessage
	}

	session, _ := c.sessions.Current()
	if !session.Valid() {
		return types.Message{}, ErrNoSession
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return types.Message{}, ErrSendInFlight
	}
	c.sending = true
	c.draft = text
	c.sendErr = nil
	c.mu.Unlock()

	msg, err := c.api.SendMessage(ctx, session, roomID, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false
	if err != nil {
		// Keep the draft so the user can retry.
		c.sendErr = err
		c.log.Printf("send message to room %s: %v", roomID, err)
		return types.Message{}, err
	}

	c.draft = ""
	c.conv.Append(msg)
	return msg, nil
}

// Draft returns the preserved text of the last failed or in-progress
// send.
func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Composer) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

// SendError returns the error surfaced by the last send attempt, if
// any. It is cleared when a new send starts.
func (c *Composer) SendError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendErr
}
