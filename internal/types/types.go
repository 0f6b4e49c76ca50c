package types

import (
	"time"
)

// Room type discriminators used by Rocket.Chat-compatible servers.
const (
	RoomTypeChannel = "c"
	RoomTypePrivate = "p"
	RoomTypeDirect  = "d"
)

type Session struct {
	AuthToken string   `json:"auth_token"`
	UserID    string   `json:"user_id"`
	User      *Profile `json:"user,omitempty"`
}

// Valid reports whether the session carries the credentials required
// for authenticated calls.
func (s Session) Valid() bool {
	return s.AuthToken != "" && s.UserID != ""
}

type Profile struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

type LastMessage struct {
	Text      string    `json:"msg"`
	Timestamp time.Time `json:"ts"`
}

// Room is a channel (t=c), private group (t=p) or direct-message
// conversation (t=d). An entry with no type but a username is a
// pending-DM placeholder: a selectable user with no room yet. A
// placeholder must never be polled for history.
type Room struct {
	ID          string       `json:"_id"`
	Type        string       `json:"t,omitempty"`
	Name        string       `json:"name,omitempty"`
	FName       string       `json:"fname,omitempty"`
	Topic       string       `json:"topic,omitempty"`
	Usernames   []string     `json:"usernames,omitempty"`
	Username    string       `json:"username,omitempty"`
	Unread      int          `json:"unread"`
	LastMessage *LastMessage `json:"lastMessage,omitempty"`
	UpdatedAt   time.Time    `json:"_updatedAt,omitempty"`
}

func (r Room) IsDirect() bool {
	return r.Type == RoomTypeDirect
}

func (r Room) IsChannel() bool {
	return r.Type == RoomTypeChannel || r.Type == RoomTypePrivate
}

func (r Room) IsPlaceholder() bool {
	return r.Type == "" && r.Username != ""
}

// DisplayName resolves the name shown for the room. Direct messages are
// named after the other participant.
func (r Room) DisplayName(currentUsername string) string {
	if r.IsDirect() {
		for _, name := range r.Usernames {
			if name != currentUsername {
				return name
			}
		}
		// Self-DM or missing participant list: the full name wins for
		// direct messages.
		if r.FName != "" {
			return r.FName
		}
		return r.Name
	}
	if r.IsPlaceholder() {
		return r.Username
	}
	if r.Name != "" {
		return r.Name
	}
	return r.FName
}

// LastActivity is the timestamp used for recency sorting. The zero time
// means the room has no known activity and sorts oldest.
func (r Room) LastActivity() time.Time {
	if r.LastMessage != nil && !r.LastMessage.Timestamp.IsZero() {
		return r.LastMessage.Timestamp
	}
	return r.UpdatedAt
}

type MessageUser struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

type Message struct {
	ID          string       `json:"_id"`
	RoomID      string       `json:"rid"`
	Text        string       `json:"msg"`
	User        MessageUser  `json:"u"`
	Timestamp   time.Time    `json:"ts"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Title    string `json:"title,omitempty"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Subscription is the server-side record of the user's membership and
// unread state for a room.
type Subscription struct {
	RoomID   string `json:"rid"`
	Name     string `json:"name"`
	Type     string `json:"t"`
	Unread   int    `json:"unread"`
	Mentions int    `json:"userMentions"`
}

// Notification is the client-side unread summary derived from the
// subscription list. One entry per room with nonzero unread or mentions.
type Notification struct {
	RoomID   string `json:"room_id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Unread   int    `json:"unread"`
	Mentions int    `json:"mentions"`
}

// Toast is an ephemeral notice of newly-arrived unread activity. It
// self-expires independent of further polling.
type Toast struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Unread    int       `json:"unread"`
	Mentions  int       `json:"mentions"`
	CreatedAt time.Time `json:"created_at"`
}
