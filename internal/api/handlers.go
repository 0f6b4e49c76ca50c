package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/npezzotti/rocketgate/internal/catalog"
	"github.com/npezzotti/rocketgate/internal/composer"
	"github.com/npezzotti/rocketgate/internal/conversation"
	"github.com/npezzotti/rocketgate/internal/notify"
	"github.com/npezzotti/rocketgate/internal/types"
)

type SelectRoomRequest struct {
	RoomId   string `json:"room_id"`
	Username string `json:"username"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

type CreateChannelRequest struct {
	Name     string `json:"name"`
	ReadOnly bool   `json:"read_only"`
}

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type CreateDMRequest struct {
	Username string `json:"username"`
}

type JoinChannelRequest struct {
	RoomId   string `json:"room_id"`
	JoinCode string `json:"join_code"`
}

type UpdateChannelRequest struct {
	RoomId      string `json:"room_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateTeamRequest struct {
	TeamId      string `json:"team_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type RoomIdRequest struct {
	RoomId string `json:"room_id"`
}

type ToastIdRequest struct {
	Id string `json:"id"`
}

type DoNotDisturbRequest struct {
	Enabled *bool `json:"enabled"`
}

type RoomListResponse struct {
	Channels       []types.Room `json:"channels"`
	DirectMessages []types.Room `json:"direct_messages"`
	Placeholders   []types.Room `json:"placeholders"`
	Selected       string       `json:"selected,omitempty"`
}

type ConversationResponse struct {
	Room     *types.Room     `json:"room,omitempty"`
	Status   string          `json:"status"`
	Messages []types.Message `json:"messages"`
}

type NotificationsResponse struct {
	Notifications []types.Notification `json:"notifications"`
	TotalUnread   int                  `json:"total_unread"`
	Badge         string               `json:"badge"`
}

type PreferencesResponse struct {
	DoNotDisturb bool `json:"do_not_disturb"`
}

func (s *RocketGateApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *RocketGateApp) currentUsername() string {
	session, _ := s.sessions.Current()
	if session.User != nil {
		return session.User.Username
	}
	return ""
}

// listRooms returns the catalog partitioned into channels, direct
// messages and pending-DM placeholders, filtered and sorted per the
// query parameters. The first call performs the initial load; its
// failure is the one blocking error in the system.
func (s *RocketGateApp) listRooms(w http.ResponseWriter, r *http.Request) {
	if !s.catalog.Loaded() || r.URL.Query().Get("refresh") == "true" {
		initial, err := s.catalog.Load(r.Context())
		if err != nil {
			if errors.Is(err, catalog.ErrNoSession) {
				errResp := NewUnauthorizedError()
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
			errResp := remoteError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		// The first room in server order opens as the conversation
		// when nothing is selected yet. A failed history fetch does
		// not block the room list.
		if _, ok := s.conv.Room(); !ok && initial.ID != "" {
			if err := s.conv.Select(r.Context(), initial); err != nil {
				s.log.Printf("initial room select: %v", err)
			} else {
				s.notifier.MarkRead(initial.ID)
			}
		}
	}

	query := r.URL.Query().Get("query")
	mode := catalog.ParseSortMode(r.URL.Query().Get("sort"))
	username := s.currentUsername()

	channels := catalog.Sort(catalog.Filter(s.catalog.Channels(), query, username), mode, username)
	dms := catalog.Sort(catalog.Filter(s.catalog.DirectMessages(), query, username), mode, username)
	placeholders := catalog.Filter(s.catalog.Placeholders(username), query, username)

	resp := RoomListResponse{
		Channels:       channels,
		DirectMessages: dms,
		Placeholders:   placeholders,
	}
	if room, ok := s.conv.Room(); ok {
		resp.Selected = room.ID
	}

	s.writeJson(w, http.StatusOK, resp)
}

// selectRoom makes a room the active conversation. A username selects
// a pending-DM placeholder: the DM room is created remotely first and
// then selected like any other room. Opening a room acknowledges its
// unread state locally.
func (s *RocketGateApp) selectRoom(w http.ResponseWriter, r *http.Request) {
	var req SelectRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var room types.Room
	switch {
	case req.Username != "":
		session, _ := s.sessions.Current()
		created, err := s.chat.CreateDirectMessage(r.Context(), session, req.Username)
		if err != nil {
			errResp := remoteError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		s.catalog.ReplaceOrAdd(created)
		room = created
	case req.RoomId != "":
		held, ok := s.catalog.Resolve(req.RoomId)
		if !ok {
			// Rooms joined from another client may not be in the
			// catalog yet. Ask the server before giving up.
			session, _ := s.sessions.Current()
			fetched, err := s.chat.RoomInfo(r.Context(), session, req.RoomId)
			if err != nil {
				errResp := NewNotFoundError()
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
			s.catalog.ReplaceOrAdd(fetched)
			held = fetched
		}
		room = held
	default:
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.conv.Select(r.Context(), room); err != nil {
		errResp := s.selectionError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.notifier.MarkRead(room.ID)
	s.writeJson(w, http.StatusOK, room)
}

func (s *RocketGateApp) selectionError(err error) *ApiError {
	switch {
	case errors.Is(err, conversation.ErrPlaceholder):
		return NewBadRequestError()
	case errors.Is(err, conversation.ErrNoSession):
		return NewUnauthorizedError()
	default:
		return remoteError(err)
	}
}

func (s *RocketGateApp) getMessages(w http.ResponseWriter, _ *http.Request) {
	resp := ConversationResponse{
		Status:   s.conv.Status().String(),
		Messages: s.conv.Messages(),
	}
	if room, ok := s.conv.Room(); ok {
		resp.Room = &room
	}

	s.writeJson(w, http.StatusOK, resp)
}

func (s *RocketGateApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, ok := s.conv.Room()
	if !ok {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.composer.Send(r.Context(), room.ID, req.Text)
	if err != nil {
		var errResp *ApiError
		switch {
		case errors.Is(err, composer.ErrEmptyMessage):
			errResp = NewBadRequestError()
		case errors.Is(err, composer.ErrSendInFlight):
			errResp = NewConflictError("send already in flight")
		case errors.Is(err, composer.ErrNoSession):
			errResp = NewUnauthorizedError()
		default:
			errResp = remoteError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *RocketGateApp) createChannel(w http.ResponseWriter, r *http.Request) {
	var req CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	session, _ := s.sessions.Current()
	room, err := s.chat.CreateChannel(r.Context(), session, req.Name, req.ReadOnly)
	if err != nil {
		errResp := remoteError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.catalog.ReplaceOrAdd(room)
	s.writeJson(w, http.StatusCreated, room)
}

func (s *RocketGateApp) createGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	session, _ := s.sessions.Current()
	room, err := s.chat.CreateGroup(r.Context(), session, req.Name, req.Members)
	if err != nil {
		errResp := remoteError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.catalog.ReplaceOrAdd(room)
	s.writeJson(w, http.StatusCreated, room)
}

func (s *RocketGateApp) createDirectMessage(w http.ResponseWriter, r *http.Request) {
	var req CreateDMRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	session, _ := s.sessions.Current()
	room, err := s.chat.CreateDirectMessage(r.Context(), session, req.Username)
	if err != nil {
		errResp := remoteError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.catalog.ReplaceOrAdd(room)
	s.writeJson(w, http.StatusCreated, room)
}

func (s *RocketGateApp) joinChannel(w http.ResponseWriter, r *http.Request) {
	var req JoinChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	session, _ := s.sessions.Current()
	room, err := s.chat.JoinChannel(r.Context(), session, req.RoomId, req.JoinCode)
	if err != nil {
		errResp := remoteError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.catalog.ReplaceOrAdd(room)
	s.writeJson(w, http.StatusOK, room)
}

func (s *RocketGateApp) updateChannel(w http.ResponseWriter, r *http.Request) {
	var req UpdateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	session, _ := s.sessions.Current()
	room, err := s.chat.UpdateChannel(r.Context(), session, req.RoomId, req.Name, req.Description)
	if err != nil {
		errResp := remoteError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.catalog.ReplaceOrAdd(room)
	s.writeJson(w, http.StatusOK, room)
}

func (s *RocketGateApp) updateTeam(w http.ResponseWriter, r *http.Request) {
	var req UpdateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TeamId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	session, _ := s.sessions.Current()
	room, err := s.chat.UpdateTeam(r.Context(), session, req.TeamId, req.Name, req.Description)
	if err != nil {
		errResp := remoteError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.catalog.ReplaceOrAdd(room)
	s.writeJson(w, http.StatusOK, room)
}

func (s *RocketGateApp) deleteChannel(w http.ResponseWriter, r *http.Request) {
	roomId := r.URL.Query().Get("room_id")
	if roomId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	session, _ := s.sessions.Current()
	if err := s.chat.DeleteChannel(r.Context(), session, roomId); err != nil {
		errResp := remoteError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.removeRoom(roomId)
	w.WriteHeader(http.StatusNoContent)
}

func (s *RocketGateApp) deleteTeam(w http.ResponseWriter, r *http.Request) {
	teamId := r.URL.Query().Get("team_id")
	if teamId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	session, _ := s.sessions.Current()
	if err := s.chat.DeleteTeam(r.Context(), session, teamId); err != nil {
		errResp := remoteError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.removeRoom(teamId)
	w.WriteHeader(http.StatusNoContent)
}

// removeRoom drops a deleted room from the catalog and closes the
// conversation if it was the active one.
func (s *RocketGateApp) removeRoom(roomId string) {
	s.catalog.Remove(roomId)
	if room, ok := s.conv.Room(); ok && room.ID == roomId {
		s.conv.Close()
	}
	s.notifier.MarkRead(roomId)
}

func (s *RocketGateApp) getNotifications(w http.ResponseWriter, _ *http.Request) {
	total := s.notifier.TotalUnread()
	s.writeJson(w, http.StatusOK, NotificationsResponse{
		Notifications: s.notifier.Notifications(),
		TotalUnread:   total,
		Badge:         notify.Badge(total),
	})
}

func (s *RocketGateApp) dismissNotification(w http.ResponseWriter, r *http.Request) {
	var req RoomIdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoomId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.notifier.Dismiss(req.RoomId)
	w.WriteHeader(http.StatusNoContent)
}

func (s *RocketGateApp) clearNotifications(w http.ResponseWriter, _ *http.Request) {
	s.notifier.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}

func (s *RocketGateApp) getToasts(w http.ResponseWriter, _ *http.Request) {
	s.writeJson(w, http.StatusOK, s.notifier.Toasts())
}

func (s *RocketGateApp) dismissToast(w http.ResponseWriter, r *http.Request) {
	var req ToastIdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Id == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.notifier.DismissToast(req.Id)
	w.WriteHeader(http.StatusNoContent)
}

// openToast resolves a toast to its room and performs the same
// selection as clicking the room in the list.
func (s *RocketGateApp) openToast(w http.ResponseWriter, r *http.Request) {
	var req ToastIdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Id == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId, ok := s.notifier.ResolveToast(req.Id)
	if !ok {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	room, ok := s.catalog.Resolve(roomId)
	if !ok {
		errResp := NewNotFoundError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.conv.Select(r.Context(), room); err != nil {
		errResp := s.selectionError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.notifier.MarkRead(room.ID)
	s.writeJson(w, http.StatusOK, room)
}

func (s *RocketGateApp) listUsers(w http.ResponseWriter, _ *http.Request) {
	s.writeJson(w, http.StatusOK, s.catalog.Users())
}

func (s *RocketGateApp) getPreferences(w http.ResponseWriter, _ *http.Request) {
	s.writeJson(w, http.StatusOK, PreferencesResponse{
		DoNotDisturb: s.prefs.DoNotDisturb(),
	})
}

// setDoNotDisturb sets the flag when the body carries an explicit
// value and toggles it otherwise.
func (s *RocketGateApp) setDoNotDisturb(w http.ResponseWriter, r *http.Request) {
	var req DoNotDisturbRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var enabled bool
	if req.Enabled != nil {
		s.prefs.SetDoNotDisturb(*req.Enabled)
		enabled = *req.Enabled
	} else {
		enabled = s.prefs.Toggle()
	}

	s.writeJson(w, http.StatusOK, PreferencesResponse{DoNotDisturb: enabled})
}

func (s *RocketGateApp) healthz(w http.ResponseWriter, _ *http.Request) {
	if err := s.repo.Ping(); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}
