package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/npezzotti/rocketgate/internal/catalog"
	"github.com/npezzotti/rocketgate/internal/composer"
	"github.com/npezzotti/rocketgate/internal/config"
	"github.com/npezzotti/rocketgate/internal/conversation"
	"github.com/npezzotti/rocketgate/internal/database"
	"github.com/npezzotti/rocketgate/internal/notify"
	"github.com/npezzotti/rocketgate/internal/rocketchat"
	"github.com/npezzotti/rocketgate/internal/stats"
	"github.com/npezzotti/rocketgate/internal/store"
	"github.com/npezzotti/rocketgate/internal/testutil"
	"github.com/npezzotti/rocketgate/internal/types"
)

var testSession = types.Session{
	AuthToken: "tok",
	UserID:    "u1",
	User:      &types.Profile{ID: "u1", Username: "alice"},
}

var (
	roomGeneral = types.Room{ID: "A", Type: types.RoomTypeChannel, Name: "general"}
	roomDM      = types.Room{ID: "B", Type: types.RoomTypeDirect, Usernames: []string{"alice", "bob"}}
)

type testApp struct {
	app      *RocketGateApp
	chat     *rocketchat.MockChatAPI
	repo     *database.MockStateRepository
	sessions *store.SessionStore
}

// findCookie is a helper function to find a cookie by name in the response recorder.
// It returns the cookie if found, or nil if not found.
func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	chat := &rocketchat.MockChatAPI{}
	t.Cleanup(func() { chat.AssertExpectations(t) })

	repo := &database.MockStateRepository{}
	repo.On("ListDismissals").Return([]database.Dismissal{}, nil).Maybe()

	sp := &stats.MockStatsUpdater{}
	sp.On("RegisterMetric", mock.Anything).Return().Maybe()
	sp.On("Incr", mock.Anything).Return().Maybe()

	logger := testutil.TestLogger(t)
	sessions := store.NewSessionStore(logger, nil)
	prefs := store.NewPrefStore(logger, nil)
	cat := catalog.NewCatalog(logger, chat, sessions)
	conv := conversation.NewController(logger, chat, sessions, sp, time.Hour, 50)
	t.Cleanup(conv.Close)
	comp := composer.NewComposer(logger, chat, sessions, conv)
	notifier := notify.NewAggregator(logger, chat, sessions, prefs, nil, sp, time.Hour, time.Hour)
	t.Cleanup(notifier.Stop)

	cfg := &config.Config{
		ListenAddr: "localhost:0",
		SigningKey: []byte("test-signing-key"),
	}

	app := NewRocketGateApp(http.NewServeMux(), logger, chat, repo, sessions, prefs, cat, conv, comp, notifier, cfg)
	return &testApp{app: app, chat: chat, repo: repo, sessions: sessions}
}

func (ta *testApp) loginAs(t *testing.T, session types.Session) {
	t.Helper()
	ta.sessions.Set(session)
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	switch v := body.(type) {
	case nil:
		return httptest.NewRequest(method, target, nil)
	case string:
		return httptest.NewRequest(method, target, strings.NewReader(v))
	default:
		b, err := json.Marshal(v)
		assert.NoError(t, err, "failed to marshal request body")
		return httptest.NewRequest(method, target, bytes.NewBuffer(b))
	}
}

func decodeApiError(t *testing.T, rr *httptest.ResponseRecorder) ApiError {
	t.Helper()
	var apiErr ApiError
	err := json.NewDecoder(rr.Body).Decode(&apiErr)
	assert.NoError(t, err, "failed to decode error response")
	return apiErr
}

func TestLoginHandler(t *testing.T) {
	tcases := []struct {
		name        string
		body        any
		mockSession types.Session
		mockErr     error
		expectedErr *ApiError
	}{
		{
			name:        "successful login",
			body:        LoginRequest{User: "alice", Password: "secret"},
			mockSession: testSession,
		},
		{
			name:        "invalid json body",
			body:        "invalid json",
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "missing credentials",
			body:        LoginRequest{User: "alice"},
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "remote rejects credentials",
			body:        LoginRequest{User: "alice", Password: "wrong"},
			mockErr:     &rocketchat.APIError{StatusCode: http.StatusUnauthorized, Message: "Unauthorized"},
			expectedErr: NewUnauthorizedError(),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			ta := newTestApp(t)

			if lr, ok := tc.body.(LoginRequest); ok && lr.User != "" && lr.Password != "" {
				ta.chat.On("Login", mock.Anything, lr.User, lr.Password).
					Return(tc.mockSession, tc.mockErr).Once()
			}

			rr := httptest.NewRecorder()
			ta.app.login(rr, jsonRequest(t, http.MethodPost, "/api/auth/login", tc.body))

			if tc.expectedErr != nil {
				apiErr := decodeApiError(t, rr)
				assert.Equal(t, tc.expectedErr.StatusCode, rr.Code, "expected status code to match")
				assert.Equal(t, *tc.expectedErr, apiErr, "expected ApiError response")
				return
			}

			assert.Equal(t, http.StatusOK, rr.Code)

			cookie := findCookie(rr, tokenCookieKey)
			assert.NotNil(t, cookie, "expected a session cookie to be set")
			assert.True(t, cookie.HttpOnly, "expected the cookie to be http-only")

			session, _ := ta.sessions.Current()
			assert.Equal(t, testSession, session, "expected the session to be installed")

			var profile types.Profile
			assert.NoError(t, json.NewDecoder(rr.Body).Decode(&profile))
			assert.Equal(t, *testSession.User, profile)
		})
	}
}

func TestRegisterHandler(t *testing.T) {
	expected := types.Profile{ID: "u9", Username: "newuser", Email: "new@example.com"}

	tcases := []struct {
		name        string
		body        any
		mockErr     error
		expectedErr *ApiError
	}{
		{
			name: "successful registration",
			body: RegisterRequest{Name: "New User", Email: expected.Email, Username: expected.Username, Password: "secret"},
		},
		{
			name:        "invalid json body",
			body:        "invalid json",
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "missing username",
			body:        RegisterRequest{Email: expected.Email, Password: "secret"},
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "remote rejects registration",
			body:        RegisterRequest{Name: "New User", Email: expected.Email, Username: expected.Username, Password: "secret"},
			mockErr:     &rocketchat.APIError{StatusCode: http.StatusBadRequest, Message: "Username is already in use"},
			expectedErr: &ApiError{StatusCode: http.StatusBadGateway, Message: "Username is already in use"},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			ta := newTestApp(t)

			if rr, ok := tc.body.(RegisterRequest); ok && rr.Username != "" && rr.Email != "" && rr.Password != "" {
				ta.chat.On("Register", mock.Anything, rr.Name, rr.Email, rr.Username, rr.Password).
					Return(expected, tc.mockErr).Once()
			}

			rr := httptest.NewRecorder()
			ta.app.register(rr, jsonRequest(t, http.MethodPost, "/api/auth/register", tc.body))

			if tc.expectedErr != nil {
				apiErr := decodeApiError(t, rr)
				assert.Equal(t, tc.expectedErr.StatusCode, rr.Code)
				assert.Equal(t, tc.expectedErr.Message, apiErr.Message, "expected the remote message to pass through")
				return
			}

			assert.Equal(t, http.StatusCreated, rr.Code)
			var profile types.Profile
			assert.NoError(t, json.NewDecoder(rr.Body).Decode(&profile))
			assert.Equal(t, expected, profile)
		})
	}
}

func TestLogoutHandler(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	ta.chat.On("Logout", mock.Anything, testSession).Return(nil).Once()

	rr := httptest.NewRecorder()
	ta.app.logout(rr, httptest.NewRequest(http.MethodGet, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)

	cookie := findCookie(rr, tokenCookieKey)
	assert.NotNil(t, cookie, "expected the cookie to be overwritten")
	assert.Empty(t, cookie.Value, "expected the cookie value to be cleared")

	session, _ := ta.sessions.Current()
	assert.False(t, session.Valid(), "expected the local session to be cleared")
}

func TestLogoutHandler_remoteFailureStillClears(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	ta.chat.On("Logout", mock.Anything, testSession).Return(errors.New("boom")).Once()

	rr := httptest.NewRecorder()
	ta.app.logout(rr, httptest.NewRequest(http.MethodGet, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code, "expected logout to succeed locally")
	session, _ := ta.sessions.Current()
	assert.False(t, session.Valid())
}

func TestLogoutHandler_resetsCatalog(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	alicePrivate := types.Room{ID: "P", Type: types.RoomTypePrivate, Name: "alice-private"}
	ta.chat.On("GetRooms", mock.Anything, testSession).
		Return([]types.Room{alicePrivate}, nil).Once()
	ta.chat.On("ListUsers", mock.Anything, testSession).
		Return([]types.User{}, nil).Once()
	_, err := ta.app.catalog.Load(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.NoError(t, err)

	ta.chat.On("Logout", mock.Anything, testSession).Return(nil).Once()
	rr := httptest.NewRecorder()
	ta.app.logout(rr, httptest.NewRequest(http.MethodGet, "/api/auth/logout", nil))

	assert.False(t, ta.app.catalog.Loaded(), "expected logout to drop the cached room list")

	// The next user's room list comes from a fresh fetch, never the
	// previous user's cache.
	bobSession := types.Session{
		AuthToken: "tok2",
		UserID:    "u2",
		User:      &types.Profile{ID: "u2", Username: "bob"},
	}
	ta.loginAs(t, bobSession)

	bobRoom := types.Room{ID: "Q", Type: types.RoomTypeChannel, Name: "bob-stuff"}
	ta.chat.On("GetRooms", mock.Anything, bobSession).
		Return([]types.Room{bobRoom}, nil).Once()
	ta.chat.On("ListUsers", mock.Anything, bobSession).
		Return([]types.User{}, nil).Once()
	ta.chat.On("ChannelHistory", mock.Anything, bobSession, "Q", 50).
		Return([]types.Message{}, nil).Once()

	rr = httptest.NewRecorder()
	ta.app.listRooms(rr, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp RoomListResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Channels, 1, "expected only the new session's rooms")
	assert.Equal(t, "Q", resp.Channels[0].ID)
}

func TestLoginHandler_supersedesActiveSession(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	ta.chat.On("GetRooms", mock.Anything, testSession).
		Return([]types.Room{roomGeneral}, nil).Once()
	ta.chat.On("ListUsers", mock.Anything, testSession).
		Return([]types.User{}, nil).Once()
	ta.chat.On("ChannelHistory", mock.Anything, testSession, "A", 50).
		Return([]types.Message{}, nil).Once()

	rr := httptest.NewRecorder()
	ta.app.listRooms(rr, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	bobSession := types.Session{
		AuthToken: "tok2",
		UserID:    "u2",
		User:      &types.Profile{ID: "u2", Username: "bob"},
	}
	ta.chat.On("Login", mock.Anything, "bob", "secret").
		Return(bobSession, nil).Once()

	rr = httptest.NewRecorder()
	ta.app.login(rr, jsonRequest(t, http.MethodPost, "/api/auth/login", LoginRequest{User: "bob", Password: "secret"}))
	assert.Equal(t, http.StatusOK, rr.Code)

	// Replacing the session without a logout still drops the old
	// user's conversation and room list.
	assert.False(t, ta.app.catalog.Loaded(), "expected a re-login to drop the cached room list")
	_, ok := ta.app.conv.Room()
	assert.False(t, ok, "expected a re-login to close the conversation")

	session, _ := ta.sessions.Current()
	assert.Equal(t, "u2", session.UserID)
}

func TestListRoomsHandler(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	ta.chat.On("GetRooms", mock.Anything, testSession).
		Return([]types.Room{roomGeneral, roomDM}, nil).Once()
	ta.chat.On("ListUsers", mock.Anything, testSession).
		Return([]types.User{
			{ID: "u1", Username: "alice"},
			{ID: "u2", Username: "bob"},
			{ID: "u3", Username: "carol"},
		}, nil).Once()
	ta.chat.On("ChannelHistory", mock.Anything, testSession, "A", 50).
		Return([]types.Message{}, nil).Once()

	rr := httptest.NewRecorder()
	ta.app.listRooms(rr, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp RoomListResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Channels, 1, "expected one channel")
	assert.Equal(t, "A", resp.Channels[0].ID)
	assert.Len(t, resp.DirectMessages, 1, "expected one direct message")
	assert.Equal(t, "B", resp.DirectMessages[0].ID)
	// bob already has a DM with alice; only carol remains.
	assert.Len(t, resp.Placeholders, 1, "expected one placeholder")
	assert.Equal(t, "carol", resp.Placeholders[0].Username)

	// The first room in server order opens as the conversation.
	assert.Equal(t, "A", resp.Selected, "expected the first room to be selected")
	selected, ok := ta.app.conv.Room()
	assert.True(t, ok, "expected the initial load to open a conversation")
	assert.Equal(t, "A", selected.ID)
}

func TestListRoomsHandler_refreshKeepsSelection(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	ta.chat.On("GetRooms", mock.Anything, testSession).
		Return([]types.Room{roomGeneral, roomDM}, nil).Times(2)
	ta.chat.On("ListUsers", mock.Anything, testSession).
		Return([]types.User{}, nil).Times(2)
	ta.chat.On("ChannelHistory", mock.Anything, testSession, "A", 50).
		Return([]types.Message{}, nil).Once()

	rr := httptest.NewRecorder()
	ta.app.listRooms(rr, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	// A refresh must not re-select: no second history fetch.
	rr = httptest.NewRecorder()
	ta.app.listRooms(rr, httptest.NewRequest(http.MethodGet, "/api/rooms?refresh=true", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp RoomListResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "A", resp.Selected, "expected the selection to survive a refresh")
}

func TestListRoomsHandler_queryFilters(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	ta.chat.On("GetRooms", mock.Anything, testSession).
		Return([]types.Room{roomGeneral, {ID: "C", Type: types.RoomTypeChannel, Name: "random"}}, nil).Once()
	ta.chat.On("ListUsers", mock.Anything, testSession).
		Return([]types.User{}, nil).Once()
	ta.chat.On("ChannelHistory", mock.Anything, testSession, "A", 50).
		Return([]types.Message{}, nil).Once()

	rr := httptest.NewRecorder()
	ta.app.listRooms(rr, httptest.NewRequest(http.MethodGet, "/api/rooms?query=gen", nil))

	var resp RoomListResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Channels, 1, "expected the query to filter channels")
	assert.Equal(t, "general", resp.Channels[0].Name)
}

func TestListRoomsHandler_initialLoadFailure(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	ta.chat.On("GetRooms", mock.Anything, testSession).
		Return(nil, errors.New("connection refused")).Once()

	rr := httptest.NewRecorder()
	ta.app.listRooms(rr, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code, "expected the initial load failure to block")
}

func TestSelectRoomHandler(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	ta.chat.On("GetRooms", mock.Anything, testSession).
		Return([]types.Room{roomGeneral, roomDM}, nil).Once()
	ta.chat.On("ListUsers", mock.Anything, testSession).
		Return([]types.User{}, nil).Once()
	_, err := ta.app.catalog.Load(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.NoError(t, err)

	ta.chat.On("ChannelHistory", mock.Anything, testSession, "A", 50).
		Return([]types.Message{}, nil).Once()

	rr := httptest.NewRecorder()
	ta.app.selectRoom(rr, jsonRequest(t, http.MethodPost, "/api/rooms/select", SelectRoomRequest{RoomId: "A"}))

	assert.Equal(t, http.StatusOK, rr.Code)

	var room types.Room
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&room))
	assert.Equal(t, "A", room.ID)

	selected, ok := ta.app.conv.Room()
	assert.True(t, ok, "expected a room to be selected")
	assert.Equal(t, "A", selected.ID)
}

func TestSelectRoomHandler_placeholderCreatesDM(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	created := types.Room{ID: "D", Type: types.RoomTypeDirect, Usernames: []string{"alice", "carol"}}
	ta.chat.On("CreateDirectMessage", mock.Anything, testSession, "carol").
		Return(created, nil).Once()
	ta.chat.On("DMHistory", mock.Anything, testSession, "D", 50).
		Return([]types.Message{}, nil).Once()

	rr := httptest.NewRecorder()
	ta.app.selectRoom(rr, jsonRequest(t, http.MethodPost, "/api/rooms/select", SelectRoomRequest{Username: "carol"}))

	assert.Equal(t, http.StatusOK, rr.Code)

	resolved, ok := ta.app.catalog.Resolve("D")
	assert.True(t, ok, "expected the created DM to be added to the catalog")
	assert.Equal(t, created, resolved)
}

func TestSelectRoomHandler_unknownRoom(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	ta.chat.On("RoomInfo", mock.Anything, testSession, "nope").
		Return(types.Room{}, errors.New("not found")).Once()

	rr := httptest.NewRecorder()
	ta.app.selectRoom(rr, jsonRequest(t, http.MethodPost, "/api/rooms/select", SelectRoomRequest{RoomId: "nope"}))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSelectRoomHandler_uncataloguedRoomFetched(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	random := types.Room{ID: "Z", Type: types.RoomTypeChannel, Name: "random"}
	ta.chat.On("RoomInfo", mock.Anything, testSession, "Z").
		Return(random, nil).Once()
	ta.chat.On("ChannelHistory", mock.Anything, testSession, "Z", 50).
		Return([]types.Message{}, nil).Once()

	rr := httptest.NewRecorder()
	ta.app.selectRoom(rr, jsonRequest(t, http.MethodPost, "/api/rooms/select", SelectRoomRequest{RoomId: "Z"}))

	assert.Equal(t, http.StatusOK, rr.Code)
	_, ok := ta.app.catalog.Resolve("Z")
	assert.True(t, ok, "expected fetched room to be added to the catalog")
}

func TestSendMessageHandler(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	ta.app.catalog.ReplaceOrAdd(roomGeneral)
	ta.chat.On("ChannelHistory", mock.Anything, testSession, "A", 50).
		Return([]types.Message{}, nil).Once()
	assert.NoError(t, ta.app.conv.Select(httptest.NewRequest(http.MethodGet, "/", nil).Context(), roomGeneral))

	confirmed := types.Message{ID: "m1", RoomID: "A", Text: "hello"}
	ta.chat.On("SendMessage", mock.Anything, testSession, "A", "hello").
		Return(confirmed, nil).Once()

	rr := httptest.NewRecorder()
	ta.app.sendMessage(rr, jsonRequest(t, http.MethodPost, "/api/messages", SendMessageRequest{Text: "hello"}))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Len(t, ta.app.conv.Messages(), 1, "expected the confirmed message to be appended")
}

func TestSendMessageHandler_emptyText(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	ta.app.catalog.ReplaceOrAdd(roomGeneral)
	ta.chat.On("ChannelHistory", mock.Anything, testSession, "A", 50).
		Return([]types.Message{}, nil).Once()
	assert.NoError(t, ta.app.conv.Select(httptest.NewRequest(http.MethodGet, "/", nil).Context(), roomGeneral))

	rr := httptest.NewRecorder()
	ta.app.sendMessage(rr, jsonRequest(t, http.MethodPost, "/api/messages", SendMessageRequest{Text: "   "}))

	assert.Equal(t, http.StatusBadRequest, rr.Code, "expected whitespace-only text to be rejected")
}

func TestSendMessageHandler_noActiveRoom(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	rr := httptest.NewRecorder()
	ta.app.sendMessage(rr, jsonRequest(t, http.MethodPost, "/api/messages", SendMessageRequest{Text: "hello"}))

	assert.Equal(t, http.StatusBadRequest, rr.Code, "expected send without a selected room to fail")
}

func TestGetMessagesHandler(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	msgs := []types.Message{
		{ID: "m2", RoomID: "A", Text: "newer", Timestamp: time.Date(2025, 1, 1, 0, 0, 2, 0, time.UTC)},
		{ID: "m1", RoomID: "A", Text: "older", Timestamp: time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC)},
	}
	ta.chat.On("ChannelHistory", mock.Anything, testSession, "A", 50).
		Return(msgs, nil).Once()
	assert.NoError(t, ta.app.conv.Select(httptest.NewRequest(http.MethodGet, "/", nil).Context(), roomGeneral))

	rr := httptest.NewRecorder()
	ta.app.getMessages(rr, httptest.NewRequest(http.MethodGet, "/api/messages", nil))

	var resp ConversationResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "A", resp.Room.ID)
	assert.Len(t, resp.Messages, 2)
	assert.Equal(t, "m1", resp.Messages[0].ID, "expected chronological order")
}

func TestCreateChannelHandler(t *testing.T) {
	tcases := []struct {
		name        string
		body        any
		mockRoom    types.Room
		mockErr     error
		expectedErr *ApiError
	}{
		{
			name:     "successfully creates a channel",
			body:     CreateChannelRequest{Name: "new-channel"},
			mockRoom: types.Room{ID: "N", Type: types.RoomTypeChannel, Name: "new-channel"},
		},
		{
			name:        "invalid json body",
			body:        "invalid json",
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "missing name",
			body:        CreateChannelRequest{},
			expectedErr: NewBadRequestError(),
		},
		{
			name:        "remote failure keeps envelope message",
			body:        CreateChannelRequest{Name: "new-channel"},
			mockErr:     &rocketchat.APIError{StatusCode: http.StatusBadRequest, Message: "A channel with name 'new-channel' exists"},
			expectedErr: &ApiError{StatusCode: http.StatusBadGateway, Message: "A channel with name 'new-channel' exists"},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			ta := newTestApp(t)
			ta.loginAs(t, testSession)

			if cr, ok := tc.body.(CreateChannelRequest); ok && cr.Name != "" {
				ta.chat.On("CreateChannel", mock.Anything, testSession, cr.Name, cr.ReadOnly).
					Return(tc.mockRoom, tc.mockErr).Once()
			}

			rr := httptest.NewRecorder()
			ta.app.createChannel(rr, jsonRequest(t, http.MethodPost, "/api/channels", tc.body))

			if tc.expectedErr != nil {
				apiErr := decodeApiError(t, rr)
				assert.Equal(t, tc.expectedErr.StatusCode, rr.Code)
				assert.Equal(t, tc.expectedErr.Message, apiErr.Message)
				return
			}

			assert.Equal(t, http.StatusCreated, rr.Code)
			_, ok := ta.app.catalog.Resolve(tc.mockRoom.ID)
			assert.True(t, ok, "expected the created channel in the catalog")
		})
	}
}

func TestCreateGroupHandler(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	created := types.Room{ID: "G", Type: types.RoomTypePrivate, Name: "team-secret"}
	ta.chat.On("CreateGroup", mock.Anything, testSession, "team-secret", []string{"bob"}).
		Return(created, nil).Once()

	rr := httptest.NewRecorder()
	ta.app.createGroup(rr, jsonRequest(t, http.MethodPost, "/api/groups", CreateGroupRequest{Name: "team-secret", Members: []string{"bob"}}))

	assert.Equal(t, http.StatusCreated, rr.Code)
	_, ok := ta.app.catalog.Resolve("G")
	assert.True(t, ok, "expected the created group in the catalog")
}

func TestJoinChannelHandler(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	joined := types.Room{ID: "J", Type: types.RoomTypeChannel, Name: "public"}
	ta.chat.On("JoinChannel", mock.Anything, testSession, "J", "").
		Return(joined, nil).Once()

	rr := httptest.NewRecorder()
	ta.app.joinChannel(rr, jsonRequest(t, http.MethodPost, "/api/channels/join", JoinChannelRequest{RoomId: "J"}))

	assert.Equal(t, http.StatusOK, rr.Code)
	_, ok := ta.app.catalog.Resolve("J")
	assert.True(t, ok, "expected the joined channel in the catalog")
}

func TestUpdateChannelHandler(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)
	ta.app.catalog.ReplaceOrAdd(roomGeneral)

	updated := types.Room{ID: "A", Type: types.RoomTypeChannel, Name: "renamed"}
	ta.chat.On("UpdateChannel", mock.Anything, testSession, "A", "renamed", "").
		Return(updated, nil).Once()

	rr := httptest.NewRecorder()
	ta.app.updateChannel(rr, jsonRequest(t, http.MethodPut, "/api/channels", UpdateChannelRequest{RoomId: "A", Name: "renamed"}))

	assert.Equal(t, http.StatusOK, rr.Code)
	resolved, _ := ta.app.catalog.Resolve("A")
	assert.Equal(t, "renamed", resolved.Name, "expected the catalog entry to be replaced")
}

func TestDeleteChannelHandler(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)
	ta.app.catalog.ReplaceOrAdd(roomGeneral)

	ta.chat.On("ChannelHistory", mock.Anything, testSession, "A", 50).
		Return([]types.Message{}, nil).Once()
	assert.NoError(t, ta.app.conv.Select(httptest.NewRequest(http.MethodGet, "/", nil).Context(), roomGeneral))

	ta.chat.On("DeleteChannel", mock.Anything, testSession, "A").Return(nil).Once()

	rr := httptest.NewRecorder()
	ta.app.deleteChannel(rr, httptest.NewRequest(http.MethodDelete, "/api/channels?room_id=A", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	_, ok := ta.app.catalog.Resolve("A")
	assert.False(t, ok, "expected the deleted channel to leave the catalog")
	_, selected := ta.app.conv.Room()
	assert.False(t, selected, "expected the active conversation to close")
}

func TestDeleteTeamHandler_missingId(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	rr := httptest.NewRecorder()
	ta.app.deleteTeam(rr, httptest.NewRequest(http.MethodDelete, "/api/teams", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNotificationsHandlers(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	rr := httptest.NewRecorder()
	ta.app.getNotifications(rr, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))

	var resp NotificationsResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Zero(t, resp.TotalUnread)
	assert.Equal(t, "0", resp.Badge)

	rr = httptest.NewRecorder()
	ta.app.dismissNotification(rr, jsonRequest(t, http.MethodPost, "/api/notifications/dismiss", RoomIdRequest{RoomId: "A"}))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	ta.app.clearNotifications(rr, httptest.NewRequest(http.MethodPost, "/api/notifications/clear", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestOpenToastHandler_unknownToast(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	rr := httptest.NewRecorder()
	ta.app.openToast(rr, jsonRequest(t, http.MethodPost, "/api/toasts/open", ToastIdRequest{Id: "nope"}))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPreferencesHandlers(t *testing.T) {
	ta := newTestApp(t)
	ta.loginAs(t, testSession)

	rr := httptest.NewRecorder()
	ta.app.getPreferences(rr, httptest.NewRequest(http.MethodGet, "/api/preferences", nil))

	var resp PreferencesResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.False(t, resp.DoNotDisturb)

	// No body value toggles the flag.
	rr = httptest.NewRecorder()
	ta.app.setDoNotDisturb(rr, jsonRequest(t, http.MethodPost, "/api/preferences/dnd", DoNotDisturbRequest{}))
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.DoNotDisturb, "expected an empty body to toggle")

	enabled := false
	rr = httptest.NewRecorder()
	ta.app.setDoNotDisturb(rr, jsonRequest(t, http.MethodPost, "/api/preferences/dnd", DoNotDisturbRequest{Enabled: &enabled}))
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.False(t, resp.DoNotDisturb, "expected an explicit value to be applied")
}

func Test_healthz(t *testing.T) {
	tcases := []struct {
		name    string
		mockErr error
	}{
		{
			name:    "successful health check",
			mockErr: nil,
		},
		{
			name:    "failed health check",
			mockErr: errors.New("db error"),
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			ta := newTestApp(t)
			ta.repo.On("Ping").Return(tc.mockErr).Once()

			rr := httptest.NewRecorder()
			ta.app.healthz(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if tc.mockErr != nil {
				assert.Equal(t, http.StatusInternalServerError, rr.Code, "expected status code to be 500")
			} else {
				assert.Equal(t, http.StatusOK, rr.Code, "expected status code to be 200")
			}
		})
	}
}
