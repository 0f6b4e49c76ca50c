package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
)

var (
	defaultExp     = time.Hour * 24
	tokenCookieKey = "token"
)

const (
	epochClaim = "session-epoch"
	expClaim   = "exp"
)

type LoginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *RocketGateApp) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	profile, err := s.chat.Register(r.Context(), req.Name, req.Email, req.Username, req.Password)
	if err != nil {
		errResp := remoteError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, profile)
}

func (s *RocketGateApp) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.User == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	session, err := s.chat.Login(r.Context(), req.User, req.Password)
	if err != nil {
		errResp := remoteError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// A fresh login supersedes whatever session is still in place:
	// the old conversation, catalog and notification state must not
	// leak into the new one.
	s.conv.Close()
	s.notifier.Reset()
	s.catalog.Reset()

	epoch := s.sessions.Set(session)
	s.notifier.Run()

	token, err := s.createJwtForSession(epoch, defaultExp)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultExp))

	s.writeJson(w, http.StatusOK, session.User)
}

func (s *RocketGateApp) session(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessions.Current()
	if session.User != nil {
		s.writeJson(w, http.StatusOK, session.User)
		return
	}

	profile, err := s.chat.Me(r.Context(), session)
	if err != nil {
		errResp := remoteError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, profile)
}

func (s *RocketGateApp) logout(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessions.Current()

	s.conv.Close()
	s.notifier.Reset()
	s.catalog.Reset()
	s.sessions.Clear()

	// Best effort; the local session is gone either way.
	if err := s.chat.Logout(r.Context(), session); err != nil {
		s.log.Printf("remote logout: %v", err)
	}

	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func createJwtCookie(tokenString string, exp time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(exp),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// createJwtForSession signs a cookie token carrying the session epoch.
// A token minted for an earlier login stops validating the moment the
// session changes.
func (s *RocketGateApp) createJwtForSession(epoch uint64, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		epochClaim: epoch,
		expClaim:   time.Now().Add(exp).Unix(),
	})

	return token.SignedString(s.signingKey)
}

func (s *RocketGateApp) extractEpochFromToken(tokenString string) (uint64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	})
	if err != nil {
		return 0, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid token claims")
	}

	epoch, ok := claims[epochClaim].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid epoch claim")
	}

	return uint64(epoch), nil
}
