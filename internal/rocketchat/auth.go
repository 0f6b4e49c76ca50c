package rocketchat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/npezzotti/rocketgate/internal/types"
)

type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

type loginResponse struct {
	errorEnvelope
	Data struct {
		AuthToken string        `json:"authToken"`
		UserID    string        `json:"userId"`
		Me        types.Profile `json:"me"`
	} `json:"data"`
}

// Login authenticates with the server and returns the session used by
// every other call.
func (c *Client) Login(ctx context.Context, user, password string) (types.Session, error) {
	body, err := c.post(ctx, "/login", nil, loginRequest{User: user, Password: password})
	if err != nil {
		return types.Session{}, fmt.Errorf("login: %w", err)
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.Session{}, fmt.Errorf("login: parse response: %w", err)
	}
	if err := checkEnvelope(resp.errorEnvelope); err != nil {
		return types.Session{}, fmt.Errorf("login: %w", err)
	}

	me := resp.Data.Me
	return types.Session{
		AuthToken: resp.Data.AuthToken,
		UserID:    resp.Data.UserID,
		User:      &me,
	}, nil
}

// Logout invalidates the session's auth token on the server.
func (c *Client) Logout(ctx context.Context, session types.Session) error {
	if _, err := c.post(ctx, "/logout", &session, struct{}{}); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Me returns the profile of the authenticated user.
func (c *Client) Me(ctx context.Context, session types.Session) (types.Profile, error) {
	body, err := c.get(ctx, "/me", &session, nil)
	if err != nil {
		return types.Profile{}, fmt.Errorf("me: %w", err)
	}

	var profile types.Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return types.Profile{}, fmt.Errorf("me: parse response: %w", err)
	}
	return profile, nil
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"pass"`
}

type registerResponse struct {
	errorEnvelope
	User types.Profile `json:"user"`
}

// Register creates a new account. It does not log in; callers follow up
// with Login.
func (c *Client) Register(ctx context.Context, name, email, username, password string) (types.Profile, error) {
	body, err := c.post(ctx, "/users.register", nil, registerRequest{
		Name:     name,
		Email:    email,
		Username: username,
		Password: password,
	})
	if err != nil {
		return types.Profile{}, fmt.Errorf("register: %w", err)
	}

	var resp registerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return types.Profile{}, fmt.Errorf("register: parse response: %w", err)
	}
	if err := checkEnvelope(resp.errorEnvelope); err != nil {
		return types.Profile{}, fmt.Errorf("register: %w", err)
	}

	return resp.User, nil
}
