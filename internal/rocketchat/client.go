// Package rocketchat is a client for the REST API of Rocket.Chat-compatible
// servers. It covers the slice of the API the gateway consumes: login,
// room and user listing, message history, sending, room creation and
// subscription (unread) state. Every remote failure is surfaced as a
// *APIError carrying the server's human-readable message.
package rocketchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/npezzotti/rocketgate/internal/types"
)

const apiPrefix = "/api/v1"

type ClientConfig struct {
	// ServerURL is the base URL of the chat server, e.g.
	// "https://chat.example.com".
	ServerURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client performs authenticated calls against a single chat server.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *log.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("rocketchat: server URL is required")
	}
	if _, err := url.Parse(cfg.ServerURL); err != nil {
		return nil, fmt.Errorf("rocketchat: invalid server URL %q: %w", cfg.ServerURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.ServerURL, "/"),
		httpClient: httpClient,
		log:        logger,
	}, nil
}

// doRequest performs a single API call. A nil session sends the request
// unauthenticated. The response body is returned raw for the caller to
// decode; non-2xx responses are converted to *APIError.
func (c *Client) doRequest(ctx context.Context, method, path string, session *types.Session, query url.Values, body any) ([]byte, error) {
	requestURL := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("rocketchat: encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("rocketchat: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if session != nil {
		req.Header.Set("X-Auth-Token", session.AuthToken)
		req.Header.Set("X-User-Id", session.UserID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rocketchat: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rocketchat: read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return respBody, parseAPIError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

func (c *Client) get(ctx context.Context, path string, session *types.Session, query url.Values) ([]byte, error) {
	return c.doRequest(ctx, http.MethodGet, path, session, query, nil)
}

func (c *Client) post(ctx context.Context, path string, session *types.Session, body any) ([]byte, error) {
	return c.doRequest(ctx, http.MethodPost, path, session, nil, body)
}
