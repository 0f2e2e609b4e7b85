package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/boothlead/backend/internal/store"
)

// ErrMissingCredentials is returned before any request when email or password is blank.
var ErrMissingCredentials = errors.New("Enter your email and password.")

// User is the authenticated account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the token grant returned by a successful sign-in.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	User         User   `json:"user"`
}

// Client talks to the hosted auth service (/auth/v1).
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates an auth client for the project at baseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// PasswordSignIn exchanges email and password for a session.
func (c *Client) PasswordSignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if c.baseURL == "" || c.apiKey == "" {
		return nil, store.ErrNotConfigured
	}

	raw, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("marshal sign-in: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/v1/token?grant_type=password", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &store.Error{Message: err.Error()}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &store.Error{Message: fmt.Sprintf("read response: %v", err), Status: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload := map[string]any{}
		_ = json.Unmarshal(body, &payload)
		e := store.ErrorFromPayload(payload, resp.StatusCode)
		if e.Message == "" {
			e.Message = fmt.Sprintf("sign-in failed with status %d", resp.StatusCode)
		}
		c.logger.Info("sign-in rejected", zap.Int("status", resp.StatusCode), zap.String("code", e.Code))
		return nil, e
	}

	var sess Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, &store.Error{Message: fmt.Sprintf("decode session: %v", err)}
	}
	if sess.AccessToken == "" {
		return nil, &store.Error{Message: "sign-in returned no access token"}
	}
	return &sess, nil
}
