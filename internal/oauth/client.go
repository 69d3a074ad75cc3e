package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pindropapp/pindrop-backend/pkg/config"
	pkgerrors "github.com/pindropapp/pindrop-backend/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

// Identity is the verified identity returned after a successful code exchange.
type Identity struct {
	Email string
	Name  string
}

// Exchanger turns an authorization code into a verified identity.
type Exchanger interface {
	Authenticate(ctx context.Context, code string) (*Identity, error)
}

// Client talks to an OpenID Connect provider using the authorization-code flow.
type Client struct {
	httpClient   *http.Client
	tokenURL     string
	userInfoURL  string
	clientID     string
	clientSecret string
	redirectURL  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the OAuth client from config.
func NewClient(cfg config.OAuthConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, fmt.Errorf("oauth client credentials are required")
	}

	client := &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		tokenURL:     strings.TrimSpace(cfg.TokenURL),
		userInfoURL:  strings.TrimSpace(cfg.UserInfoURL),
		clientID:     strings.TrimSpace(cfg.ClientID),
		clientSecret: strings.TrimSpace(cfg.ClientSecret),
		redirectURL:  strings.TrimSpace(cfg.RedirectURL),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Authenticate exchanges the authorization code and fetches the user's
// profile. Providers that cannot vouch for the email are rejected.
func (c *Client) Authenticate(ctx context.Context, code string) (*Identity, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorization code is required")
	}

	accessToken, err := c.exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.fetchIdentity(ctx, accessToken)
}

func (c *Client) exchange(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("redirect_uri", c.redirectURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build token request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute token request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "code exchange failed")
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode token response")
	}
	if tokenResp.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "provider returned no access token")
	}
	return tokenResp.AccessToken, nil
}

func (c *Client) fetchIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build userinfo request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute userinfo request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "userinfo request failed")
	}

	var info struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode userinfo response")
	}

	if info.Email == "" || !info.EmailVerified {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "provider identity is missing a verified email")
	}

	return &Identity{
		Email: info.Email,
		Name:  info.Name,
	}, nil
}
