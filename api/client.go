// Package api is the authenticated HTTP client for the QQ guild open
// platform: token acquisition and caching, the JSON request/response
// envelope, and the endpoint catalogue the bot facade builds on.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/qguild-go/qguild/qerr"
)

const (
	// ProdBaseURL is the production API origin.
	ProdBaseURL = "https://api.sgroup.qq.com"
	// SandboxBaseURL is the sandbox API origin.
	SandboxBaseURL = "https://sandbox.api.sgroup.qq.com"

	// tokenRefreshWindow is how close to expiry the cached token may get
	// before a background refresh is kicked off.
	tokenRefreshWindow = 60 * time.Second

	defaultHTTPTimeout = 20 * time.Second
)

// AuthMode selects how the Authorization header is built.
type AuthMode int

const (
	// AuthApp sends "QQBot <access_token>" using the cached app token.
	AuthApp AuthMode = iota
	// AuthLegacy sends the static "Bot <app_id>.<token>" form. No token cache
	// is involved; the platform treats the credential pair as the token.
	AuthLegacy
)

// Config describes a Client.
type Config struct {
	AppID  string
	Secret string
	// BaseURL must be an https origin; defaults to SandboxBaseURL.
	BaseURL string
	Mode    AuthMode
	// LegacyToken is the bot token used in AuthLegacy mode.
	LegacyToken string
	// HTTPClient overrides the default transport (20s timeout).
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

type accessToken struct {
	value     string
	expiresAt time.Time
}

// Client is the authenticated HTTP API client. All methods are safe for
// concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	appID   string
	secret  string
	mode    AuthMode
	legacy  string
	log     zerolog.Logger

	mu    sync.RWMutex
	token *accessToken
	sf    singleflight.Group
}

// NewClient validates the config and builds a Client. Plain-http base URLs
// are rejected; the platform is HTTPS only.
func NewClient(cfg Config) (*Client, error) {
	base := cfg.BaseURL
	if base == "" {
		base = SandboxBaseURL
	}
	if !strings.HasPrefix(base, "https://") {
		return nil, qerr.New(qerr.KindHTTP, fmt.Sprintf("base url %q is not https", base))
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimSuffix(base, "/"),
		appID:   cfg.AppID,
		secret:  cfg.Secret,
		mode:    cfg.Mode,
		legacy:  cfg.LegacyToken,
		log:     cfg.Logger,
	}, nil
}

// BaseURL returns the configured API origin.
func (c *Client) BaseURL() string { return c.baseURL }

// Authorization resolves the current Authorization header value, refreshing
// the cached token per the lifecycle rules. The gateway uses the same value
// as its Identify token.
func (c *Client) Authorization(ctx context.Context) (string, error) {
	return c.authHeader(ctx)
}

// cachedToken returns the token under the read lock, nil when absent.
func (c *Client) cachedToken() *accessToken {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// authHeader resolves the Authorization header value, refreshing the token
// per the cache policy: synchronously when absent or expired, in the
// background when inside the refresh window, not at all otherwise.
func (c *Client) authHeader(ctx context.Context) (string, error) {
	if c.mode == AuthLegacy {
		return fmt.Sprintf("Bot %s.%s", c.appID, c.legacy), nil
	}

	now := time.Now()
	tok := c.cachedToken()
	switch {
	case tok == nil || !tok.expiresAt.After(now):
		value, err := c.refreshToken(ctx)
		if err != nil {
			return "", err
		}
		return "QQBot " + value, nil
	case tok.expiresAt.Sub(now) < tokenRefreshWindow:
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), defaultHTTPTimeout)
			defer cancel()
			if _, err := c.refreshToken(ctx); err != nil {
				c.log.Warn().Err(err).Msg("background token refresh failed")
			}
		}()
		return "QQBot " + tok.value, nil
	default:
		return "QQBot " + tok.value, nil
	}
}

// refreshToken fetches a fresh access token and replaces the cache. A
// singleflight group collapses concurrent refreshes into one network call.
func (c *Client) refreshToken(ctx context.Context) (string, error) {
	value, err, _ := c.sf.Do("token", func() (any, error) {
		// Double check under the group: another caller may have refreshed
		// while we waited for the flight slot.
		if tok := c.cachedToken(); tok != nil && tok.expiresAt.Sub(time.Now()) >= tokenRefreshWindow {
			return tok.value, nil
		}

		resp, err := c.fetchToken(ctx)
		if err != nil {
			return "", err
		}
		tok := &accessToken{
			value:     resp.AccessToken,
			expiresAt: time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		}
		c.mu.Lock()
		c.token = tok
		c.mu.Unlock()
		c.log.Debug().Time("expires_at", tok.expiresAt).Msg("access token refreshed")
		return tok.value, nil
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

func (c *Client) fetchToken(ctx context.Context) (*GetAccessTokenResponse, error) {
	body, err := json.Marshal(GetAccessTokenRequest{AppID: c.appID, ClientSecret: c.secret})
	if err != nil {
		return nil, qerr.Wrap(qerr.KindSerialization, "encode access token request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/app/access_token", bytes.NewReader(body))
	if err != nil {
		return nil, qerr.Wrap(qerr.KindHTTP, "build access token request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, qerr.Wrap(qerr.KindHTTP, "send access token request", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, qerr.Wrap(qerr.KindIO, "read access token response", err)
	}

	resp, err := DecodeResponse[GetAccessTokenResponse](raw).AsResult()
	if err != nil {
		return nil, qerr.Wrap(qerr.KindUnexpected, "access token response", err)
	}
	if resp.AccessToken == "" {
		return nil, qerr.Unexpected("access token response missing token")
	}
	return &resp, nil
}

// Do sends one authenticated JSON request and decodes the response envelope.
// A nil body sends no payload. The context bounds the whole call.
func Do[Resp any](ctx context.Context, c *Client, method, path string, body any) (Response[Resp], error) {
	auth, err := c.authHeader(ctx)
	if err != nil {
		return Response[Resp]{}, err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return Response[Resp]{}, qerr.Wrap(qerr.KindSerialization, "encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return Response[Resp]{}, qerr.Wrap(qerr.KindHTTP, "build request", err)
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return Response[Resp]{}, qerr.Wrap(qerr.KindHTTP, fmt.Sprintf("%s %s", method, path), err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response[Resp]{}, qerr.Wrap(qerr.KindIO, "read response body", err)
	}

	c.log.Trace().Str("method", method).Str("path", path).Int("status", httpResp.StatusCode).Msg("api call")
	return DecodeResponse[Resp](raw), nil
}
