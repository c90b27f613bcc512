package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/vulnetix/bkctl/internal/auth"
)

// Send issues req against the configured backend. With WithCredentials set,
// the session token read from the store at call time is attached as a bearer
// token. A missing session still sends the call with an empty bearer value;
// the backend's rejection is left to the interceptors.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	config := req.Clone()
	config.BaseURL = c.BaseURL
	if config.WithCredentials {
		if config.Header == nil {
			config.Header = http.Header{}
		}
		config.Header.Set("Authorization", "Bearer "+c.accessToken(ctx))
	}
	return c.Do(ctx, config)
}

// Get is Send for a GET on path
func (c *Client) Get(ctx context.Context, path string, withCredentials bool) (*Response, error) {
	return c.Send(ctx, &Request{Method: http.MethodGet, URL: path, WithCredentials: withCredentials})
}

func (c *Client) accessToken(ctx context.Context) string {
	if c.Store == nil {
		return ""
	}
	session, err := c.Store.Get(ctx)
	if err != nil {
		if !errors.Is(err, auth.ErrNoSession) {
			c.logger.Warn("failed to read session", "error", err)
		}
		return ""
	}
	return session.AccessToken
}
