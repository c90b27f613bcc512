package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vulnetix/bkctl/internal/auth"
	"github.com/vulnetix/bkctl/internal/logging"
)

// HTTPDoer is the transport the client dispatches through
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the shared transport for every call to the backend. Login, Send
// and raw Do calls all pass through the same interceptor chains.
type Client struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   HTTPDoer
	Store        auth.Store

	interceptors *Interceptors
	logger       *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the transport
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.HTTPClient = doer
	}
}

// WithClientCredentials sets the client identity used by Login
func WithClientCredentials(clientID, clientSecret string) Option {
	return func(c *Client) {
		c.ClientID = clientID
		c.ClientSecret = clientSecret
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the backend at baseURL reading the session from store
func NewClient(baseURL string, store auth.Store, options ...Option) *Client {
	c := &Client{
		BaseURL:      baseURL,
		HTTPClient:   &http.Client{},
		Store:        store,
		interceptors: &Interceptors{},
		logger:       logging.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Logger
	}
	return c
}

// Interceptors returns the hooks shared by every call of this client
func (c *Client) Interceptors() *Interceptors {
	return c.interceptors
}

// Do dispatches req through the interceptor chains. Any result outside 2xx
// is returned as a *Failure, possibly replaced by a Rejected hook.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.WithCall(c.logger, uuid.NewString())

	config := req.Clone()
	if config.BaseURL == "" {
		config.BaseURL = c.BaseURL
	}

	config, httpReq, err := c.prepare(ctx, config)
	if err != nil {
		log.Debug("request rejected before dispatch", "method", config.Method, "url", config.URL, "error", err)
		return nil, c.interceptors.rejectRequest(ctx, asFailure(err, config))
	}

	started := time.Now()
	resp, err := c.dispatch(httpReq, config)
	log = log.With("method", httpReq.Method, "url", httpReq.URL.String(), "duration", time.Since(started))
	if err != nil {
		var failure *Failure
		if errors.As(err, &failure) && failure.Response != nil {
			log.Debug("request failed", "status", failure.Response.Status)
		} else {
			log.Debug("request failed without response", "error", err)
		}
		return nil, c.interceptors.rejectResponse(ctx, err)
	}
	log.Debug("request completed", "status", resp.Status)

	result, err := c.interceptors.fulfillResponse(ctx, resp)
	if err != nil {
		failure, ok := AsFailure(err)
		if !ok {
			failure = &Failure{Response: resp, Config: config, Err: err}
		}
		return nil, c.interceptors.rejectResponse(ctx, failure)
	}
	return result, nil
}

func (c *Client) prepare(ctx context.Context, config *Request) (*Request, *http.Request, error) {
	config, err := c.interceptors.fulfillRequest(ctx, config)
	if err != nil {
		return config, nil, err
	}
	httpReq, err := config.build(ctx)
	if err != nil {
		return config, nil, err
	}
	return config, httpReq, nil
}

func (c *Client) dispatch(httpReq *http.Request, config *Request) (*Response, error) {
	httpResp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &Failure{Config: config, Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &Failure{Config: config, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	resp := &Response{
		Status:  httpResp.StatusCode,
		Header:  httpResp.Header,
		Body:    body,
		Request: config,
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, &Failure{Response: resp, Config: config}
	}
	return resp, nil
}
