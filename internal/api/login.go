package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/vulnetix/bkctl/internal/auth"
)

// TokenPath is the password grant endpoint on the backend
const TokenPath = "/oauth/token"

// tokenSchemaURL only names the in-memory resource, nothing is fetched
const tokenSchemaURL = "https://bkctl.local/schemas/token.json"

const tokenSchema = `{
	"type": "object",
	"required": ["access_token"],
	"properties": {
		"access_token": {"type": "string", "minLength": 1},
		"token_type": {"type": "string"},
		"refresh_token": {"type": "string"},
		"expires_in": {"type": "integer"},
		"scope": {"type": "string"}
	}
}`

var (
	tokenSchemaOnce     sync.Once
	compiledTokenSchema *jsonschema.Schema
	tokenSchemaErr      error
)

// LoginData holds the user credentials exchanged for a token
type LoginData struct {
	Username string
	Password string
}

// Login exchanges the user credentials for an access token with a password
// grant. The result is returned as the transport produced it; failures go
// through the interceptors like any other call.
func (c *Client) Login(ctx context.Context, data LoginData) (*Response, error) {
	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	header.Set("Authorization", "Basic "+basicCredentials(c.ClientID, c.ClientSecret))

	return c.Do(ctx, &Request{
		Method:  http.MethodPost,
		BaseURL: c.BaseURL,
		URL:     TokenPath,
		Data:    passwordGrantBody(data),
		Header:  header,
	})
}

// passwordGrantBody keeps the field order username, password, grant_type
func passwordGrantBody(data LoginData) string {
	return "username=" + formEscape(data.Username) +
		"&password=" + formEscape(data.Password) +
		"&grant_type=password"
}

// formEscape escapes spaces as %20 rather than +
func formEscape(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}

func basicCredentials(clientID, clientSecret string) string {
	return base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
}

// DecodeSession validates a token endpoint response and converts it to a session
func DecodeSession(resp *Response) (*auth.Session, error) {
	if resp == nil {
		return nil, fmt.Errorf("token response is empty")
	}
	schema, err := tokenPayloadSchema()
	if err != nil {
		return nil, err
	}

	payload, err := jsonschema.UnmarshalJSON(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return nil, fmt.Errorf("invalid token response: %w", err)
	}

	var session auth.Session
	if err := json.Unmarshal(resp.Body, &session); err != nil {
		return nil, err
	}
	session.IssuedAt = time.Now().UTC()
	return &session, nil
}

func tokenPayloadSchema() (*jsonschema.Schema, error) {
	tokenSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(tokenSchema))
		if err != nil {
			tokenSchemaErr = fmt.Errorf("failed to parse token schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(tokenSchemaURL, doc); err != nil {
			tokenSchemaErr = fmt.Errorf("failed to load token schema: %w", err)
			return
		}
		compiledTokenSchema, tokenSchemaErr = compiler.Compile(tokenSchemaURL)
	})
	return compiledTokenSchema, tokenSchemaErr
}
