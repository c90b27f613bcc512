package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request describes one outgoing call. It is cloned before any mutation and
// is not retained after dispatch.
type Request struct {
	Method  string
	URL     string // path relative to BaseURL, or an absolute URL
	BaseURL string
	Params  url.Values
	Header  http.Header

	// Data is sent as-is when it is []byte, string or io.Reader; anything
	// else is JSON-encoded.
	Data interface{}

	// WithCredentials asks for the session bearer token to be attached
	WithCredentials bool
}

// Response is a completed 2xx exchange, or the response carried by a Failure
type Response struct {
	Status  int
	Header  http.Header
	Body    []byte
	Request *Request
}

// JSON decodes the response body into v
func (r *Response) JSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Clone returns a copy that shares no maps with r
func (r *Request) Clone() *Request {
	if r == nil {
		return &Request{}
	}
	cloned := *r
	if r.Header != nil {
		cloned.Header = r.Header.Clone()
	}
	if r.Params != nil {
		cloned.Params = make(url.Values, len(r.Params))
		for key, values := range r.Params {
			cloned.Params[key] = append([]string(nil), values...)
		}
	}
	return &cloned
}

// Clone returns a deep copy of the response
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	cloned := *r
	if r.Header != nil {
		cloned.Header = r.Header.Clone()
	}
	if r.Body != nil {
		cloned.Body = append([]byte(nil), r.Body...)
	}
	if r.Request != nil {
		cloned.Request = r.Request.Clone()
	}
	return &cloned
}

// FullURL joins BaseURL and URL and merges Params into the query string
func (r *Request) FullURL() (string, error) {
	target := r.URL
	if !isAbsoluteURL(target) && r.BaseURL != "" {
		target = combineURLs(r.BaseURL, target)
	}
	if len(r.Params) == 0 {
		return target, nil
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid request url %q: %w", target, err)
	}
	query := parsed.Query()
	for key, values := range r.Params {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (r *Request) build(ctx context.Context) (*http.Request, error) {
	target, err := r.FullURL()
	if err != nil {
		return nil, err
	}
	if target == "" {
		return nil, fmt.Errorf("request url is required")
	}

	body, contentType, err := encodeData(r.Data)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if r.Header != nil {
		httpReq.Header = r.Header.Clone()
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	return httpReq, nil
}

func encodeData(data interface{}) (io.Reader, string, error) {
	switch v := data.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "", nil
	case io.Reader:
		return v, "", nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
		}
		return bytes.NewReader(encoded), "application/json", nil
	}
}

func isAbsoluteURL(raw string) bool {
	parsed, err := url.Parse(raw)
	return err == nil && parsed.Scheme != "" && parsed.Host != ""
}

func combineURLs(baseURL, relative string) string {
	if relative == "" {
		return baseURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(relative, "/")
}
