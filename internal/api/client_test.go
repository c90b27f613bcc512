package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulnetix/bkctl/internal/auth"
)

func TestDoRunsHooksInOrder(t *testing.T) {
	srv, seen := newBackend(t, http.StatusOK, `{"ok":true}`)
	client := NewClient(srv.URL, auth.NewMemoryStore())

	var order []string
	client.Interceptors().UseRequest(RequestInterceptor{
		Fulfilled: func(_ context.Context, req *Request) (*Request, error) {
			order = append(order, "request-1")
			req.Header = http.Header{"X-Step": []string{"1"}}
			return req, nil
		},
	})
	client.Interceptors().UseRequest(RequestInterceptor{
		Fulfilled: func(_ context.Context, req *Request) (*Request, error) {
			order = append(order, "request-2")
			replaced := req.Clone()
			replaced.Header.Set("X-Step", "2")
			return replaced, nil
		},
	})
	client.Interceptors().UseResponse(ResponseInterceptor{
		Fulfilled: func(_ context.Context, resp *Response) (*Response, error) {
			order = append(order, "response-1")
			return resp, nil
		},
	})

	resp, err := client.Do(context.Background(), &Request{URL: "/ping"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, []string{"request-1", "request-2", "response-1"}, order)

	got := seen.snapshot()
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "2", got.header.Get("X-Step"))
}

func TestDoRejectedHooks(t *testing.T) {
	replacement := errors.New("replaced")

	tests := []struct {
		name     string
		rejected func(ctx context.Context, err error) error
		check    func(t *testing.T, err error)
	}{
		{
			name: "Nil keeps the failure",
			rejected: func(context.Context, error) error {
				return nil
			},
			check: func(t *testing.T, err error) {
				failure, ok := AsFailure(err)
				require.True(t, ok)
				assert.Equal(t, http.StatusTeapot, failure.Status())
			},
		},
		{
			name: "Returned error replaces the failure",
			rejected: func(context.Context, error) error {
				return replacement
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, replacement)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newBackend(t, http.StatusTeapot, `{}`)
			client := NewClient(srv.URL, auth.NewMemoryStore())
			client.Interceptors().UseResponse(ResponseInterceptor{Rejected: tt.rejected})

			resp, err := client.Do(context.Background(), &Request{URL: "/ping"})
			assert.Nil(t, resp)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestDoResponseHookErrorBecomesFailure(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `{"ok":true}`)
	client := NewClient(srv.URL, auth.NewMemoryStore())
	hookErr := errors.New("unexpected payload")

	client.Interceptors().UseResponse(ResponseInterceptor{
		Fulfilled: func(context.Context, *Response) (*Response, error) {
			return nil, hookErr
		},
	})
	var rejected error
	client.Interceptors().UseResponse(ResponseInterceptor{
		Rejected: func(_ context.Context, err error) error {
			rejected = err
			return err
		},
	})

	_, err := client.Do(context.Background(), &Request{URL: "/ping"})
	require.Error(t, err)
	assert.ErrorIs(t, err, hookErr)
	assert.Same(t, rejected, err)

	failure, ok := AsFailure(err)
	require.True(t, ok)
	require.NotNil(t, failure.Response)
	assert.Equal(t, http.StatusOK, failure.Response.Status)
}

func TestDoRequestHookErrorSkipsDispatch(t *testing.T) {
	srv, seen := newBackend(t, http.StatusOK, `{}`)
	client := NewClient(srv.URL, auth.NewMemoryStore())
	hookErr := errors.New("blocked")

	client.Interceptors().UseRequest(RequestInterceptor{
		Fulfilled: func(context.Context, *Request) (*Request, error) {
			return nil, hookErr
		},
	})

	_, err := client.Do(context.Background(), &Request{URL: "/ping"})
	assert.ErrorIs(t, err, hookErr)
	assert.Equal(t, 0, seen.snapshot().request)
}

func TestFailureAsError(t *testing.T) {
	tests := []struct {
		name             string
		failure          *Failure
		expectedTextCode string
		expectedCode     int
	}{
		{
			name:             "Server fault",
			failure:          &Failure{Response: &Response{Status: http.StatusInternalServerError}, Config: &Request{URL: "/x"}},
			expectedTextCode: TextCodeServerFault,
			expectedCode:     http.StatusInternalServerError,
		},
		{
			name:             "Unauthorized",
			failure:          &Failure{Response: &Response{Status: http.StatusUnauthorized}, Config: &Request{URL: "/x"}},
			expectedTextCode: TextCodeUnauthorized,
			expectedCode:     http.StatusUnauthorized,
		},
		{
			name:             "Unreachable",
			failure:          &Failure{Err: errConnectionRefused, Config: &Request{URL: "/x"}},
			expectedTextCode: TextCodeUnreachable,
			expectedCode:     http.StatusBadGateway,
		},
		{
			name:             "Other status",
			failure:          &Failure{Response: &Response{Status: http.StatusNotFound}},
			expectedTextCode: TextCodeRequestFailed,
			expectedCode:     http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.failure.AsError()
			assert.Equal(t, tt.expectedTextCode, err.TextCode)
			assert.Equal(t, tt.expectedCode, err.Code)
			assert.Equal(t, string(tt.failure.Kind()), err.Metadata["kind"])
		})
	}
}

func TestFailureError(t *testing.T) {
	failure := &Failure{
		Response: &Response{Status: http.StatusNotFound},
		Config:   &Request{Method: http.MethodGet, BaseURL: "http://localhost:8080", URL: "/api/items"},
	}
	assert.Equal(t, "GET http://localhost:8080/api/items: request failed with status 404", failure.Error())

	failure = &Failure{Err: errConnectionRefused}
	assert.Equal(t, "request: "+errConnectionRefused.Error(), failure.Error())
}
