package api

import (
	"context"
	"sync"
)

// RequestInterceptor runs before a call is dispatched. Fulfilled may replace
// the request; Rejected sees any error raised before dispatch.
type RequestInterceptor struct {
	Fulfilled func(ctx context.Context, req *Request) (*Request, error)
	Rejected  func(ctx context.Context, err error) error
}

// ResponseInterceptor runs after a call completes. Fulfilled sees 2xx
// responses; Rejected sees every failure.
//
// A Rejected hook returns the error to propagate. Returning nil keeps the
// current error: interceptors can add side effects but never swallow a failure.
type ResponseInterceptor struct {
	Fulfilled func(ctx context.Context, resp *Response) (*Response, error)
	Rejected  func(ctx context.Context, err error) error
}

// Interceptors holds the hooks every call through a Client passes through
type Interceptors struct {
	mu       sync.RWMutex
	request  []RequestInterceptor
	response []ResponseInterceptor
}

// UseRequest appends a request interceptor
func (i *Interceptors) UseRequest(in RequestInterceptor) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.request = append(i.request, in)
}

// UseResponse appends a response interceptor
func (i *Interceptors) UseResponse(in ResponseInterceptor) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.response = append(i.response, in)
}

func (i *Interceptors) requestHooks() []RequestInterceptor {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]RequestInterceptor(nil), i.request...)
}

func (i *Interceptors) responseHooks() []ResponseInterceptor {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append([]ResponseInterceptor(nil), i.response...)
}

func (i *Interceptors) fulfillRequest(ctx context.Context, req *Request) (*Request, error) {
	for _, in := range i.requestHooks() {
		if in.Fulfilled == nil {
			continue
		}
		next, err := in.Fulfilled(ctx, req)
		if err != nil {
			return req, err
		}
		if next != nil {
			req = next
		}
	}
	return req, nil
}

func (i *Interceptors) rejectRequest(ctx context.Context, err error) error {
	for _, in := range i.requestHooks() {
		if in.Rejected == nil {
			continue
		}
		if next := in.Rejected(ctx, err); next != nil {
			err = next
		}
	}
	return err
}

func (i *Interceptors) fulfillResponse(ctx context.Context, resp *Response) (*Response, error) {
	for _, in := range i.responseHooks() {
		if in.Fulfilled == nil {
			continue
		}
		next, err := in.Fulfilled(ctx, resp)
		if err != nil {
			return resp, err
		}
		if next != nil {
			resp = next
		}
	}
	return resp, nil
}

func (i *Interceptors) rejectResponse(ctx context.Context, err error) error {
	for _, in := range i.responseHooks() {
		if in.Rejected == nil {
			continue
		}
		if next := in.Rejected(ctx, err); next != nil {
			err = next
		}
	}
	return err
}
