package api

import (
	"context"
	"log/slog"

	"github.com/vulnetix/bkctl/internal/auth"
	"github.com/vulnetix/bkctl/internal/logging"
)

// User-facing messages shown by the failure interceptor
const (
	MessageServerFault  = "Backend server is having problems (500), please restart..."
	MessageUnauthorized = "Backend refused the GET (401), please check..."
	MessageUnreachable  = "Server error! Check the backend..."
)

// RootRoute is where the application is sent when the backend is lost
const RootRoute = "/"

// Notifier shows user-visible notifications
type Notifier interface {
	NotifyError(message string)
	NotifyInfo(message string)
}

// Navigator moves the application to another route
type Navigator interface {
	Push(path string)
}

// FailureInterceptor observes every failed call of a client. It notifies the
// user, tears the session down when the backend cannot be reached, and then
// always hands a copy of the original failure back to the caller.
//
// Concurrent failures are not coordinated: each one may clear the session,
// notify and navigate.
type FailureInterceptor struct {
	Store     auth.Store
	Notifier  Notifier
	Navigator Navigator
	Logger    *slog.Logger
}

// NewFailureInterceptor creates the interceptor; nil collaborators are skipped
func NewFailureInterceptor(store auth.Store, notifier Notifier, navigator Navigator, logger *slog.Logger) *FailureInterceptor {
	if logger == nil {
		logger = logging.Logger
	}
	return &FailureInterceptor{
		Store:     store,
		Notifier:  notifier,
		Navigator: navigator,
		Logger:    logger,
	}
}

// Register hooks the interceptor into both phases of every call made through c
func (h *FailureInterceptor) Register(c *Client) {
	c.Interceptors().UseRequest(RequestInterceptor{
		Fulfilled: func(_ context.Context, req *Request) (*Request, error) {
			return req, nil
		},
		Rejected: h.Handle,
	})
	c.Interceptors().UseResponse(ResponseInterceptor{
		Fulfilled: func(_ context.Context, resp *Response) (*Response, error) {
			return resp, nil
		},
		Rejected: h.Handle,
	})
}

// Handle classifies err, performs the side effects for its kind and returns a
// copy of the failure record. It never returns nil.
func (h *FailureInterceptor) Handle(ctx context.Context, err error) error {
	failure, ok := AsFailure(err)
	if !ok {
		failure = &Failure{Err: err}
	}

	switch failure.Kind() {
	case KindServerFault:
		h.notifyError(MessageServerFault)
	case KindUnauthorized:
		h.notifyError(MessageUnauthorized)
	case KindUnreachable:
		h.teardown(ctx, failure)
	default:
		h.log().Debug("backend call failed", "status", failure.Status(), "error", failure)
	}
	return failure.Clone()
}

// teardown runs when there is no response at all
func (h *FailureInterceptor) teardown(ctx context.Context, failure *Failure) {
	h.log().Warn("backend unreachable, clearing session", "error", failure)
	if h.Store != nil {
		if err := h.Store.Clear(ctx); err != nil {
			h.log().Error("failed to clear session", "error", err)
		}
	}
	if h.Notifier != nil {
		h.Notifier.NotifyInfo(MessageUnreachable)
	}
	if h.Navigator != nil {
		h.Navigator.Push(RootRoute)
	}
}

func (h *FailureInterceptor) notifyError(message string) {
	if h.Notifier != nil {
		h.Notifier.NotifyError(message)
	}
}

func (h *FailureInterceptor) log() *slog.Logger {
	if h.Logger == nil {
		return logging.Logger
	}
	return h.Logger
}
