package api

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Kind classifies a failed call
type Kind string

const (
	KindServerFault  Kind = "server_fault" // the backend answered 500
	KindUnauthorized Kind = "unauthorized" // the backend answered 401
	KindUnreachable  Kind = "unreachable"  // no response at all
	KindOther        Kind = "other"
)

// Text codes used when a failure is reported as a go-errors envelope
const (
	TextCodeServerFault   = "BACKEND_SERVER_FAULT"
	TextCodeUnauthorized  = "BACKEND_UNAUTHORIZED"
	TextCodeUnreachable   = "BACKEND_UNREACHABLE"
	TextCodeRequestFailed = "BACKEND_REQUEST_FAILED"
)

// Failure is produced for every call that did not end with a 2xx response.
// Response is nil when the backend was never reached.
type Failure struct {
	Response *Response
	Config   *Request
	Err      error
}

func (f *Failure) Error() string {
	target := f.target()
	switch {
	case f.Response != nil:
		return fmt.Sprintf("%s: request failed with status %d", target, f.Response.Status)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", target, f.Err)
	default:
		return fmt.Sprintf("%s: backend unreachable", target)
	}
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Status returns the response status, 0 without a response
func (f *Failure) Status() int {
	if f.Response == nil {
		return 0
	}
	return f.Response.Status
}

// Kind classifies the failure by the presence and status of its response
func (f *Failure) Kind() Kind {
	switch {
	case f.Response == nil:
		return KindUnreachable
	case f.Response.Status == http.StatusInternalServerError:
		return KindServerFault
	case f.Response.Status == http.StatusUnauthorized:
		return KindUnauthorized
	default:
		return KindOther
	}
}

// Clone returns a copy of the failure record
func (f *Failure) Clone() *Failure {
	cloned := &Failure{
		Response: f.Response.Clone(),
		Err:      f.Err,
	}
	if f.Config != nil {
		cloned.Config = f.Config.Clone()
	}
	return cloned
}

// AsError converts the failure to a categorized error envelope
func (f *Failure) AsError() *goerrors.Error {
	category, textCode, code := goerrors.CategoryOperation, TextCodeRequestFailed, f.Status()
	switch f.Kind() {
	case KindServerFault:
		category, textCode = goerrors.CategoryExternal, TextCodeServerFault
	case KindUnauthorized:
		category, textCode = goerrors.CategoryAuth, TextCodeUnauthorized
	case KindUnreachable:
		category, textCode, code = goerrors.CategoryExternal, TextCodeUnreachable, http.StatusBadGateway
	}

	metadata := map[string]any{"kind": string(f.Kind())}
	if f.Config != nil {
		metadata["method"] = f.Config.Method
		metadata["url"] = f.Config.URL
	}

	var err *goerrors.Error
	if f.Err != nil {
		err = goerrors.Wrap(f.Err, category, f.Error())
	} else {
		err = goerrors.New(f.Error(), category)
	}
	return err.WithCode(code).WithTextCode(textCode).WithMetadata(metadata)
}

func (f *Failure) target() string {
	if f.Config == nil {
		return "request"
	}
	method := f.Config.Method
	if method == "" {
		method = http.MethodGet
	}
	target, err := f.Config.FullURL()
	if err != nil {
		target = f.Config.URL
	}
	return method + " " + target
}

// AsFailure reports whether err is, or wraps, a *Failure
func AsFailure(err error) (*Failure, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}

// asFailure wraps err into a failure without response unless it already is one
func asFailure(err error, config *Request) *Failure {
	if failure, ok := AsFailure(err); ok {
		return failure
	}
	return &Failure{Config: config, Err: err}
}
