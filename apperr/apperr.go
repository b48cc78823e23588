// Package apperr classifies failures with symbolic codes and HTTP-style
// status numbers. Tasks may use it to build rejection reasons; the pool
// itself never inspects them.
package apperr

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code is a symbolic error classification.
type Code string

const (
	BadRequest           Code = "BAD_REQUEST"
	ParseError           Code = "PARSE_ERROR"
	NotImplemented       Code = "NOT_IMPLEMENTED"
	InternalServerError  Code = "INTERNAL_SERVER_ERROR"
	Unauthorized         Code = "UNAUTHORIZED"
	Forbidden            Code = "FORBIDDEN"
	NotFound             Code = "NOT_FOUND"
	MethodNotSupported   Code = "METHOD_NOT_SUPPORTED"
	Timeout              Code = "TIMEOUT"
	Conflict             Code = "CONFLICT"
	PreconditionFailed   Code = "PRECONDITION_FAILED"
	PayloadTooLarge      Code = "PAYLOAD_TOO_LARGE"
	UnprocessableContent Code = "UNPROCESSABLE_CONTENT"
	TooManyRequests      Code = "TOO_MANY_REQUESTS"
	ClientClosedRequest  Code = "CLIENT_CLOSED_REQUEST"
)

var statusByCode = map[Code]int{
	BadRequest:           400,
	ParseError:           500,
	NotImplemented:       500,
	InternalServerError:  500,
	Unauthorized:         401,
	Forbidden:            403,
	NotFound:             404,
	MethodNotSupported:   405,
	Timeout:              408,
	Conflict:             409,
	PreconditionFailed:   412,
	PayloadTooLarge:      413,
	UnprocessableContent: 422,
	TooManyRequests:      429,
	ClientClosedRequest:  499,
}

// codeByStatus is the reverse table; 500 maps to InternalServerError.
var codeByStatus = map[int]Code{
	400: BadRequest,
	500: InternalServerError,
	401: Unauthorized,
	403: Forbidden,
	404: NotFound,
	405: MethodNotSupported,
	408: Timeout,
	409: Conflict,
	412: PreconditionFailed,
	413: PayloadTooLarge,
	422: UnprocessableContent,
	429: TooManyRequests,
	499: ClientClosedRequest,
}

var grpcByCode = map[Code]codes.Code{
	BadRequest:           codes.InvalidArgument,
	ParseError:           codes.Internal,
	NotImplemented:       codes.Unimplemented,
	InternalServerError:  codes.Internal,
	Unauthorized:         codes.Unauthenticated,
	Forbidden:            codes.PermissionDenied,
	NotFound:             codes.NotFound,
	MethodNotSupported:   codes.Unimplemented,
	Timeout:              codes.DeadlineExceeded,
	Conflict:             codes.Aborted,
	PreconditionFailed:   codes.FailedPrecondition,
	PayloadTooLarge:      codes.ResourceExhausted,
	UnprocessableContent: codes.InvalidArgument,
	TooManyRequests:      codes.ResourceExhausted,
	ClientClosedRequest:  codes.Canceled,
}

// Known reports whether c is one of the defined codes.
func (c Code) Known() bool {
	_, ok := statusByCode[c]
	return ok
}

// Status returns the status number of c, or 500 for an unknown code.
func (c Code) Status() int {
	if s, ok := statusByCode[c]; ok {
		return s
	}
	return 500
}

// CodeForStatus returns the code of a status number.
func CodeForStatus(status int) (Code, bool) {
	c, ok := codeByStatus[status]
	return c, ok
}

// Options describes an [Error] to build with [New]. Every field is optional.
type Options struct {
	Message string
	Code    Code
	Status  int
	// Cause may be an error or any other value; see [New].
	Cause any
}

// Error is a classified failure.
type Error struct {
	Code    Code
	Status  int
	Message string
	Cause   error
}

// New builds an Error.
//
// Cause is coerced to an error: errors are kept, primitive values become
// their text, maps become a [*FieldsError], and nil, functions and channels
// are dropped. The message defaults to the cause's text, then to the code.
// A Status is kept only if it is a known status number. The code defaults
// to the one of the status, the status to the one of the code, and both
// fall back to InternalServerError / 500.
func New(opts Options) *Error {
	cause := causeFrom(opts.Cause)

	message := opts.Message
	if message == "" && cause != nil {
		message = cause.Error()
	}
	if message == "" && opts.Code != "" {
		message = string(opts.Code)
	}
	if message == "" {
		message = string(InternalServerError)
	}

	var statusCode int
	if _, ok := codeByStatus[opts.Status]; ok {
		statusCode = opts.Status
	}

	code := opts.Code
	if code == "" {
		s := statusCode
		if s == 0 {
			s = 500
		}
		code = codeByStatus[s]
	}

	st := statusCode
	if st == 0 {
		c := opts.Code
		if c == "" {
			c = InternalServerError
		}
		st = c.Status()
	}

	return &Error{
		Code:    code,
		Status:  st,
		Message: message,
		Cause:   cause,
	}
}

// Newf is shorthand for New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(Options{Code: code, Message: fmt.Sprintf(format, args...)})
}

// Wrap classifies err under code. It returns a nil error if err is nil, so
// it is safe on a task's success path.
func Wrap(err error, code Code) error {
	if err == nil {
		return nil
	}
	return New(Options{Code: code, Cause: err})
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error with the same code, so sentinel values such as
// New(Options{Code: Timeout}) can be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// GRPCCode maps the error's code to a gRPC status code.
func (e *Error) GRPCCode() codes.Code {
	if c, ok := grpcByCode[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// GRPCStatus lets status.FromError and status.Code recognise the error.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.GRPCCode(), e.Message)
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// StatusOf returns the status of the first *Error in err's chain, or 500
// when err is non-nil and unclassified. It returns 0 for a nil error.
func StatusOf(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 500
}

// FieldsError is the cause built from a map value.
type FieldsError struct {
	Fields map[string]any
}

func (e *FieldsError) Error() string {
	if msg, ok := e.Fields["message"].(string); ok && msg != "" {
		return msg
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return "unknown cause: " + strings.Join(keys, ", ")
}

func causeFrom(v any) error {
	switch c := v.(type) {
	case nil:
		return nil
	case error:
		return c
	case string:
		return errors.New(c)
	case fmt.Stringer:
		return errors.New(c.String())
	case map[string]any:
		fields := make(map[string]any, len(c))
		for k, val := range c {
			fields[k] = val
		}
		return &FieldsError{Fields: fields}
	}

	switch reflect.TypeOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return nil
	case reflect.Pointer:
		if reflect.ValueOf(v).IsNil() {
			return nil
		}
	}
	return errors.New(fmt.Sprint(v))
}
