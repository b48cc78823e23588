package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/baxromumarov/batchpool"
)

func TestCodeStatus(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{BadRequest, 400},
		{ParseError, 500},
		{NotImplemented, 500},
		{InternalServerError, 500},
		{Unauthorized, 401},
		{Forbidden, 403},
		{NotFound, 404},
		{MethodNotSupported, 405},
		{Timeout, 408},
		{Conflict, 409},
		{PreconditionFailed, 412},
		{PayloadTooLarge, 413},
		{UnprocessableContent, 422},
		{TooManyRequests, 429},
		{ClientClosedRequest, 499},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.True(t, tt.code.Known())
			assert.Equal(t, tt.status, tt.code.Status())
		})
	}

	assert.False(t, Code("TEAPOT").Known())
	assert.Equal(t, 500, Code("TEAPOT").Status())
}

func TestCodeForStatus(t *testing.T) {
	c, ok := CodeForStatus(404)
	assert.True(t, ok)
	assert.Equal(t, NotFound, c)

	c, ok = CodeForStatus(500)
	assert.True(t, ok)
	assert.Equal(t, InternalServerError, c)

	_, ok = CodeForStatus(418)
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want Error
	}{
		{
			name: "empty",
			opts: Options{},
			want: Error{Code: InternalServerError, Status: 500, Message: "INTERNAL_SERVER_ERROR"},
		},
		{
			name: "code only",
			opts: Options{Code: Timeout},
			want: Error{Code: Timeout, Status: 408, Message: "TIMEOUT"},
		},
		{
			name: "status only",
			opts: Options{Status: 409},
			want: Error{Code: Conflict, Status: 409, Message: "INTERNAL_SERVER_ERROR"},
		},
		{
			name: "unknown status is dropped",
			opts: Options{Status: 418, Code: NotFound},
			want: Error{Code: NotFound, Status: 404, Message: "NOT_FOUND"},
		},
		{
			name: "explicit status wins over code",
			opts: Options{Status: 400, Code: ParseError, Message: "bad json"},
			want: Error{Code: ParseError, Status: 400, Message: "bad json"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, &tt.want, New(tt.opts))
		})
	}
}

func TestNewCause(t *testing.T) {
	root := errors.New("disk full")
	e := New(Options{Cause: root})
	assert.Equal(t, "disk full", e.Message)
	assert.ErrorIs(t, e, root)

	e = New(Options{Cause: "plain text", Code: BadRequest})
	assert.Equal(t, "plain text", e.Message)
	require.Error(t, e.Cause)

	e = New(Options{Cause: 42})
	assert.Equal(t, "42", e.Message)

	e = New(Options{Cause: map[string]any{"message": "from map", "field": "x"}})
	var fe *FieldsError
	require.ErrorAs(t, e, &fe)
	assert.Equal(t, "from map", e.Message)

	e = New(Options{Cause: map[string]any{"b": 1, "a": 2}})
	assert.Equal(t, "unknown cause: a, b", e.Message)

	for _, dropped := range []any{func() {}, make(chan int), (*int)(nil)} {
		e = New(Options{Cause: dropped, Code: Forbidden})
		assert.Nil(t, e.Cause, "%T", dropped)
		assert.Equal(t, "FORBIDDEN", e.Message)
	}
}

func TestWrapAndInspect(t *testing.T) {
	assert.NoError(t, Wrap(nil, NotFound))

	root := errors.New("no such row")
	err := fmt.Errorf("load user: %w", Wrap(root, NotFound))

	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, NotFound, code)
	assert.Equal(t, 404, StatusOf(err))
	assert.ErrorIs(t, err, root)
	assert.ErrorIs(t, err, New(Options{Code: NotFound}), "errors.Is matches on code")
	assert.NotErrorIs(t, err, New(Options{Code: Conflict}))

	_, ok = CodeOf(root)
	assert.False(t, ok)
	assert.Equal(t, 500, StatusOf(root))
	assert.Equal(t, 0, StatusOf(nil))
}

func TestNewf(t *testing.T) {
	e := Newf(TooManyRequests, "retry in %ds", 3)
	assert.Equal(t, "retry in 3s", e.Error())
	assert.Equal(t, 429, e.Status)
}

func TestGRPC(t *testing.T) {
	e := Newf(Timeout, "upstream slow")
	assert.Equal(t, codes.DeadlineExceeded, e.GRPCCode())

	st, ok := status.FromError(e)
	require.True(t, ok)
	assert.Equal(t, codes.DeadlineExceeded, st.Code())
	assert.Equal(t, "upstream slow", st.Message())

	assert.Equal(t, codes.NotFound, status.Code(fmt.Errorf("wrapped: %w", Wrap(errors.New("x"), NotFound))))
	assert.Equal(t, codes.Unknown, (&Error{Code: "CUSTOM"}).GRPCCode())
}

func TestWrapOnTaskSuccessPath(t *testing.T) {
	load := func(err error) batchpool.Task[int] {
		return func(context.Context) (int, error) {
			return 1, Wrap(err, Timeout)
		}
	}

	p, err := batchpool.New[int](batchpool.WithFailFast())
	require.NoError(t, err)

	outcomes, err := p.Enqueue(load(nil), load(nil)).Process(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.True(t, o.Fulfilled())
	}

	outcomes, err = p.Enqueue(load(errors.New("slow backend"))).Process(context.Background())
	assert.Empty(t, outcomes)
	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, Timeout, code)
	assert.EqualError(t, batchpool.CauseOf(err), "slow backend")
}
