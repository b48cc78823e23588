package batchpool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	ok := Fulfilled(7)
	assert.True(t, ok.Fulfilled())
	assert.False(t, ok.Rejected())
	assert.Equal(t, StatusFulfilled, ok.Status())
	assert.Equal(t, "fulfilled", ok.Status().String())

	v, err := ok.Get()
	assert.Equal(t, 7, v)
	assert.NoError(t, err)

	reason := errors.New("nope")
	bad := Rejected[int](reason)
	assert.True(t, bad.Rejected())
	assert.Equal(t, StatusRejected, bad.Status())
	assert.Equal(t, "rejected", bad.Status().String())

	v, err = bad.Get()
	assert.Zero(t, v)
	assert.Same(t, reason, err)
}

func TestPolicyString(t *testing.T) {
	assert.Equal(t, "collect", Collect.String())
	assert.Equal(t, "fail-fast", FailFast.String())
	assert.Equal(t, "unknown", Policy(9).String())
}
