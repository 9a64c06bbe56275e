package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeDatabaseError, "failed to get group")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "DATABASE_ERROR: failed to get group (connection reset)", err.Error())
	assert.Equal(t, "NOT_FOUND: missing", New(CodeNotFound, "missing").Error())
}

func TestHasCodeSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("loading bracket: %w", New(CodeFailedPrecondition, "cannot advance"))

	assert.True(t, HasCode(err, CodeFailedPrecondition))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
}

func TestToGRPCStatus(t *testing.T) {
	cases := map[string]struct {
		err  error
		want codes.Code
	}{
		"precondition": {New(CodeFailedPrecondition, "x"), codes.FailedPrecondition},
		"not member":   {New(CodeNotMember, "x"), codes.PermissionDenied},
		"forbidden":    {New(CodeForbidden, "x"), codes.PermissionDenied},
		"timeout":      {New(CodeTimeout, "x"), codes.DeadlineExceeded},
		"database":     {Wrap(errors.New("io"), CodeDatabaseError, "x"), codes.Internal},
		"plain":        {errors.New("boom"), codes.Internal},
		"status":       {status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, status.Code(ToGRPCStatus(tc.err)))
		})
	}

	assert.NoError(t, ToGRPCStatus(nil))
}

func TestFromGRPCErrorRoundTrip(t *testing.T) {
	err := FromGRPCError(ToGRPCError(New(CodeInvalidInput, "bad slot")))

	assert.True(t, HasCode(err, CodeInvalidInput))
}
