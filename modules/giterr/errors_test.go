package giterr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicatesMatchOwnKindOnly(t *testing.T) {
	cases := []struct {
		err  error
		is   func(error) bool
		name string
	}{
		{NewSshError(errors.New("boom")), IsSshError, "ssh"},
		{NewDirtyWorkspace(), IsDirtyWorkspace, "dirty"},
		{NewInvalidObject("bad %s", "thing"), IsInvalidObject, "invalid-object"},
		{NewPathError("a/b", "not found"), IsPathError, "path"},
		{NewMissingObject("deadbeef"), IsMissingObject, "missing"},
		{NewNoSuchReference("refs/heads/x"), IsNoSuchReference, "no-such-ref"},
		{NewGitProtocolError("unexpected %s", "line"), IsGitProtocolError, "protocol"},
		{NewInvalidPackfile("bad signature"), IsInvalidPackfile, "packfile"},
		{NewMustForcePush("refs/heads/main"), IsMustForcePush, "must-force"},
		{NewUnsupportedByRemote("shallow"), IsUnsupportedByRemote, "unsupported"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.is(tc.err))
			for _, other := range cases {
				if other.name == tc.name {
					continue
				}
				assert.False(t, other.is(tc.err), "%s predicate matched %s error", other.name, tc.name)
			}
		})
	}
}

func TestSshErrorUnwraps(t *testing.T) {
	inner := errors.New("connection reset")
	wrapped := NewSshError(inner)
	assert.Same(t, inner, errors.Unwrap(wrapped))
}

func TestSshErrorNilPassthrough(t *testing.T) {
	assert.Nil(t, NewSshError(nil))
}
