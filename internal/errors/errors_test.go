package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsCodeAndField(t *testing.T) {
	base := ValidationError("alpha", "must lie in (0, 1)")
	wrapped := Wrap(base, "decode failed")

	assert.Equal(t, CodeValidationError, GetCode(wrapped))
	assert.Equal(t, "alpha", GetField(wrapped))
	assert.Equal(t, "decode failed: alpha: must lie in (0, 1)", wrapped.Error())
	assert.True(t, stderrors.Is(wrapped, ErrValidation))
}

func TestWrap_PlainErrorIsInternal(t *testing.T) {
	wrapped := Wrap(fmt.Errorf("disk full"), "export failed")
	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.Nil(t, Wrap(nil, "unused"))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeConfigInvalid, fmt.Errorf("PORT is empty"))
	assert.True(t, HasCode(err, CodeConfigInvalid))
	assert.Contains(t, err.Error(), "PORT is empty")

	err = WithCode(CodeInfeasible, BracketingFailure("no sign change"))
	assert.True(t, HasCode(err, CodeInfeasible))
	assert.Nil(t, WithCode(CodeInfeasible, nil))
}

func TestSentinels(t *testing.T) {
	err := fmt.Errorf("solve: %w", Infeasible("power %g unreachable", 0.99))
	assert.ErrorIs(t, err, ErrInfeasible)
	assert.NotErrorIs(t, err, ErrNoConvergence)
	assert.Equal(t, CodeInfeasible, GetCode(err))
}

func TestUnknownCode(t *testing.T) {
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
	assert.Equal(t, "", GetField(fmt.Errorf("plain")))
	assert.False(t, HasCode(nil, CodeInternalError))
}
