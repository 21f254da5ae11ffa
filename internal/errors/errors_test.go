package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := PlausibilityTrap(-15.5, -10)
	wrapped := Wrap(base, "pre-validation gate")

	assert.Equal(t, CodePlausibilityTrap, GetCode(wrapped))
	assert.True(t, IsHard(wrapped))
	assert.False(t, IsRetryable(wrapped))
	assert.True(t, stderrors.Is(wrapped, base))
}

func TestGetCodeThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("gate: %w", SoftViolation("concentration", "above max"))
	assert.Equal(t, CodeSoftViolation, GetCode(err))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}

func TestWithPhase(t *testing.T) {
	err := WithPhase(HardPhysical("vapor_pressure", "exceeds total pressure"), "pre_validation_gate")
	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, "pre_validation_gate", appErr.Phase)
	assert.Equal(t, "vapor_pressure", appErr.Criterion)

	again := WithPhase(err, "generation")
	appErr, _ = As(again)
	assert.Equal(t, "pre_validation_gate", appErr.Phase)

	plain := WithPhase(stderrors.New("boom"), "enhancement")
	assert.Equal(t, CodeInternalError, GetCode(plain))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		err       error
		hard      bool
		retryable bool
	}{
		{SoftViolation("x", "m"), false, true},
		{HardPhysical("x", "m"), true, false},
		{PlausibilityTrap(-20, -10), true, false},
		{DataAuthenticity("ds", nil), true, false},
		{PhaseTimeout("generation", nil), false, true},
		{ConfigInvalid("bad"), true, false},
		{ExternalServiceError("llm", nil), false, true},
		{ExternalPermanentError("llm", nil), true, false},
		{Cancelled("generation"), false, false},
	}
	for _, tt := range tests {
		if got := IsHard(tt.err); got != tt.hard {
			t.Errorf("IsHard(%s) = %v, want %v", GetCode(tt.err), got, tt.hard)
		}
		if got := IsRetryable(tt.err); got != tt.retryable {
			t.Errorf("IsRetryable(%s) = %v, want %v", GetCode(tt.err), got, tt.retryable)
		}
	}
}
