package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MessageAndKind(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrIssuer, "export", cause)

	assert.ErrorIs(t, err, ErrIssuer)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "export: issuer error: disk full", err.Error())
}

func TestNew_FormatsMessage(t *testing.T) {
	err := New(ErrRegistry, "init campaign", "quota %d != %d", 1, 3)

	assert.ErrorIs(t, err, ErrRegistry)
	assert.Equal(t, "init campaign: registry error: quota 1 != 3", err.Error())
}

func TestWrap_NilCause(t *testing.T) {
	assert.NoError(t, Wrap(ErrManifest, "load", nil))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"direct kind", New(ErrNoEligibleTask, "", ""), ErrNoEligibleTask},
		{"wrapped by fmt", fmt.Errorf("outer: %w", New(ErrNotFound, "get", "x")), ErrNotFound},
		{"unknown", errors.New("boom"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}
