package credential

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/appraise/internal/errs"
)

const testSecret = "a-very-long-test-signing-secret"

func TestUsername(t *testing.T) {
	assert.Equal(t, "engdeu0101", Username("eng", "deu", 1, 1))
	assert.Equal(t, "engces1a0c", Username("ENG", "ces", 26, 12))
}

func TestGeneratePassword(t *testing.T) {
	p1, err := GeneratePassword(nil)
	require.NoError(t, err)
	p2, err := GeneratePassword(nil)
	require.NoError(t, err)

	assert.Len(t, p1, PasswordLength)
	assert.NotEqual(t, p1, p2)
	for _, r := range p1 {
		assert.True(t, strings.ContainsRune(passwordAlphabet, r))
	}
}

func TestGeneratePassword_ShortReader(t *testing.T) {
	_, err := GeneratePassword(bytes.NewReader([]byte{1}))
	assert.Error(t, err)
}

func TestNewSigner_RequiresSecret(t *testing.T) {
	_, err := NewSigner("")
	assert.ErrorIs(t, err, errs.ErrIssuer)

	_, err = NewSigner("short")
	assert.ErrorIs(t, err, errs.ErrIssuer)
}

func TestSigner_TokenVerify(t *testing.T) {
	s, err := NewSigner(testSecret)
	require.NoError(t, err)

	token := s.Token("engdeu0101", "wmt-demo", "Direct")
	assert.Equal(t, token, s.Token("engdeu0101", "wmt-demo", "Direct"))
	assert.True(t, s.Verify(token, "engdeu0101", "wmt-demo", "Direct"))

	assert.False(t, s.Verify(token, "engdeu0102", "wmt-demo", "Direct"))
	assert.False(t, s.Verify(token, "engdeu0101", "other", "Direct"))
	assert.False(t, s.Verify(token, "engdeu0101", "wmt-demo", "Pairwise"))
	assert.False(t, s.Verify("not base64!", "engdeu0101", "wmt-demo", "Direct"))

	other, err := NewSigner(testSecret + "-rotated")
	require.NoError(t, err)
	assert.False(t, other.Verify(token, "engdeu0101", "wmt-demo", "Direct"))
}

func TestSigner_BoundaryAmbiguity(t *testing.T) {
	s, err := NewSigner(testSecret)
	require.NoError(t, err)
	assert.NotEqual(t, s.Token("ab", "c", "Direct"), s.Token("a", "bc", "Direct"))
}
