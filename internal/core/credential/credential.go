// Package credential derives annotator usernames, generates passwords, and
// signs confirmation tokens for external crowd-sourcing integrations.
package credential

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"strings"

	"golang.org/x/crypto/hkdf"

	"github.com/example/appraise/internal/errs"
)

// PasswordLength is the length of generated passwords.
const PasswordLength = 12

// passwordAlphabet omits look-alike characters (0/O, 1/l/I).
const passwordAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	tokenSalt = "appraise/confirmation-token/v1"
	tokenInfo = "task confirmation"
	minSecret = 16
)

// Username derives the login name of the index-th (1-based) annotator of a
// language pair within a campaign, e.g. engdeu0101.
func Username(source, target string, campaignNo, index int) string {
	return fmt.Sprintf("%s%s%02x%02x", strings.ToLower(source), strings.ToLower(target), campaignNo, index)
}

// GeneratePassword draws a password from r (crypto/rand.Reader when nil).
func GeneratePassword(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	max := big.NewInt(int64(len(passwordAlphabet)))
	var b strings.Builder
	b.Grow(PasswordLength)
	for i := 0; i < PasswordLength; i++ {
		n, err := rand.Int(r, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// Signer issues and verifies confirmation tokens bound to
// (user, campaign, task type). Verification needs only the key.
type Signer struct {
	key []byte
}

// NewSigner derives the token key from the configured secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errs.New(errs.ErrIssuer, "token signer", "no signing key configured (set secret_key)")
	}
	if len(secret) < minSecret {
		return nil, errs.New(errs.ErrIssuer, "token signer", "signing key must be at least %d bytes", minSecret)
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), []byte(tokenSalt), []byte(tokenInfo)), key); err != nil {
		return nil, errs.Wrap(errs.ErrIssuer, "token signer", err)
	}
	return &Signer{key: key}, nil
}

// Token returns the confirmation token for the triple.
func (s *Signer) Token(username, campaign, taskType string) string {
	return base64.RawURLEncoding.EncodeToString(s.mac(username, campaign, taskType))
}

// Verify reports whether token was issued for the triple by this key.
func (s *Signer) Verify(token, username, campaign, taskType string) bool {
	got, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return hmac.Equal(got, s.mac(username, campaign, taskType))
}

func (s *Signer) mac(username, campaign, taskType string) []byte {
	h := hmac.New(sha256.New, s.key)
	// Length-prefix each part so ("ab","c") and ("a","bc") differ.
	for _, part := range []string{username, campaign, taskType} {
		fmt.Fprintf(h, "%d:%s;", len(part), part)
	}
	return h.Sum(nil)
}
