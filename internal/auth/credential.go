package auth

import (
	"crypto/subtle"
	"fmt"
)

// CredentialVerifier checks a plaintext password against a stored
// credential. It exists as an interface so the identity lookup logic never
// cares HOW a credential is verified:
//
//   - self-registered accounts carry a bcrypt hash → BcryptVerifier
//   - seeded demo accounts carry no hash and accept one fixed demo
//     password → StaticVerifier
//
// The demo rule is a test fixture, not an auth policy. Isolating it behind
// this interface means swapping in a real verifier (or dropping the demo
// accounts entirely) touches nothing but the wiring.
type CredentialVerifier interface {
	// Verify returns nil if plaintext matches the stored credential.
	Verify(stored, plaintext string) error
}

// BcryptVerifier verifies against a stored bcrypt hash.
type BcryptVerifier struct {
	passwords *PasswordService
}

// NewBcryptVerifier wraps a PasswordService as a CredentialVerifier.
func NewBcryptVerifier(passwords *PasswordService) *BcryptVerifier {
	return &BcryptVerifier{passwords: passwords}
}

func (v *BcryptVerifier) Verify(stored, plaintext string) error {
	if stored == "" {
		return fmt.Errorf("auth: account has no password hash")
	}
	return v.passwords.Verify(stored, plaintext)
}

// StaticVerifier accepts exactly one fixed password, ignoring the stored
// credential. Used only for the seeded demo accounts.
type StaticVerifier struct {
	Secret string
}

func (v *StaticVerifier) Verify(_, plaintext string) error {
	// Constant-time compare — pointless for a demo password, but it keeps
	// the verifier honest if someone repurposes it.
	if subtle.ConstantTimeCompare([]byte(v.Secret), []byte(plaintext)) != 1 {
		return fmt.Errorf("auth: invalid password")
	}
	return nil
}
