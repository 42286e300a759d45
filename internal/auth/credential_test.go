package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptVerifier(t *testing.T) {
	passwords := NewPasswordServiceForTest(bcrypt.MinCost)
	v := NewBcryptVerifier(passwords)

	hash, err := passwords.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := v.Verify(hash, "secret123"); err != nil {
		t.Errorf("Verify() with correct password error = %v", err)
	}
	if err := v.Verify(hash, "wrong"); err == nil {
		t.Error("Verify() should fail with the wrong password")
	}
	if err := v.Verify("", "secret123"); err == nil {
		t.Error("Verify() should fail when no hash is stored")
	}
}

func TestStaticVerifier(t *testing.T) {
	v := &StaticVerifier{Secret: "demo-pass"}

	if err := v.Verify("ignored", "demo-pass"); err != nil {
		t.Errorf("Verify() with the fixed password error = %v", err)
	}
	if err := v.Verify("ignored", "other"); err == nil {
		t.Error("Verify() should fail with any other password")
	}
}
