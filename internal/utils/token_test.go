package utils

import (
	"regexp"
	"testing"
)

var inviteCodePattern = regexp.MustCompile(`^[0-9A-F]{8}$`)

func TestNewInviteCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := NewInviteCode()
		if err != nil {
			t.Fatalf("NewInviteCode() error = %v", err)
		}
		if !inviteCodePattern.MatchString(code) {
			t.Errorf("code %q is not 8 upper-case hex characters", code)
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Errorf("expected mostly distinct codes, got %d unique of 50", len(seen))
	}
}

func TestNormalizeInviteCode(t *testing.T) {
	tests := map[string]string{
		"a1b2c3d4":     "A1B2C3D4",
		"  A1B2C3D4\n": "A1B2C3D4",
		"BADCODE":      "BADCODE",
	}
	for in, want := range tests {
		if got := NormalizeInviteCode(in); got != want {
			t.Errorf("NormalizeInviteCode(%q) = %q, expected %q", in, got, want)
		}
	}
}

func TestNewRefreshToken(t *testing.T) {
	token, hash, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken() error = %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, expected 64", len(token))
	}
	if hash == token {
		t.Error("stored hash must differ from the token")
	}
	if HashToken(token) != hash {
		t.Error("HashToken should reproduce the stored hash")
	}
}
