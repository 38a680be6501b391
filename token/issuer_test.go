package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/taskhive/authcore/roles"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func testIssuer(t *testing.T, now func() time.Time) *Issuer {
	t.Helper()

	issuer, err := NewIssuer(Config{
		SigningKey: testKey,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Issuer:     "authcore-test",
		Now:        now,
	})
	if err != nil {
		t.Fatalf("NewIssuer error: %v", err)
	}
	return issuer
}

func TestIssueAndDecodeAccess(t *testing.T) {
	issuer := testIssuer(t, nil)

	signed, issued, err := issuer.IssueAccess("u1", roles.Developer)
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}
	if len(strings.Split(signed, ".")) != 3 {
		t.Fatalf("expected three-segment compact form, got %q", signed)
	}

	claims, err := issuer.Decode(signed)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if claims.Subject != "u1" || claims.Role != roles.Developer {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.TokenType != TypeAccess {
		t.Fatalf("unexpected token type: %s", claims.TokenType)
	}
	if claims.ID == "" || claims.ID != issued.ID {
		t.Fatalf("token id mismatch: %q vs %q", claims.ID, issued.ID)
	}
}

func TestRefreshTokensCarryDistinctIDs(t *testing.T) {
	issuer := testIssuer(t, nil)

	_, first, err := issuer.IssueRefresh("u1", roles.Viewer)
	if err != nil {
		t.Fatalf("IssueRefresh error: %v", err)
	}
	_, second, err := issuer.IssueRefresh("u1", roles.Viewer)
	if err != nil {
		t.Fatalf("IssueRefresh error: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("token identifiers must be unique per issuance")
	}
	if first.TokenType != TypeRefresh {
		t.Fatalf("unexpected token type: %s", first.TokenType)
	}
}

func TestDecodeExpired(t *testing.T) {
	current := time.Now()
	issuer := testIssuer(t, func() time.Time { return current })

	signed, issued, err := issuer.IssueAccess("u1", roles.Developer)
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}

	current = current.Add(16 * time.Minute)

	claims, err := issuer.Decode(signed)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	// Expired-but-authentic tokens keep their claims so logout can revoke them.
	if claims.ID != issued.ID {
		t.Fatalf("expired decode lost token id: %+v", claims)
	}
}

func TestDecodeTamperedSignature(t *testing.T) {
	issuer := testIssuer(t, nil)

	signed, _, err := issuer.IssueAccess("u1", roles.Admin)
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}

	other, err := NewIssuer(Config{
		SigningKey: []byte("ffffffffffffffffffffffffffffffff"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Issuer:     "authcore-test",
	})
	if err != nil {
		t.Fatalf("NewIssuer error: %v", err)
	}

	if _, err := other.Decode(signed); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	issuer := testIssuer(t, nil)

	for _, bogus := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		if _, err := issuer.Decode(bogus); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Decode(%q): expected ErrMalformed, got %v", bogus, err)
		}
	}
}

func TestIssueRejectsUnknownRole(t *testing.T) {
	issuer := testIssuer(t, nil)

	if _, _, err := issuer.IssueAccess("u1", roles.Role("superuser")); !errors.Is(err, roles.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestNewIssuerRejectsShortKey(t *testing.T) {
	_, err := NewIssuer(Config{
		SigningKey: []byte("short"),
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	if err == nil {
		t.Fatal("expected short signing key to be rejected")
	}
}

func TestNewIssuerRejectsInvertedTTLs(t *testing.T) {
	_, err := NewIssuer(Config{
		SigningKey: testKey,
		AccessTTL:  time.Hour,
		RefreshTTL: time.Minute,
	})
	if err == nil {
		t.Fatal("expected refresh TTL shorter than access TTL to be rejected")
	}
}
