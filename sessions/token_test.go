package sessions

import (
	"errors"
	"testing"
	"time"
)

func testKeeper(tb testing.TB, val string) *Keeper {
	keeper, err := NewKeeper([]byte(val))
	if err != nil {
		tb.Fatal(err)
	}
	return keeper
}

func TestIssueAndVerify(t *testing.T) {
	keeper := testKeeper(t, "0123456789abcdef0123456789abcdef")
	who := Identity{ID: "acct-1", Email: "alice@example.com", Username: "alice"}
	token, err := keeper.Issue(who, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := keeper.Verify(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Identity != who {
		t.Fatalf("claims mismatch, got %+v want %+v", claims.Identity, who)
	}
	if claims.TokenID() == "" {
		t.Fatal("issued token should carry a token id")
	}
}

func TestVerifyExpired(t *testing.T) {
	keeper := testKeeper(t, "0123456789abcdef0123456789abcdef")
	token, err := keeper.Issue(Identity{ID: "acct-1"}, -time.Second)
	if err != nil {
		t.Fatal(err)
	}
	_, err = keeper.Verify(token)
	if !errors.As(err, &ExpiredToken{}) {
		t.Fatalf("expected ExpiredToken, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := testKeeper(t, "0123456789abcdef0123456789abcdef")
	verifier := testKeeper(t, "fedcba9876543210fedcba9876543210")
	token, err := issuer.Issue(Identity{ID: "acct-1"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	_, err = verifier.Verify(token)
	if !errors.As(err, &InvalidToken{}) {
		t.Fatalf("expected InvalidToken, got %v", err)
	}
}

func TestVerifyTampered(t *testing.T) {
	keeper := testKeeper(t, "0123456789abcdef0123456789abcdef")
	token, err := keeper.Issue(Identity{ID: "acct-1"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	tampered := token[:len(token)-2] + "xx"
	_, err = keeper.Verify(tampered)
	if !errors.As(err, &InvalidToken{}) {
		t.Fatalf("expected InvalidToken, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	keeper := testKeeper(t, "0123456789abcdef0123456789abcdef")
	for _, token := range []string{"", "not.a.jwt", "garbage"} {
		_, err := keeper.Verify(token)
		if !errors.As(err, &InvalidToken{}) {
			t.Fatalf("expected InvalidToken for %q, got %v", token, err)
		}
	}
}

func TestNewKeeperWithoutSecret(t *testing.T) {
	_, err := NewKeeper(nil)
	if !errors.As(err, &Misconfiguration{}) {
		t.Fatalf("expected Misconfiguration, got %v", err)
	}
}
