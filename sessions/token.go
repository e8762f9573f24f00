package sessions

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// LoginValidity is the window given to tokens issued by a
	// password login.
	LoginValidity = 7 * 24 * time.Hour

	// BootstrapValidity is the window given to the cookie written by
	// the sign-up bootstrap endpoint.
	BootstrapValidity = 365 * 24 * time.Hour
)

type (
	// Identity is the minimal claim set a session token carries.
	Identity struct {
		ID       string `json:"uid"`
		Email    string `json:"email"`
		Username string `json:"username"`
	}

	// Claims binds an Identity to the registered jwt claims (expiry,
	// issued-at and the token id used by the deny-list).
	Claims struct {
		jwt.RegisteredClaims
		Identity
	}

	// Keeper signs and verifies session tokens with a single
	// symmetric secret.
	Keeper struct {
		secret []byte
	}
)

// TokenID returns the unique id of the token itself (the jti claim),
// which is what the deny-list keys on. Both RegisteredClaims and
// Identity carry a field called ID, hence the explicit selector.
func (c *Claims) TokenID() string {
	return c.RegisteredClaims.ID
}

// NewKeeper returns a Keeper over the given secret. An empty secret is
// a configuration error, never a silent pass-through.
func NewKeeper(secret []byte) (*Keeper, error) {
	if len(secret) == 0 {
		return nil, Misconfiguration{Detail: "cannot operate without a signing secret"}
	}
	return &Keeper{secret: secret}, nil
}

// Issue produces a compact signed token asserting who for the given
// validity window.
func (k *Keeper) Issue(who Identity, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Identity: who,
	})
	signed, err := token.SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("unable to sign session token, cause %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry, returning the embedded claims.
// Failures are ExpiredToken or InvalidToken, nothing else.
func (k *Keeper) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return k.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ExpiredToken{}
		}
		return nil, InvalidToken{cause: err}
	}
	if !token.Valid {
		return nil, InvalidToken{}
	}
	return claims, nil
}
