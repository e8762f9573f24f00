package sessions

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is used whenever a caller passes a cost outside the
// range bcrypt accepts. The cost travels inside the hash itself, so
// raising it later does not invalidate stored hashes.
const DefaultHashCost = bcrypt.DefaultCost

// HashPassword derives a salted one-way hash from plain. Each call
// salts independently, equal passwords never produce equal hashes.
func HashPassword(plain []byte, cost int) ([]byte, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	buf, err := bcrypt.GenerateFromPassword(plain, cost)
	if err != nil {
		return nil, fmt.Errorf("unable to hash password, cause %w", err)
	}
	return buf, nil
}

// CheckPassword reports whether plain matches hash. Malformed hashes
// simply do not match, the caller never has to deal with an error.
func CheckPassword(plain []byte, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, plain) == nil
}
