package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
)

type (
	// DenyList records token ids revoked by logout. Entries only need
	// to outlive the longest token validity, after that the token is
	// dead on its own.
	DenyList interface {
		Revoke(ctx context.Context, tokenID string) error
		Revoked(ctx context.Context, tokenID string) (bool, error)
	}

	memDenyList struct {
		cache *bigcache.BigCache
	}
)

// InMemoryDenyList keeps revoked token ids in process memory. Revoked
// tokens become valid again after a restart, which is the accepted
// cost of not having server-side session storage.
func InMemoryDenyList(ttl time.Duration) DenyList {
	cache, _ := bigcache.New(context.Background(), bigcache.DefaultConfig(ttl))
	return &memDenyList{
		cache: cache,
	}
}

func (m *memDenyList) Revoke(ctx context.Context, tokenID string) error {
	return m.cache.Set(tokenID, []byte{1})
}

func (m *memDenyList) Revoked(ctx context.Context, tokenID string) (bool, error) {
	buf, err := m.cache.Get(tokenID)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return (len(buf) > 0 && buf[0] == 1), nil
}
