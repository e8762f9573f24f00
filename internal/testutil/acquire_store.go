package testutil

import (
	"context"
	"os"
	"path/filepath"

	"github.com/andrebq/jukebox/accounts"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}
)

// AcquireAccountStore opens a writable account store under a fresh
// temporary directory and returns it along with its cleanup function.
func AcquireAccountStore(ctx context.Context, t TestLog, name string) (*accounts.Store, func()) {
	dir, err := os.MkdirTemp("", "jukebox-tests")
	if err != nil {
		t.Fatal(err)
	}
	store, err := accounts.Open(ctx, filepath.Join(dir, name), true)
	if err != nil {
		t.Fatal(err)
	}
	return store, func() {
		err := store.Close()
		if err != nil {
			t.Log("unable to close account store", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}
