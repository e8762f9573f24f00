package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/andrebq/jukebox/accounts"
	"github.com/andrebq/jukebox/internal/testutil"
	"github.com/andrebq/jukebox/sessions"
	"github.com/julienschmidt/httprouter"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"golang.org/x/crypto/bcrypt"
)

type authStack struct {
	router   *httprouter.Router
	store    *accounts.Store
	keeper   *sessions.Keeper
	denylist sessions.DenyList
	alice    *accounts.Account
}

func acquireAuthStack(ctx context.Context, t *testing.T) (*authStack, func()) {
	t.Helper()
	store, cleanup := testutil.AcquireAccountStore(ctx, t, "test")
	keeper, err := sessions.NewKeeper([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		cleanup()
		t.Fatal(err)
	}
	hash, err := sessions.HashPassword([]byte("correctPW1!"), bcrypt.MinCost)
	if err != nil {
		cleanup()
		t.Fatal(err)
	}
	alice := &accounts.Account{
		Email:        "alice@example.com",
		Username:     "alice",
		PasswordHash: hash,
		DisplayName:  "Alice",
	}
	if err := store.Insert(ctx, alice); err != nil {
		cleanup()
		t.Fatal(err)
	}
	denylist := sessions.InMemoryDenyList(10 * time.Minute)
	router := httprouter.New()
	NewEndpoints(store, keeper, denylist, bcrypt.MinCost, true).Routes(router)
	return &authStack{
		router:   router,
		store:    store,
		keeper:   keeper,
		denylist: denylist,
		alice:    alice,
	}, cleanup
}

func sessionCookie(res *http.Response) *http.Cookie {
	for _, cookie := range res.Cookies() {
		if cookie.Name == CookieName {
			return cookie
		}
	}
	return nil
}

func TestCheckIdentifier(t *testing.T) {
	ctx := context.Background()
	stack, cleanup := acquireAuthStack(ctx, t)
	defer cleanup()

	apitest.Handler(stack.router).Post("/api/auth/check").
		JSON(`{"identifier": "ALICE"}`).
		Expect(t).Status(http.StatusOK).
		Assert(jsonpath.Equal("$.exists", true)).
		Assert(jsonpath.Equal("$.user.email", "alice@example.com")).
		Assert(jsonpath.Equal("$.user.id", stack.alice.ID)).
		End()

	// absence is a normal outcome, not an error status
	apitest.Handler(stack.router).Post("/api/auth/check").
		JSON(`{"identifier": "nobody@example.com"}`).
		Expect(t).Status(http.StatusOK).
		Assert(jsonpath.Equal("$.exists", false)).
		Assert(jsonpath.NotPresent("$.user")).
		End()

	apitest.Handler(stack.router).Post("/api/auth/check").
		JSON(`{"identifier": "  "}`).
		Expect(t).Status(http.StatusBadRequest).
		End()
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	stack, cleanup := acquireAuthStack(ctx, t)
	defer cleanup()

	apitest.Handler(stack.router).Post("/api/auth/login").
		JSON(`{"identifier": "alice@example.com", "password": "correctPW1!"}`).
		Expect(t).Status(http.StatusOK).
		Assert(jsonpath.Equal("$.success", true)).
		Assert(func(res *http.Response, req *http.Request) error {
			cookie := sessionCookie(res)
			if cookie == nil {
				return fmt.Errorf("login should set the %v cookie", CookieName)
			}
			if !cookie.HttpOnly || cookie.Path != "/" {
				return fmt.Errorf("unexpected cookie attributes: %v", cookie)
			}
			claims, err := stack.keeper.Verify(cookie.Value)
			if err != nil {
				return err
			}
			if claims.Identity.Email != "alice@example.com" {
				return fmt.Errorf("unexpected email claim %v", claims.Identity.Email)
			}
			return nil
		}).
		End()
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	stack, cleanup := acquireAuthStack(ctx, t)
	defer cleanup()

	noCookie := func(res *http.Response, req *http.Request) error {
		if sessionCookie(res) != nil {
			return fmt.Errorf("failed logins must not set a cookie")
		}
		return nil
	}

	apitest.Handler(stack.router).Post("/api/auth/login").
		JSON(`{"identifier": "alice@example.com", "password": "wrong"}`).
		Expect(t).Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.success", false)).
		Assert(noCookie).
		End()

	// unknown account and wrong password share the same answer
	apitest.Handler(stack.router).Post("/api/auth/login").
		JSON(`{"identifier": "nobody@example.com", "password": "correctPW1!"}`).
		Expect(t).Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.message", "invalid credentials")).
		Assert(noCookie).
		End()

	apitest.Handler(stack.router).Post("/api/auth/login").
		Body(`{not json`).
		Expect(t).Status(http.StatusBadRequest).
		Assert(noCookie).
		End()
}

func TestSignup(t *testing.T) {
	ctx := context.Background()
	stack, cleanup := acquireAuthStack(ctx, t)
	defer cleanup()

	apitest.Handler(stack.router).Post("/api/auth/signup").
		JSON(`{"email": "Bob@Example.com", "username": "bob", "password": "hunter22", "displayName": "Bob"}`).
		Expect(t).Status(http.StatusCreated).
		Assert(jsonpath.Equal("$.success", true)).
		Assert(jsonpath.Equal("$.user.email", "bob@example.com")).
		Assert(func(res *http.Response, req *http.Request) error {
			cookie := sessionCookie(res)
			if cookie == nil {
				return fmt.Errorf("signup should set the session cookie")
			}
			claims, err := stack.keeper.Verify(cookie.Value)
			if err != nil {
				return err
			}
			if claims.Identity.Username != "bob" {
				return fmt.Errorf("unexpected username claim %v", claims.Identity.Username)
			}
			return nil
		}).
		End()

	// the account exists regardless of what happened after insertion,
	// a regular login must work
	apitest.Handler(stack.router).Post("/api/auth/login").
		JSON(`{"identifier": "bob", "password": "hunter22"}`).
		Expect(t).Status(http.StatusOK).
		Assert(jsonpath.Equal("$.success", true)).
		End()

	apitest.Handler(stack.router).Post("/api/auth/signup").
		JSON(`{"email": "bob@example.com", "username": "bob2", "password": "hunter22"}`).
		Expect(t).Status(http.StatusConflict).
		Assert(jsonpath.Equal("$.success", false)).
		End()

	apitest.Handler(stack.router).Post("/api/auth/signup").
		JSON(`{"email": "not-an-email", "username": "x", "password": "y"}`).
		Expect(t).Status(http.StatusBadRequest).
		End()
}

func TestBootstrapToken(t *testing.T) {
	ctx := context.Background()
	stack, cleanup := acquireAuthStack(ctx, t)
	defer cleanup()

	apitest.Handler(stack.router).Post("/api/auth/token").
		JSON(`{"token": "already-issued-elsewhere"}`).
		Expect(t).Status(http.StatusOK).
		Assert(jsonpath.Equal("$.success", true)).
		Assert(func(res *http.Response, req *http.Request) error {
			cookie := sessionCookie(res)
			if cookie == nil {
				return fmt.Errorf("bootstrap should set the session cookie")
			}
			if cookie.Value != "already-issued-elsewhere" {
				return fmt.Errorf("bootstrap must write the token verbatim, got %v", cookie.Value)
			}
			if cookie.MaxAge < int(sessions.BootstrapValidity/time.Second) {
				return fmt.Errorf("bootstrap cookie should carry the long max-age, got %v", cookie.MaxAge)
			}
			return nil
		}).
		End()

	apitest.Handler(stack.router).Post("/api/auth/token").
		JSON(`{"token": ""}`).
		Expect(t).Status(http.StatusBadRequest).
		End()
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	stack, cleanup := acquireAuthStack(ctx, t)
	defer cleanup()

	clearedCookie := func(res *http.Response, req *http.Request) error {
		cookie := sessionCookie(res)
		if cookie == nil {
			return fmt.Errorf("logout should always clear the session cookie")
		}
		if cookie.Value != "" {
			return fmt.Errorf("cleared cookie should be empty, got %v", cookie.Value)
		}
		if cookie.MaxAge >= 0 && !cookie.Expires.Before(time.Now()) {
			return fmt.Errorf("cleared cookie should expire in the past")
		}
		return nil
	}

	// logout without any cookie still succeeds and still clears
	apitest.Handler(stack.router).Post("/api/auth/logout").
		Expect(t).Status(http.StatusOK).
		Assert(jsonpath.Equal("$.success", true)).
		Assert(clearedCookie).
		End()

	token, err := stack.keeper.Issue(sessions.Identity{ID: stack.alice.ID}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	apitest.Handler(stack.router).Post("/api/auth/logout").
		Cookies(apitest.NewCookie(CookieName).Value(token)).
		Expect(t).Status(http.StatusOK).
		Assert(jsonpath.Equal("$.success", true)).
		Assert(clearedCookie).
		End()

	claims, err := stack.keeper.Verify(token)
	if err != nil {
		t.Fatal(err)
	}
	revoked, err := stack.denylist.Revoked(ctx, claims.TokenID())
	if err != nil {
		t.Fatal(err)
	} else if !revoked {
		t.Fatal("logout should revoke the presented token")
	}
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()
	stack, cleanup := acquireAuthStack(ctx, t)
	defer cleanup()

	token, err := stack.keeper.Issue(sessions.Identity{
		ID:       stack.alice.ID,
		Email:    stack.alice.Email,
		Username: stack.alice.Username,
	}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	apitest.Handler(stack.router).Get("/api/auth/me").
		Cookies(apitest.NewCookie(CookieName).Value(token)).
		Expect(t).Status(http.StatusOK).
		Assert(jsonpath.Equal("$.success", true)).
		Assert(jsonpath.Equal("$.user.email", "alice@example.com")).
		Assert(jsonpath.Equal("$.user.displayName", "Alice")).
		Assert(func(res *http.Response, req *http.Request) error {
			buf, err := io.ReadAll(res.Body)
			if err != nil {
				return err
			}
			if strings.Contains(strings.ToLower(string(buf)), "password") {
				return fmt.Errorf("profile responses must never mention the password hash")
			}
			return nil
		}).
		End()
}

func TestCurrentUserFailureClasses(t *testing.T) {
	ctx := context.Background()
	stack, cleanup := acquireAuthStack(ctx, t)
	defer cleanup()

	apitest.Handler(stack.router).Get("/api/auth/me").
		Expect(t).Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.step", "missing_token")).
		End()

	apitest.Handler(stack.router).Get("/api/auth/me").
		Cookies(apitest.NewCookie(CookieName).Value("not.a.token")).
		Expect(t).Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.step", "invalid_token")).
		End()

	expired, err := stack.keeper.Issue(sessions.Identity{ID: stack.alice.ID}, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	apitest.Handler(stack.router).Get("/api/auth/me").
		Cookies(apitest.NewCookie(CookieName).Value(expired)).
		Expect(t).Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.step", "invalid_token")).
		End()

	// a token for an account that no longer exists is a dead session
	ghost, err := stack.keeper.Issue(sessions.Identity{ID: "deleted-account"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	apitest.Handler(stack.router).Get("/api/auth/me").
		Cookies(apitest.NewCookie(CookieName).Value(ghost)).
		Expect(t).Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.step", "invalid_token")).
		End()

	// revoked sessions report the same class as invalid ones
	token, err := stack.keeper.Issue(sessions.Identity{ID: stack.alice.ID}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := stack.keeper.Verify(token)
	if err != nil {
		t.Fatal(err)
	}
	if err := stack.denylist.Revoke(ctx, claims.TokenID()); err != nil {
		t.Fatal(err)
	}
	apitest.Handler(stack.router).Get("/api/auth/me").
		Cookies(apitest.NewCookie(CookieName).Value(token)).
		Expect(t).Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.step", "invalid_token")).
		End()
}
