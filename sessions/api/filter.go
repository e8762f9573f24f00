package api

import (
	"context"
	"net/http"

	"github.com/andrebq/jukebox/internal/logutil"
	"github.com/andrebq/jukebox/sessions"
)

type (
	// SecurityRealm filters requests to the protected application
	// area. Anything that does not carry a valid session cookie gets
	// redirected to the login surface, without further explanation.
	SecurityRealm struct {
		keeper         *sessions.Keeper
		denylist       sessions.DenyList
		loginPath      string
		insecureCookie bool
	}

	claimsKey byte
)

var ctxClaimsKey = claimsKey(1)

func NewRealm(keeper *sessions.Keeper, denylist sessions.DenyList, loginPath string, allowHTTPCookie bool) *SecurityRealm {
	return &SecurityRealm{
		keeper:         keeper,
		denylist:       denylist,
		loginPath:      loginPath,
		insecureCookie: allowHTTPCookie,
	}
}

// Protect wraps sensitive so it only runs for requests carrying a
// valid, non-revoked session cookie. The check is fail-closed, any
// failure along the way denies the request.
func (s *SecurityRealm) Protect(sensitive http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := s.checkCookie(r)
		if !ok {
			http.Redirect(w, r, s.loginPath, http.StatusSeeOther)
			return
		}
		sensitive.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func (s *SecurityRealm) checkCookie(r *http.Request) (*sessions.Claims, bool) {
	ctx := r.Context()
	log := logutil.GetOrDefault(ctx)
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	claims, err := s.keeper.Verify(cookie.Value)
	if err != nil {
		log.Debug().Err(err).Msg("Session cookie rejected")
		return nil, false
	}
	revoked, err := s.denylist.Revoked(ctx, claims.TokenID())
	if err != nil {
		log.Error().Err(err).Msg("Unexpected error when checking deny-list")
		return nil, false
	}
	return claims, !revoked
}

func withClaims(ctx context.Context, claims *sessions.Claims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, claims)
}

// ClaimsFromContext exposes the verified identity to handlers running
// behind Protect.
func ClaimsFromContext(ctx context.Context) (*sessions.Claims, bool) {
	claims, ok := ctx.Value(ctxClaimsKey).(*sessions.Claims)
	return claims, ok
}
