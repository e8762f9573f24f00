package api

import (
	"net/http"
	"time"
)

// CookieName is the fixed name of the session cookie.
const CookieName = "music_jwt"

func writeSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration, insecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Expires:  time.Now().Add(maxAge),
		HttpOnly: true,
		Secure:   !insecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie overwrites the session cookie with an empty value
// and a past expiry. Flags must match the ones used when writing,
// otherwise browsers keep the old cookie around.
func clearSessionCookie(w http.ResponseWriter, insecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   !insecure,
		SameSite: http.SameSiteLaxMode,
	})
}
