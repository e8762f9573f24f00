package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/andrebq/jukebox/accounts"
	"github.com/andrebq/jukebox/internal/logutil"
	"github.com/andrebq/jukebox/sessions"
	"github.com/julienschmidt/httprouter"
)

type (
	// AccountStore is the slice of the credential store the auth
	// endpoints need. *accounts.Store satisfies it.
	AccountStore interface {
		FindByIdentifier(ctx context.Context, identifier string) (*accounts.Account, error)
		FindByID(ctx context.Context, id string) (*accounts.Account, error)
		Insert(ctx context.Context, acct *accounts.Account) error
	}

	// Endpoints exposes the authentication surface: identifier check,
	// login, sign-up, token bootstrap, logout and current-user.
	Endpoints struct {
		store          AccountStore
		keeper         *sessions.Keeper
		denylist       sessions.DenyList
		hashCost       int
		insecureCookie bool
	}

	publicUser struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Username string `json:"username"`
	}

	checkRequest struct {
		Identifier string `json:"identifier"`
	}

	checkResponse struct {
		Exists  bool        `json:"exists"`
		User    *publicUser `json:"user,omitempty"`
		Message string      `json:"message,omitempty"`
	}

	loginRequest struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}

	signupRequest struct {
		Email       string `json:"email"`
		Username    string `json:"username"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}

	bootstrapRequest struct {
		Token string `json:"token"`
	}

	statusResponse struct {
		Success bool        `json:"success"`
		User    *publicUser `json:"user,omitempty"`
		Message string      `json:"message,omitempty"`
	}

	meResponse struct {
		Success bool              `json:"success"`
		User    *accounts.Profile `json:"user,omitempty"`
		Step    string            `json:"step,omitempty"`
		Message string            `json:"message,omitempty"`
	}
)

// failure classes reported by the current-user endpoint, so clients
// can tell a missing session apart from a dead one.
const (
	stepMissingToken = "missing_token"
	stepInvalidToken = "invalid_token"
	stepServerError  = "server_error"
)

func NewEndpoints(store AccountStore, keeper *sessions.Keeper, denylist sessions.DenyList, hashCost int, allowHTTPCookie bool) *Endpoints {
	return &Endpoints{
		store:          store,
		keeper:         keeper,
		denylist:       denylist,
		hashCost:       hashCost,
		insecureCookie: allowHTTPCookie,
	}
}

// Routes mounts all auth endpoints on the given router.
func (e *Endpoints) Routes(router *httprouter.Router) {
	router.HandlerFunc("POST", "/api/auth/check", e.CheckIdentifier)
	router.HandlerFunc("POST", "/api/auth/login", e.Login)
	router.HandlerFunc("POST", "/api/auth/signup", e.Signup)
	router.HandlerFunc("POST", "/api/auth/token", e.BootstrapToken)
	router.HandlerFunc("POST", "/api/auth/logout", e.Logout)
	router.HandlerFunc("GET", "/api/auth/me", e.CurrentUser)
}

// CheckIdentifier reports whether an account exists for the given
// email or username. Absence is a normal outcome, not an error, and
// the response never tells which of the two fields matched.
func (e *Endpoints) CheckIdentifier(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Identifier) == "" {
		writeJSON(r.Context(), w, http.StatusBadRequest, checkResponse{Message: "identifier is required"})
		return
	}
	acct, err := e.store.FindByIdentifier(r.Context(), req.Identifier)
	if errors.As(err, &accounts.NotFound{}) {
		writeJSON(r.Context(), w, http.StatusOK, checkResponse{Exists: false})
		return
	} else if err != nil {
		serverFailure(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, checkResponse{Exists: true, User: minimalProfile(acct)})
}

// Login verifies the password and, on success, writes a fresh session
// cookie. Unknown accounts and wrong passwords share the same answer.
func (e *Endpoints) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Identifier) == "" || req.Password == "" {
		writeJSON(r.Context(), w, http.StatusBadRequest, statusResponse{Message: "identifier and password are required"})
		return
	}
	acct, err := e.store.FindByIdentifier(r.Context(), req.Identifier)
	if errors.As(err, &accounts.NotFound{}) {
		writeJSON(r.Context(), w, http.StatusUnauthorized, statusResponse{Message: "invalid credentials"})
		return
	} else if err != nil {
		serverFailure(r.Context(), w, err)
		return
	}
	if !sessions.CheckPassword([]byte(req.Password), acct.PasswordHash) {
		writeJSON(r.Context(), w, http.StatusUnauthorized, statusResponse{Message: "invalid credentials"})
		return
	}
	token, err := e.keeper.Issue(identityOf(acct), sessions.LoginValidity)
	if err != nil {
		serverFailure(r.Context(), w, err)
		return
	}
	writeSessionCookie(w, token, sessions.LoginValidity, e.insecureCookie)
	writeJSON(r.Context(), w, http.StatusOK, statusResponse{Success: true, User: minimalProfile(acct)})
}

// Signup creates the account and immediately writes a session cookie,
// the same way the bootstrap endpoint would. Account insertion and
// cookie issuance are two separate steps, if the second one fails the
// account still exists and the client falls back to a regular login.
func (e *Endpoints) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !strings.Contains(req.Email, "@") || strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeJSON(r.Context(), w, http.StatusBadRequest, statusResponse{Message: "email, username and password are required"})
		return
	}
	hash, err := sessions.HashPassword([]byte(req.Password), e.hashCost)
	if err != nil {
		serverFailure(r.Context(), w, err)
		return
	}
	acct := &accounts.Account{
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		DisplayName:  req.DisplayName,
	}
	err = e.store.Insert(r.Context(), acct)
	var dup accounts.Duplicate
	if errors.As(err, &dup) {
		writeJSON(r.Context(), w, http.StatusConflict, statusResponse{Message: dup.Error()})
		return
	} else if err != nil {
		serverFailure(r.Context(), w, err)
		return
	}
	token, err := e.keeper.Issue(identityOf(acct), sessions.BootstrapValidity)
	if err != nil {
		serverFailure(r.Context(), w, err)
		return
	}
	writeSessionCookie(w, token, sessions.BootstrapValidity, e.insecureCookie)
	writeJSON(r.Context(), w, http.StatusCreated, statusResponse{Success: true, User: minimalProfile(acct)})
}

// BootstrapToken writes an already-issued token into the session
// cookie with the long sign-up validity. It performs no verification
// of its own, the caller is trusted to have issued the token through a
// legitimate path. It exists to keep cookie-writing in one place.
func (e *Endpoints) BootstrapToken(w http.ResponseWriter, r *http.Request) {
	var req bootstrapRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeJSON(r.Context(), w, http.StatusBadRequest, statusResponse{Message: "token is required"})
		return
	}
	writeSessionCookie(w, req.Token, sessions.BootstrapValidity, e.insecureCookie)
	writeJSON(r.Context(), w, http.StatusOK, statusResponse{Success: true})
}

// Logout clears the session cookie and revokes the presented token if
// there was one. It succeeds no matter what the request carried.
func (e *Endpoints) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		if claims, err := e.keeper.Verify(cookie.Value); err == nil {
			if err := e.denylist.Revoke(r.Context(), claims.TokenID()); err != nil {
				logger := logutil.GetOrDefault(r.Context())
				logger.Error().Err(err).Msg("Unable to revoke session token")
			}
		}
	}
	clearSessionCookie(w, e.insecureCookie)
	writeJSON(r.Context(), w, http.StatusOK, statusResponse{Success: true})
}

// CurrentUser resolves the session cookie to a full profile. The
// failure class (missing vs invalid token vs server trouble) is
// reported in the step field.
func (e *Endpoints) CurrentUser(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(r.Context(), w, http.StatusUnauthorized, meResponse{Step: stepMissingToken, Message: "no session cookie"})
		return
	}
	claims, err := e.keeper.Verify(cookie.Value)
	if err != nil {
		writeJSON(r.Context(), w, http.StatusUnauthorized, meResponse{Step: stepInvalidToken, Message: "session is not valid"})
		return
	}
	revoked, err := e.denylist.Revoked(r.Context(), claims.TokenID())
	if err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("Unexpected error when checking deny-list")
		writeJSON(r.Context(), w, http.StatusInternalServerError, meResponse{Step: stepServerError, Message: "try again later"})
		return
	}
	if revoked {
		writeJSON(r.Context(), w, http.StatusUnauthorized, meResponse{Step: stepInvalidToken, Message: "session is not valid"})
		return
	}
	acct, err := e.store.FindByID(r.Context(), claims.Identity.ID)
	if errors.As(err, &accounts.NotFound{}) {
		writeJSON(r.Context(), w, http.StatusUnauthorized, meResponse{Step: stepInvalidToken, Message: "session is not valid"})
		return
	} else if err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("Unable to load account for session")
		writeJSON(r.Context(), w, http.StatusInternalServerError, meResponse{Step: stepServerError, Message: "try again later"})
		return
	}
	profile := acct.Profile()
	writeJSON(r.Context(), w, http.StatusOK, meResponse{Success: true, User: &profile})
}

func identityOf(acct *accounts.Account) sessions.Identity {
	return sessions.Identity{ID: acct.ID, Email: acct.Email, Username: acct.Username}
}

func minimalProfile(acct *accounts.Account) *publicUser {
	return &publicUser{ID: acct.ID, Email: acct.Email, Username: acct.Username}
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		writeJSON(r.Context(), w, http.StatusBadRequest, statusResponse{Message: "malformed request body"})
		return false
	}
	return true
}

func serverFailure(ctx context.Context, w http.ResponseWriter, err error) {
	logger := logutil.GetOrDefault(ctx)
	logger.Error().Err(err).Msg("Auth endpoint failed")
	writeJSON(ctx, w, http.StatusInternalServerError, statusResponse{Message: "try again later"})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := logutil.GetOrDefault(ctx)
		logger.Error().Err(err).Msg("Unable to encode response body")
	}
}
