// Package sessions holds the security core of jukebox: password
// hashing, session token issuance/verification and the logout
// deny-list.
//
// Sessions are stateless by design. A token that verifies was signed
// by this process (or another process holding the same secret) and has
// not expired, nothing else needs to be consulted. The price of that
// design is that logout cannot make a still-valid token disappear, the
// cookie is simply deleted from the browser.
//
// To soften that, logout also records the token id in an in-memory
// deny-list which the request filter consults. The deny-list is
// best-effort: it does not survive restarts and is not shared between
// processes. Anything stronger would turn this back into server-side
// session storage, which is exactly what the token design avoids.
//
// The signing secret only ever enters the process through an
// environment variable which is wiped right after being read. A
// process that cannot load the secret refuses to start instead of
// serving requests it could never verify.
package sessions
