package sessions

import (
	"encoding/base64"
	"os"
)

const (
	// SecretEnvVar is the default environment variable holding the
	// base64-encoded signing secret.
	SecretEnvVar = "JUKEBOX_SESSION_SECRET"

	minSecretLen = 32
)

// SecretFromEnv reads the signing secret from the named environment
// variable and wipes the variable afterwards, so the secret does not
// linger in the environment of child processes. getfn/setfn default to
// os.Getenv/os.Setenv and exist so tests do not have to touch the real
// environment.
func SecretFromEnv(varname string, getfn func(string) string, setfn func(string, string) error) ([]byte, error) {
	if getfn == nil {
		getfn = os.Getenv
	}
	if setfn == nil {
		setfn = os.Setenv
	}
	val := getfn(varname)
	setfn(varname, "")
	if len(val) == 0 {
		return nil, Misconfiguration{Detail: "environment variable " + varname + " is empty, cannot load signing secret"}
	}
	secret, err := base64.StdEncoding.DecodeString(val)
	if err != nil {
		return nil, Misconfiguration{Detail: "cannot decode signing secret: " + err.Error()}
	}
	if len(secret) < minSecretLen {
		return nil, Misconfiguration{Detail: "signing secret too short, want at least 32 bytes"}
	}
	return secret, nil
}
