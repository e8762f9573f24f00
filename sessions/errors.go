package sessions

import "fmt"

type (
	// InvalidToken covers tampered, malformed and wrong-secret tokens.
	InvalidToken struct {
		cause error
	}

	// ExpiredToken means the signature checked out but the validity
	// window is over.
	ExpiredToken struct{}

	// Misconfiguration indicates the process cannot issue or verify
	// tokens at all. It should abort startup, not be served to users.
	Misconfiguration struct {
		Detail string
	}
)

func (i InvalidToken) Error() string {
	return "session token is not valid"
}

func (i InvalidToken) Unwrap() error {
	return i.cause
}

func (e ExpiredToken) Error() string {
	return "session token expired"
}

func (m Misconfiguration) Error() string {
	return fmt.Sprintf("sessions: %v", m.Detail)
}
