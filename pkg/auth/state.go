package auth

// State is the authentication state of the Manager.
type State int

// Manager states.
const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// BestEffort is the outcome of a call whose failure must not block the
// caller (remote logout, keepalive). Err is informational only.
type BestEffort struct {
	Err error
}

// OK reports whether the call succeeded.
func (b BestEffort) OK() bool { return b.Err == nil }
