package domain

// Role and status codes the gateway assigns to accounts.
const (
	RoleUser    = 100
	RolePartner = 150

	StatusActive = 310
)

// Role hints sent with login credentials.
const (
	RoleHintUser    = "user"
	RoleHintPartner = "partner"
)

// RoleForHint maps a login role hint to the role code the gateway assigns.
func RoleForHint(hint string) int {
	if hint == RoleHintPartner {
		return RolePartner
	}
	return RoleUser
}

// Session is the authenticated state of this device: the bearer token plus
// the role and account status returned by login.
type Session struct {
	Token  string `json:"token"`
	Role   int    `json:"role"`
	Status int    `json:"status"`
}

// Valid reports whether s carries a token.
func (s *Session) Valid() bool {
	return s != nil && s.Token != ""
}
