package bridge

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/tramontosereno/sereno/pkg/domain"
)

// DefaultLandingPath is where the guest app lands after a set-token hand-off.
const DefaultLandingPath = "/user/plans"

// SetTokenURL builds the guest URL that installs token in the web app and
// then redirects to path.
func SetTokenURL(appBase, token, path string) string {
	if path == "" {
		path = DefaultLandingPath
	}
	return fmt.Sprintf("%s/auth/set-token?token=%s&path=%s&forceMode=mobile",
		strings.TrimRight(appBase, "/"),
		url.QueryEscape(base64.StdEncoding.EncodeToString([]byte(token))),
		url.QueryEscape(path),
	)
}

// GuestURL returns the mobile-mode URL of a guest route such as a service
// entry starting with "/".
func GuestURL(appBase, route string) string {
	sep := "?"
	if strings.Contains(route, "?") {
		sep = "&"
	}
	return strings.TrimRight(appBase, "/") + route + sep + "forceMode=mobile"
}

// SessionScript returns the snippet the host runs in the guest before its
// content loads so the web app sees the native session.
func SessionScript(sess domain.Session) (string, error) {
	user, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("bridge: encode session: %w", err)
	}
	// user is valid JSON and therefore a valid JS object literal.
	return fmt.Sprintf("(function() {\n  localStorage.setItem('uinfo', JSON.stringify(%s));\n  true;\n})();", user), nil
}

// Reply builds a host-to-guest message. The guest decides what it means.
func Reply(action string, data any) (string, error) {
	b, err := json.Marshal(struct {
		Action string `json:"action"`
		Data   any    `json:"data,omitempty"`
	}{action, data})
	if err != nil {
		return "", fmt.Errorf("bridge: encode reply: %w", err)
	}
	return string(b), nil
}
