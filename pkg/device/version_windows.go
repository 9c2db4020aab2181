//go:build windows

package device

import (
	"os/exec"
	"strings"
)

// osVersion reads the Windows version via "cmd /c ver".
func osVersion() (string, error) {
	out, err := exec.Command("cmd", "/c", "ver").Output()
	if err != nil {
		return "", err
	}
	s := strings.TrimSpace(string(out))
	if i := strings.Index(s, "Version "); i >= 0 {
		s = strings.TrimSuffix(s[i+len("Version "):], "]")
	}
	return s, nil
}
