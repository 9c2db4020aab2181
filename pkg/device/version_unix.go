//go:build !windows

package device

import (
	"bytes"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// osVersion reads the OS release string of the running system.
func osVersion() (string, error) {
	if runtime.GOOS == "linux" {
		if data, err := os.ReadFile("/etc/os-release"); err == nil {
			if v := parseOSRelease(data); v != "" {
				return v, nil
			}
		}
	}
	out, err := exec.Command("uname", "-r").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// parseOSRelease returns VERSION_ID from an os-release file.
func parseOSRelease(data []byte) string {
	for _, line := range bytes.Split(data, []byte("\n")) {
		k, v, ok := strings.Cut(string(line), "=")
		if ok && k == "VERSION_ID" {
			return strings.Trim(v, `"`)
		}
	}
	return ""
}
