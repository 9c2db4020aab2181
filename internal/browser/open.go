// Package browser hands URLs and local files to the desktop's default handler.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Command returns the command that opens target, a URL or a local file path.
func Command(target string) (*exec.Cmd, error) {
	return commandFor(runtime.GOOS, target)
}

func commandFor(goos, target string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", target), nil
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", target), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target), nil
	default:
		return nil, fmt.Errorf("unsupported OS: %s", goos)
	}
}

// Open opens target with the default application without waiting for it.
func Open(target string) error {
	cmd, err := Command(target)
	if err != nil {
		return err
	}
	return cmd.Start()
}
