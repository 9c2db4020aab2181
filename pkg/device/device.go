// Package device describes the host machine and app build for the login
// request.
package device

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/tramontosereno/sereno/pkg/domain"
)

// Defaults used when the app does not identify itself.
const (
	DefaultAppName    = "Tramonto Sereno"
	DefaultAppVersion = "1.0.0"

	unknownDevice = "Unknown Device"
	unknownModel  = "Unknown Model"
	unknown       = "Unknown"
)

// AppInfo names the client build.
type AppInfo struct {
	Name    string
	Version string
}

// Provider collects device metadata. Its function fields can be replaced
// in tests to simulate unavailable platform APIs.
type Provider struct {
	App       AppInfo
	GOOS      string
	GOARCH    string
	Hostname  func() (string, error)
	OSVersion func() (string, error)
}

// NewProvider returns a Provider reading the running platform.
func NewProvider(app AppInfo) *Provider {
	return &Provider{
		App:       app,
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
		Hostname:  os.Hostname,
		OSVersion: osVersion,
	}
}

// Describe assembles the descriptor. It never fails; missing values become
// "Unknown" placeholders.
func (p *Provider) Describe() domain.DeviceInfo {
	name := p.App.Name
	if name == "" {
		name = DefaultAppName
	}
	version := p.App.Version
	if version == "" {
		version = DefaultAppVersion
	}

	host := unknownDevice
	if p.Hostname != nil {
		if h, err := p.Hostname(); err == nil && strings.TrimSpace(h) != "" {
			host = strings.TrimSpace(h)
		}
	}
	model := p.GOARCH
	if model == "" {
		model = unknownModel
	}

	osName := osDisplayName(p.GOOS)
	osVer := unknown
	if p.OSVersion != nil {
		if v, err := p.OSVersion(); err == nil && strings.TrimSpace(v) != "" {
			osVer = strings.TrimSpace(v)
		}
	}
	osFull := osName + " " + osVer

	goos := p.GOOS
	if goos == "" {
		goos = "unknown"
	}

	return domain.DeviceInfo{
		Device:    fmt.Sprintf("%s (%s)", host, model),
		OS:        osFull,
		Browser:   fmt.Sprintf("%s v%s", name, version),
		UserAgent: fmt.Sprintf("%s/%s (%s; %s)", name, version, goos, osFull),
	}
}

func osDisplayName(goos string) string {
	switch goos {
	case "darwin":
		return "macOS"
	case "linux":
		return "Linux"
	case "windows":
		return "Windows"
	case "android":
		return "Android"
	case "ios":
		return "iOS"
	default:
		return unknown
	}
}
