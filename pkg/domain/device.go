package domain

// DeviceInfo identifies the client at login.
type DeviceInfo struct {
	Device    string `json:"device"`
	OS        string `json:"os"`
	Browser   string `json:"browser"`
	UserAgent string `json:"userAgent"`
}
