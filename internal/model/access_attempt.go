package model

import "time"

// DeviceInfo is the coarse device/browser/OS fingerprint attached to every
// access attempt.  It is embedded as JSON in access_attempts.device_info.
type DeviceInfo struct {
	DeviceType   string  `json:"deviceType"`
	Browser      string  `json:"browser"`
	OS           string  `json:"os"`
	PhoneModel   *string `json:"phoneModel"`
	UserAgent    string  `json:"userAgent"`
	ScreenWidth  int     `json:"screenWidth"`
	ScreenHeight int     `json:"screenHeight"`
}

// AccessAttempt is one append-only row of the gate audit trail.
//
// Fields:
//  ID            – opaque identifier.
//  PasswordTried – attempted value, verbatim or redacted depending on policy.
//  Success       – whether the gate accepted the attempt.
//  UserAgent     – raw user agent string.
//  DeviceInfo    – derived fingerprint.
//  CreatedAt     – when the attempt was recorded.
type AccessAttempt struct {
	ID            string     `json:"id"`             // access_attempts.id
	PasswordTried string     `json:"password_tried"` // access_attempts.password_tried
	Success       bool       `json:"success"`        // access_attempts.success
	UserAgent     string     `json:"user_agent"`     // access_attempts.user_agent
	DeviceInfo    DeviceInfo `json:"device_info"`    // access_attempts.device_info (JSON)
	CreatedAt     time.Time  `json:"created_at"`     // access_attempts.created_at
}
