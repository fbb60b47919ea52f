// Package fingerprint derives a coarse device/browser/OS descriptor from a
// user agent string for the access log.
//
// Every field is decided by an ordered list of tests where the first match
// wins.  The order is significant: a Chrome user agent also carries the
// "Safari" token, and Android user agents also say "Linux".
package fingerprint

import (
	"regexp"
	"strings"

	"github.com/iliyamo/casefiles/internal/model"
)

const unknown = "Unknown"

var (
	reMobile  = regexp.MustCompile(`(?i)Mobi|Android`)
	reTablet  = regexp.MustCompile(`(?i)Tablet|iPad`)
	reIPhone  = regexp.MustCompile(`iPhone\s?(\w+)?`)
	reAndroid = regexp.MustCompile(`;\s*([^;]+)\s*Build/`)
)

type rule struct {
	match func(ua string) bool
	value string
}

func contains(tok string) func(string) bool {
	return func(ua string) bool { return strings.Contains(ua, tok) }
}

var deviceRules = []rule{
	{reMobile.MatchString, "Mobile"},
	{reTablet.MatchString, "Tablet"},
}

var browserRules = []rule{
	{contains("Firefox"), "Firefox"},
	{contains("Edg"), "Edge"},
	{contains("Chrome"), "Chrome"},
	{contains("Safari"), "Safari"},
}

var osRules = []rule{
	{contains("Windows"), "Windows"},
	{contains("Mac"), "macOS"},
	{contains("Linux"), "Linux"},
	{contains("Android"), "Android"},
	{func(ua string) bool { return strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad") }, "iOS"},
}

func firstMatch(ua string, rules []rule, fallback string) string {
	for _, r := range rules {
		if r.match(ua) {
			return r.value
		}
	}
	return fallback
}

// Collect builds the fingerprint for a user agent and the screen size the
// client reported.  It never fails; fields that match nothing are "Unknown"
// (Desktop for the device type) and PhoneModel is nil.
func Collect(userAgent string, screenWidth, screenHeight int) model.DeviceInfo {
	return model.DeviceInfo{
		DeviceType:   firstMatch(userAgent, deviceRules, "Desktop"),
		Browser:      firstMatch(userAgent, browserRules, unknown),
		OS:           firstMatch(userAgent, osRules, unknown),
		PhoneModel:   PhoneModel(userAgent),
		UserAgent:    userAgent,
		ScreenWidth:  screenWidth,
		ScreenHeight: screenHeight,
	}
}

// PhoneModel extracts a best-effort handset name: the "iPhone ..." token
// first, then the text before "Build/" in an Android build string.
func PhoneModel(userAgent string) *string {
	if m := reIPhone.FindString(userAgent); m != "" {
		return &m
	}
	if sub := reAndroid.FindStringSubmatch(userAgent); len(sub) > 1 {
		if s := strings.TrimSpace(sub[1]); s != "" {
			return &s
		}
	}
	return nil
}
