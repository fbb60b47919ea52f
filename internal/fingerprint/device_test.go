package fingerprint

import "testing"

const (
	uaChromeWin  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaEdgeWin    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0"
	uaFirefoxLnx = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	uaSafariMac  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15"
	uaIPhone     = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	uaIPad       = "Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/604.1"
	uaAndroid    = "Mozilla/5.0 (Linux; Android 13; SM-G991B Build/TP1A.220624.014) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Mobile Safari/537.36"
)

func TestCollectOrderedMatching(t *testing.T) {
	cases := []struct {
		name, ua            string
		device, browser, os string
	}{
		{"chrome beats safari", uaChromeWin, "Desktop", "Chrome", "Windows"},
		{"edge beats chrome", uaEdgeWin, "Desktop", "Edge", "Windows"},
		{"firefox linux", uaFirefoxLnx, "Desktop", "Firefox", "Linux"},
		{"safari mac", uaSafariMac, "Desktop", "Safari", "macOS"},
		// "like Mac OS X" is tested before iPhone, so iOS devices report macOS.
		{"iphone", uaIPhone, "Mobile", "Safari", "macOS"},
		{"ipad", uaIPad, "Tablet", "Safari", "macOS"},
		// Android UAs carry "Linux" first.
		{"android", uaAndroid, "Mobile", "Chrome", "Linux"},
		{"empty", "", "Desktop", "Unknown", "Unknown"},
	}
	for _, tc := range cases {
		got := Collect(tc.ua, 1920, 1080)
		if got.DeviceType != tc.device || got.Browser != tc.browser || got.OS != tc.os {
			t.Fatalf("%s: got=%s/%s/%s want=%s/%s/%s", tc.name,
				got.DeviceType, got.Browser, got.OS, tc.device, tc.browser, tc.os)
		}
		if got.UserAgent != tc.ua || got.ScreenWidth != 1920 || got.ScreenHeight != 1080 {
			t.Fatalf("%s: raw fields not carried: %+v", tc.name, got)
		}
	}
}

func TestCollectIOSWhenNoEarlierOSToken(t *testing.T) {
	got := Collect("CustomAgent (iPhone)", 0, 0)
	if got.OS != "iOS" {
		t.Fatalf("got=%q want=%q", got.OS, "iOS")
	}
}

func TestPhoneModel(t *testing.T) {
	// The optional word group stops at ";", leaving the bare token.
	if got := PhoneModel(uaIPhone); got == nil || *got != "iPhone" {
		t.Fatalf("got=%v want=%q", got, "iPhone")
	}
	if got := PhoneModel("Foo iPhone 15 Bar"); got == nil || *got != "iPhone 15" {
		t.Fatalf("got=%v want=%q", got, "iPhone 15")
	}
	if got := PhoneModel(uaAndroid); got == nil || *got != "SM-G991B" {
		t.Fatalf("got=%v want=%q", got, "SM-G991B")
	}
	if got := PhoneModel(uaChromeWin); got != nil {
		t.Fatalf("desktop model = %q, want nil", *got)
	}
}
