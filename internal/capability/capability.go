// Package capability classifies the visitor's runtime environment as reliable
// or unreliable for client-channel (in-browser pixel) delivery. Classification
// is a pure function of the environment: no I/O, deterministic, side-effect
// free. An unreliable verdict means "insist on the server channel", never
// "suppress tracking".
package capability

import "strings"

// Signal names one reason the client channel was judged unreliable.
// Signals are additive; an environment can carry several at once.
type Signal string

const (
	SignalPrivacyBrowser Signal = "privacy_browser"
	SignalInAppBrowser   Signal = "in_app_browser"
	SignalLimitedOS      Signal = "tracking_limited_os"
	SignalHeadlessAgent  Signal = "headless_agent"
)

// Environment is the observable runtime surface the detector inspects.
// VendorHints carries known vendor globals surfaced by the page runtime
// (e.g. "brave" when navigator.brave is present).
type Environment struct {
	UserAgent   string
	VendorHints []string
}

// Classification is the detector's verdict.
type Classification struct {
	ClientReliable bool
	Signals        []Signal
}

// Browsers and embedded webviews that routinely strip or throttle
// third-party trackers.
var (
	privacyBrowserMarks = []string{"Brave", "DuckDuckGo", "Focus/"}
	inAppBrowserMarks   = []string{"FBAN", "FB_IAB", "Instagram", "MicroMessenger", "Line/"}
	limitedOSMarks      = []string{"CriOS", "FxiOS", "EdgiOS"}
	headlessMarks       = []string{"HeadlessChrome", "PhantomJS", "bot", "crawler", "spider", "curl/"}
)

// Classify inspects env and returns the channel-reliability verdict.
func Classify(env Environment) Classification {
	var signals []Signal

	ua := env.UserAgent
	if containsAny(ua, privacyBrowserMarks) {
		signals = append(signals, SignalPrivacyBrowser)
	}
	if containsAny(ua, inAppBrowserMarks) {
		signals = append(signals, SignalInAppBrowser)
	}
	// Third-party browsers on iOS run inside WebKit shells that inherit the
	// OS-level tracker throttling.
	if containsAny(ua, limitedOSMarks) {
		signals = append(signals, SignalLimitedOS)
	}
	if containsAnyFold(ua, headlessMarks) {
		signals = append(signals, SignalHeadlessAgent)
	}

	for _, h := range env.VendorHints {
		if strings.EqualFold(h, "brave") && !hasSignal(signals, SignalPrivacyBrowser) {
			signals = append(signals, SignalPrivacyBrowser)
		}
	}

	return Classification{ClientReliable: len(signals) == 0, Signals: signals}
}

func containsAny(s string, marks []string) bool {
	for _, m := range marks {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func containsAnyFold(s string, marks []string) bool {
	ls := strings.ToLower(s)
	for _, m := range marks {
		if strings.Contains(ls, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

func hasSignal(signals []Signal, sig Signal) bool {
	for _, s := range signals {
		if s == sig {
			return true
		}
	}
	return false
}
