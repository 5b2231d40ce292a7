package capability

import "testing"

const (
	uaChromeDesktop = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	uaSafariIOS     = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1"
	uaBrave         = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Brave Chrome/125.0.0.0 Safari/537.36"
	uaInstagram     = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148 Instagram 292.0.0.17.62"
	uaChromeIOS     = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/126.0.6478.54 Mobile/15E148 Safari/604.1"
	uaHeadless      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) HeadlessChrome/126.0.0.0 Safari/537.36"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		env      Environment
		reliable bool
		signals  []Signal
	}{
		{"chrome desktop", Environment{UserAgent: uaChromeDesktop}, true, nil},
		{"safari ios", Environment{UserAgent: uaSafariIOS}, true, nil},
		{"brave", Environment{UserAgent: uaBrave}, false, []Signal{SignalPrivacyBrowser}},
		{"brave via vendor hint", Environment{UserAgent: uaChromeDesktop, VendorHints: []string{"Brave"}}, false, []Signal{SignalPrivacyBrowser}},
		{"instagram webview", Environment{UserAgent: uaInstagram}, false, []Signal{SignalInAppBrowser}},
		{"chrome on ios", Environment{UserAgent: uaChromeIOS}, false, []Signal{SignalLimitedOS}},
		{"headless", Environment{UserAgent: uaHeadless}, false, []Signal{SignalHeadlessAgent}},
		{"empty environment", Environment{}, true, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.env)
			if got.ClientReliable != tc.reliable {
				t.Errorf("ClientReliable = %v, want %v (signals=%v)", got.ClientReliable, tc.reliable, got.Signals)
			}
			if len(got.Signals) != len(tc.signals) {
				t.Fatalf("signals = %v, want %v", got.Signals, tc.signals)
			}
			for i := range tc.signals {
				if got.Signals[i] != tc.signals[i] {
					t.Errorf("signals[%d] = %s, want %s", i, got.Signals[i], tc.signals[i])
				}
			}
		})
	}
}

func TestClassify_SignalsAdditive(t *testing.T) {
	// An Instagram webview on a throttled iOS shell reports both signals.
	env := Environment{UserAgent: uaInstagram + " CriOS/126.0"}
	got := Classify(env)
	if got.ClientReliable {
		t.Fatal("expected unreliable classification")
	}
	if len(got.Signals) != 2 {
		t.Fatalf("signals = %v, want 2 entries", got.Signals)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	env := Environment{UserAgent: uaBrave}
	first := Classify(env)
	for i := 0; i < 10; i++ {
		again := Classify(env)
		if again.ClientReliable != first.ClientReliable || len(again.Signals) != len(first.Signals) {
			t.Fatal("classification changed between identical calls")
		}
	}
}
