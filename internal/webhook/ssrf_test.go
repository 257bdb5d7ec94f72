package webhook

import (
	"net"
	"testing"
)

func TestSSRFGuardRejectsLoopback(t *testing.T) {
	guard := NewSSRFGuard()
	if err := guard.Validate("http://127.0.0.1/hook"); err == nil {
		t.Fatalf("Validate() accepted a loopback target")
	}
}

func TestSSRFGuardRejectsPrivateRange(t *testing.T) {
	guard := NewSSRFGuard()
	if err := guard.Validate("http://10.0.0.5/hook"); err == nil {
		t.Fatalf("Validate() accepted a private-range target")
	}
}

func TestSSRFGuardRejectsUnsupportedScheme(t *testing.T) {
	guard := NewSSRFGuard()
	if err := guard.Validate("ftp://example.com/hook"); err == nil {
		t.Fatalf("Validate() accepted an ftp:// target")
	}
}

func TestSSRFGuardRejectsMissingHost(t *testing.T) {
	guard := NewSSRFGuard()
	if err := guard.Validate("http:///hook"); err == nil {
		t.Fatalf("Validate() accepted a target with no host")
	}
}

func TestSSRFGuardAllowsExplicitlyAllowlistedHost(t *testing.T) {
	guard := NewSSRFGuard("127.0.0.1")
	if err := guard.Validate("http://127.0.0.1/hook"); err != nil {
		t.Fatalf("Validate() rejected an allowlisted loopback host: %v", err)
	}
}

func TestIsReservedCoversKnownRanges(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1":     true,
		"10.1.2.3":      true,
		"169.254.1.1":   true,
		"0.0.0.0":       true,
		"224.0.0.1":     true,
		"93.184.216.34": false,
		"8.8.8.8":       false,
	}
	for ipStr, want := range cases {
		ip := net.ParseIP(ipStr)
		if ip == nil {
			t.Fatalf("could not parse IP %q", ipStr)
		}
		if got := isReserved(ip); got != want {
			t.Errorf("isReserved(%s) = %v, want %v", ipStr, got, want)
		}
	}
}
