package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestAlertConfigActive(t *testing.T) {
	full := AlertConfig{
		Enabled:     true,
		GitHubOwner: "acme",
		GitHubRepo:  "ops",
		GitHubToken: "tok",
	}
	if !full.active() {
		t.Fatal("fully configured notifier should be active")
	}

	cases := []AlertConfig{
		{},
		{GitHubOwner: "acme", GitHubRepo: "ops", GitHubToken: "tok"},
		{Enabled: true, GitHubRepo: "ops", GitHubToken: "tok"},
		{Enabled: true, GitHubOwner: "acme", GitHubToken: "tok"},
		{Enabled: true, GitHubOwner: "acme", GitHubRepo: "ops"},
	}
	for i, cfg := range cases {
		if cfg.active() {
			t.Errorf("case %d: incomplete config must be inactive", i)
		}
	}
}

func TestAlertCooldown(t *testing.T) {
	a := newLoginAlerter(AlertConfig{Cooldown: 30 * time.Second}, zerolog.Nop())
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return clock }

	if !a.allow("bob", "10.0.0.1") {
		t.Fatal("first attempt should pass")
	}
	if a.allow("bob", "10.0.0.1") {
		t.Fatal("repeat within cooldown should be suppressed")
	}

	// Same username from another address is a distinct key.
	if !a.allow("bob", "10.0.0.2") {
		t.Fatal("different IP should not share the cooldown")
	}
	if !a.allow("eve", "10.0.0.1") {
		t.Fatal("different username should not share the cooldown")
	}

	clock = clock.Add(31 * time.Second)
	if !a.allow("bob", "10.0.0.1") {
		t.Fatal("attempt after cooldown should pass again")
	}
}

func TestAlertCooldownDefault(t *testing.T) {
	a := newLoginAlerter(AlertConfig{}, zerolog.Nop())
	if a.cfg.Cooldown != 30*time.Second {
		t.Fatalf("expected 30s default cooldown, got %v", a.cfg.Cooldown)
	}
}

func TestAlertFireDisabledIsNoOp(t *testing.T) {
	a := newLoginAlerter(AlertConfig{}, zerolog.Nop())
	a.Fire("bob", "10.0.0.1", "curl/8.0")

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.lastSent) != 0 {
		t.Fatal("disabled notifier must not track attempts")
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		remote string
		xff    string
		xri    string
		want   string
	}{
		{remote: "10.1.2.3:9999", want: "10.1.2.3"},
		{remote: "10.1.2.3:9999", xff: "203.0.113.7", want: "203.0.113.7"},
		{remote: "10.1.2.3:9999", xff: "203.0.113.7, 10.0.0.1", want: "203.0.113.7"},
		{remote: "10.1.2.3:9999", xff: "203.0.113.7 , 10.0.0.1", want: "203.0.113.7"},
		{remote: "10.1.2.3:9999", xff: "  203.0.113.7  ", want: "203.0.113.7"},
		{remote: "10.1.2.3:9999", xri: "198.51.100.4", want: "198.51.100.4"},
		{remote: "10.1.2.3:9999", xff: "203.0.113.7", xri: "198.51.100.4", want: "203.0.113.7"},
		{remote: "10.1.2.3", want: "10.1.2.3"},
	}
	for i, tc := range cases {
		r := httptest.NewRequest("GET", "/login", nil)
		r.RemoteAddr = tc.remote
		if tc.xff != "" {
			r.Header.Set("X-Forwarded-For", tc.xff)
		}
		if tc.xri != "" {
			r.Header.Set("X-Real-IP", tc.xri)
		}
		if got := clientIP(r); got != tc.want {
			t.Errorf("case %d: clientIP = %q, want %q", i, got, tc.want)
		}
	}
}
