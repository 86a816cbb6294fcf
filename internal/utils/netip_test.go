package utils

import (
	"net/http/httptest"
	"testing"
)

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"127.0.0.1/32", " ::1/128 ", "10.0.0.0/8", "192.168.1.7", "garbage", ""})

	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", true},
		{"127.0.0.2", false},
		{"::1", true},
		{"10.200.3.4", true},
		{"192.168.1.7", true},
		{"192.168.1.8", false},
		{"::ffff:127.0.0.1", true},
		{"not-an-ip", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := m.Allow(tt.ip); got != tt.want {
			t.Errorf("Allow(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}

	if NewIPMatcher([]string{"garbage"}).IsEmpty() != true {
		t.Error("matcher of invalid entries should be empty")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		xff        string
		realIP     string
		trustProxy bool
		want       string
	}{
		{"remote only", "10.0.0.1:1234", "", "", false, "10.0.0.1"},
		{"untrusted headers", "10.0.0.1:1234", "1.2.3.4", "5.6.7.8", false, "10.0.0.1"},
		{"first forwarded", "10.0.0.1:1234", " 1.2.3.4 , 9.9.9.9", "", true, "1.2.3.4"},
		{"real ip fallback", "10.0.0.1:1234", "", "5.6.7.8", true, "5.6.7.8"},
		{"v6 remote", "[::1]:80", "", "", false, "::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
