package gateway

import (
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCookiePolicyDefaults(t *testing.T) {
	p := NewCookiePolicy(CookieConfig{})

	if p.Name() != DefaultCookieName {
		t.Errorf("name = %q, want %q", p.Name(), DefaultCookieName)
	}

	cookie, err := p.SessionCookie(httptest.NewRequest(http.MethodPost, "/", nil), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cookie.MaxAge != int(DefaultCookieMaxAge/time.Second) {
		t.Errorf("max-age = %d, want %d", cookie.MaxAge, 2592000)
	}
	if !cookie.HttpOnly || cookie.Path != "/" {
		t.Errorf("cookie = %+v, want httpOnly at /", cookie)
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("samesite = %v, want Lax", cookie.SameSite)
	}
}

func TestCookiePolicySecure(t *testing.T) {
	t.Run("plain request with secure cookies required fails", func(t *testing.T) {
		p := NewCookiePolicy(CookieConfig{Secure: true})
		_, err := p.SessionCookie(httptest.NewRequest(http.MethodPost, "/", nil), "tok")
		if !errors.Is(err, ErrSecureCookiesRequired) {
			t.Fatalf("expected ErrSecureCookiesRequired, got %v", err)
		}
	})

	t.Run("TLS request gets a secure cookie", func(t *testing.T) {
		p := NewCookiePolicy(CookieConfig{Secure: true})
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.TLS = &tls.ConnectionState{}

		cookie, err := p.SessionCookie(r, "tok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cookie.Secure {
			t.Error("expected Secure attribute")
		}
	})

	t.Run("forwarded proto from a trusted proxy counts", func(t *testing.T) {
		p := NewCookiePolicy(CookieConfig{
			Secure:         true,
			TrustedProxies: []string{"10.0.0.0/8"},
		})
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.RemoteAddr = "10.1.2.3:4567"
		r.Header.Set("X-Forwarded-Proto", "https")

		cookie, err := p.SessionCookie(r, "tok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cookie.Secure {
			t.Error("expected Secure attribute")
		}
	})

	t.Run("forwarded proto from an untrusted address does not", func(t *testing.T) {
		p := NewCookiePolicy(CookieConfig{
			Secure:         true,
			TrustedProxies: []string{"10.0.0.0/8"},
		})
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.RemoteAddr = "203.0.113.9:4567"
		r.Header.Set("X-Forwarded-Proto", "https")

		if _, err := p.SessionCookie(r, "tok"); !errors.Is(err, ErrSecureCookiesRequired) {
			t.Fatalf("expected ErrSecureCookiesRequired, got %v", err)
		}
	})

	t.Run("RFC 7239 Forwarded header is understood", func(t *testing.T) {
		p := NewCookiePolicy(CookieConfig{
			Secure:         true,
			TrustedProxies: []string{"10.0.0.1"},
		})
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.RemoteAddr = "10.0.0.1:999"
		r.Header.Set("Forwarded", `for=198.51.100.17;proto=https, for=10.0.0.1`)

		cookie, err := p.SessionCookie(r, "tok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cookie.Secure {
			t.Error("expected Secure attribute")
		}
	})
}

func TestDeleteCookieNeverFails(t *testing.T) {
	// Even with secure cookies demanded on an insecure request, deletion
	// must still produce a valid expiry instruction.
	p := NewCookiePolicy(CookieConfig{Secure: true})
	cookie := p.DeleteCookie(httptest.NewRequest(http.MethodPost, "/", nil))

	if cookie.Value != "" {
		t.Errorf("value = %q, want empty", cookie.Value)
	}
	if cookie.MaxAge >= 0 {
		t.Errorf("max-age = %d, want immediate expiry", cookie.MaxAge)
	}
}

func TestCookieToken(t *testing.T) {
	p := NewCookiePolicy(CookieConfig{})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := p.Token(r); ok {
		t.Error("expected no token without a cookie")
	}

	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "tok123"})
	token, ok := p.Token(r)
	if !ok || token != "tok123" {
		t.Errorf("token = %q, ok = %v", token, ok)
	}
}

func TestForwardedProtoParsing(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{`proto=https`, "https"},
		{`for=192.0.2.60;proto=HTTPS;by=203.0.113.43`, "https"},
		{`proto="https"`, "https"},
		{`proto=http, proto=https`, "http"},
		{`for=192.0.2.60`, ""},
		{``, ""},
	}

	for _, tt := range tests {
		if got := forwardedProto(tt.header); got != tt.want {
			t.Errorf("forwardedProto(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
