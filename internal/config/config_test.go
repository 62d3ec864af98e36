package config

import (
	stderrors "errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pixelvault/admin/internal/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var ae *errors.AdminError
	if !stderrors.As(err, &ae) {
		t.Fatalf("err = %v, want *errors.AdminError", err)
	}
	return ae.Code
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	dir := writeConfig(t, `{
		"name": "pixelvault-staging",
		"server": {"addr": ":9000", "trustedProxies": ["10.0.0.0/8"]},
		"backend": {"url": "https://api.pixelvault.example", "timeout": "5s"},
		"cookie": {"maxAge": "24h", "sameSite": "strict"},
		"media": {"dir": "/tmp/staging"}
	}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "pixelvault-staging" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.CookieMaxAge() != 24*time.Hour {
		t.Errorf("cookie max age = %v", cfg.CookieMaxAge())
	}
	if cfg.CookieSameSite() != http.SameSiteStrictMode {
		t.Errorf("same site = %v", cfg.CookieSameSite())
	}
	if cfg.BackendTimeout() != 5*time.Second {
		t.Errorf("backend timeout = %v", cfg.BackendTimeout())
	}
	if cfg.Path() == "" {
		t.Error("Path() empty after loading a file")
	}
	// Untouched fields keep their defaults.
	if cfg.Cookie.Name != DefaultCookieName {
		t.Errorf("cookie name = %q", cfg.Cookie.Name)
	}
	if cfg.Observability.MetricsPath != "/metrics" {
		t.Errorf("metrics path = %q", cfg.Observability.MetricsPath)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PIXELVAULT_BACKEND_URL", "http://api.internal:9000")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Backend.URL != "http://api.internal:9000" {
		t.Errorf("backend url = %q", cfg.Backend.URL)
	}
	if cfg.Path() != "" {
		t.Errorf("Path() = %q, want empty", cfg.Path())
	}
	if cfg.CookieMaxAge() != 30*24*time.Hour {
		t.Errorf("default cookie max age = %v", cfg.CookieMaxAge())
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := writeConfig(t, `{"backend": {"url": "https://api.pixelvault.example"}, "server": {"addr": ":9000"}}`)
	t.Setenv("PIXELVAULT_ADDR", ":7000")
	t.Setenv("PIXELVAULT_TRUSTED_PROXIES", "10.0.0.1, 192.168.0.0/16")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("addr = %q, env should win", cfg.Server.Addr)
	}
	want := []string{"10.0.0.1", "192.168.0.0/16"}
	if len(cfg.Server.TrustedProxies) != len(want) {
		t.Fatalf("proxies = %v", cfg.Server.TrustedProxies)
	}
	for i := range want {
		if cfg.Server.TrustedProxies[i] != want[i] {
			t.Errorf("proxy[%d] = %q, want %q", i, cfg.Server.TrustedProxies[i], want[i])
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{
			name:     "missing backend url",
			body:     `{}`,
			wantCode: "E102",
		},
		{
			name:     "backend url without scheme",
			body:     `{"backend": {"url": "api.pixelvault.example"}}`,
			wantCode: "E102",
		},
		{
			name:     "bad duration",
			body:     `{"backend": {"url": "http://api"}, "cookie": {"maxAge": "soon"}}`,
			wantCode: "E103",
		},
		{
			name:     "bad trusted proxy",
			body:     `{"backend": {"url": "http://api"}, "server": {"trustedProxies": ["not-an-ip"]}}`,
			wantCode: "E104",
		},
		{
			name:     "bad same site",
			body:     `{"backend": {"url": "http://api"}, "cookie": {"sameSite": "sideways"}}`,
			wantCode: "E106",
		},
		{
			name:     "no media storage",
			body:     `{"backend": {"url": "http://api"}, "media": {"dir": ""}}`,
			wantCode: "E105",
		},
		{
			name:     "invalid json",
			body:     `{"backend":`,
			wantCode: "E101",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if code := errorCode(t, err); code != tt.wantCode {
				t.Errorf("code = %s, want %s", code, tt.wantCode)
			}
		})
	}
}

func TestS3BucketSatisfiesMediaStorage(t *testing.T) {
	dir := writeConfig(t, `{
		"backend": {"url": "http://api"},
		"media": {"dir": "", "s3": {"bucket": "pixelvault-media"}}
	}`)
	if _, err := Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
}
