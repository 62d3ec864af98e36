// Package config loads and validates pixelvault.json, the admin
// console's configuration file. Environment variables override file
// values so deployments can keep secrets out of the file.
package config

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pixelvault/admin/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "pixelvault.json"

	// DefaultAddr is the default listen address.
	DefaultAddr = ":8080"

	// DefaultCookieName matches the session cookie the backend expects.
	DefaultCookieName = "auth_token"

	// DefaultCookieMaxAge keeps sessions for 30 days.
	DefaultCookieMaxAge = "720h"

	// DefaultDashboard is where both roles land after login.
	DefaultDashboard = "/dashboard"
)

// Config is the complete pixelvault.json configuration.
type Config struct {
	// Name is the deployment name, used in logs.
	Name string `json:"name,omitempty"`

	// Server configures the HTTP listener.
	Server ServerConfig `json:"server,omitempty"`

	// Backend configures the upstream API the gateway proxies to.
	Backend BackendConfig `json:"backend,omitempty"`

	// Cookie configures the session cookie.
	Cookie CookieConfig `json:"cookie,omitempty"`

	// Redirects maps roles to post-login destinations.
	Redirects RedirectConfig `json:"redirects,omitempty"`

	// Media configures image upload staging.
	Media MediaConfig `json:"media,omitempty"`

	// Observability configures metrics and tracing.
	Observability ObservabilityConfig `json:"observability,omitempty"`

	configPath string
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address (host:port).
	Addr string `json:"addr,omitempty"`

	// TrustedProxies lists IPs or CIDR ranges whose Forwarded headers
	// are believed when deciding whether a request arrived over TLS.
	TrustedProxies []string `json:"trustedProxies,omitempty"`

	// ReadTimeout and WriteTimeout use Go duration syntax.
	ReadTimeout  string `json:"readTimeout,omitempty"`
	WriteTimeout string `json:"writeTimeout,omitempty"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout string `json:"shutdownTimeout,omitempty"`
}

// BackendConfig configures the upstream API.
type BackendConfig struct {
	// URL is the backend base URL. Required.
	URL string `json:"url,omitempty"`

	// Timeout bounds one proxied call.
	Timeout string `json:"timeout,omitempty"`
}

// CookieConfig configures the session cookie.
type CookieConfig struct {
	Name   string `json:"name,omitempty"`
	Domain string `json:"domain,omitempty"`

	// MaxAge uses Go duration syntax.
	MaxAge string `json:"maxAge,omitempty"`

	// SameSite is "lax", "strict", or "none".
	SameSite string `json:"sameSite,omitempty"`

	// Secure requires the Secure attribute; login then fails on
	// requests not known to be HTTPS. Enable in production.
	Secure bool `json:"secure,omitempty"`
}

// RedirectConfig maps roles to post-login destinations.
type RedirectConfig struct {
	ByRole  map[string]string `json:"byRole,omitempty"`
	Default string            `json:"default,omitempty"`
}

// MediaConfig configures image upload staging.
type MediaConfig struct {
	// Dir is the disk staging directory. Ignored when S3 is configured.
	Dir string `json:"dir,omitempty"`

	// MaxUploadBytes caps one image upload.
	MaxUploadBytes int64 `json:"maxUploadBytes,omitempty"`

	// StageTTL is how long an unclaimed image survives.
	StageTTL string `json:"stageTTL,omitempty"`

	// S3, when Bucket is set, stages images in S3 instead of on disk.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config configures S3 staging.
type S3Config struct {
	Bucket        string `json:"bucket,omitempty"`
	Prefix        string `json:"prefix,omitempty"`
	Region        string `json:"region,omitempty"`
	PublicBaseURL string `json:"publicBaseURL,omitempty"`
}

// ObservabilityConfig configures metrics and tracing.
type ObservabilityConfig struct {
	// MetricsPath is where Prometheus metrics are served.
	MetricsPath string `json:"metricsPath,omitempty"`

	// TraceService is the tracer name reported on spans.
	TraceService string `json:"traceService,omitempty"`
}

// New returns a Config with default values.
func New() *Config {
	return &Config{
		Name: "pixelvault-admin",
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ReadTimeout:     "15s",
			WriteTimeout:    "15s",
			ShutdownTimeout: "10s",
		},
		Backend: BackendConfig{
			Timeout: "10s",
		},
		Cookie: CookieConfig{
			Name:     DefaultCookieName,
			MaxAge:   DefaultCookieMaxAge,
			SameSite: "lax",
		},
		Redirects: RedirectConfig{
			ByRole: map[string]string{
				"admin":  DefaultDashboard,
				"member": DefaultDashboard,
			},
			Default: DefaultDashboard,
		},
		Media: MediaConfig{
			Dir:            "data/staging",
			MaxUploadBytes: 10 << 20,
			StageTTL:       "1h",
			S3: S3Config{
				Prefix: "staging/",
			},
		},
		Observability: ObservabilityConfig{
			MetricsPath:  "/metrics",
			TraceService: "pixelvault-admin",
		},
	}
}

// Load reads configuration from dir/pixelvault.json and applies
// environment overrides. A missing file is not an error; defaults plus
// environment still have to pass Validate.
func Load(dir string) (*Config, error) {
	return LoadFile(strings.TrimSuffix(dir, "/") + "/" + ConfigFileName)
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus environment.
	case err != nil:
		return nil, errors.New("E100").WithDetail("Could not read " + path + ".").Wrap(err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E101").Wrap(err)
		}
		cfg.configPath = path
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path reports where the config was loaded from, empty when running on
// defaults.
func (c *Config) Path() string {
	return c.configPath
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Server.Addr, "PIXELVAULT_ADDR")
	set(&c.Backend.URL, "PIXELVAULT_BACKEND_URL")
	set(&c.Cookie.Name, "PIXELVAULT_COOKIE_NAME")
	set(&c.Cookie.Domain, "PIXELVAULT_COOKIE_DOMAIN")
	set(&c.Media.Dir, "PIXELVAULT_MEDIA_DIR")
	set(&c.Media.S3.Bucket, "PIXELVAULT_S3_BUCKET")
	set(&c.Media.S3.Region, "PIXELVAULT_S3_REGION")

	if v := os.Getenv("PIXELVAULT_TRUSTED_PROXIES"); v != "" {
		parts := strings.Split(v, ",")
		proxies := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				proxies = append(proxies, p)
			}
		}
		c.Server.TrustedProxies = proxies
	}
	if v := os.Getenv("PIXELVAULT_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.Media.MaxUploadBytes = n
		}
	}
}

// Validate checks the configuration and returns a structured error for
// the first problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if c.Backend.URL == "" || err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		e := errors.New("E102")
		if err != nil {
			e.Wrap(err)
		}
		return e
	}

	for field, v := range map[string]string{
		"server.readTimeout":     c.Server.ReadTimeout,
		"server.writeTimeout":    c.Server.WriteTimeout,
		"server.shutdownTimeout": c.Server.ShutdownTimeout,
		"backend.timeout":        c.Backend.Timeout,
		"cookie.maxAge":          c.Cookie.MaxAge,
		"media.stageTTL":         c.Media.StageTTL,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return errors.New("E103").WithDetail(field + " is " + strconv.Quote(v) + ".").Wrap(err)
		}
	}

	for _, p := range c.Server.TrustedProxies {
		if net.ParseIP(p) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(p); err != nil {
			return errors.New("E104").WithDetail("Entry " + strconv.Quote(p) + " parses as neither.").Wrap(err)
		}
	}

	switch strings.ToLower(c.Cookie.SameSite) {
	case "", "lax", "strict", "none":
	default:
		return errors.New("E106").WithDetail("cookie.sameSite is " + strconv.Quote(c.Cookie.SameSite) + ".")
	}

	if c.Media.S3.Bucket == "" && c.Media.Dir == "" {
		return errors.New("E105")
	}
	return nil
}

// duration parses v, falling back when v is empty or invalid. Validate
// rejects invalid values, so after a successful load the fallback only
// covers empty fields.
func duration(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// CookieMaxAge returns the session cookie lifetime.
func (c *Config) CookieMaxAge() time.Duration {
	return duration(c.Cookie.MaxAge, 30*24*time.Hour)
}

// CookieSameSite maps the configured mode to http.SameSite.
func (c *Config) CookieSameSite() http.SameSite {
	switch strings.ToLower(c.Cookie.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// BackendTimeout bounds one proxied backend call.
func (c *Config) BackendTimeout() time.Duration {
	return duration(c.Backend.Timeout, 10*time.Second)
}

// StageTTL is how long unclaimed media staging survives.
func (c *Config) StageTTL() time.Duration {
	return duration(c.Media.StageTTL, time.Hour)
}

// ReadTimeout for the HTTP server.
func (c *Config) ReadTimeout() time.Duration {
	return duration(c.Server.ReadTimeout, 15*time.Second)
}

// WriteTimeout for the HTTP server.
func (c *Config) WriteTimeout() time.Duration {
	return duration(c.Server.WriteTimeout, 15*time.Second)
}

// ShutdownTimeout bounds graceful shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return duration(c.Server.ShutdownTimeout, 10*time.Second)
}
