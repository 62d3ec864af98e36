package gateway

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// Session cookie defaults. The cookie is the only persistent state this
// gateway manages: the browser never gets script-level access to the token.
const (
	DefaultCookieName   = "auth_token"
	DefaultCookieMaxAge = 30 * 24 * time.Hour
)

// ErrSecureCookiesRequired is returned when secure cookies are configured
// but the request did not arrive over a secure channel.
var ErrSecureCookiesRequired = errors.New("gateway: secure cookies required over an insecure connection")

// CookiePolicy owns the session cookie lifecycle: issuing on login and
// register, reading on proxied calls, deleting on logout.
type CookiePolicy struct {
	name     string
	maxAge   time.Duration
	domain   string
	sameSite http.SameSite
	secure   bool
	trusted  *proxyMatcher
	logger   *slog.Logger
}

// CookieConfig configures a CookiePolicy. Zero values pick the defaults.
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Domain string

	// SameSite defaults to Lax.
	SameSite http.SameSite

	// Secure requires the Secure attribute; issuing then fails on
	// requests that are not known to be HTTPS.
	Secure bool

	// TrustedProxies lists IPs/CIDRs whose Forwarded and
	// X-Forwarded-Proto headers are believed for the Secure decision.
	TrustedProxies []string

	Logger *slog.Logger
}

// NewCookiePolicy creates a policy from config.
func NewCookiePolicy(cfg CookieConfig) *CookiePolicy {
	p := &CookiePolicy{
		name:     cfg.Name,
		maxAge:   cfg.MaxAge,
		domain:   cfg.Domain,
		sameSite: cfg.SameSite,
		secure:   cfg.Secure,
		logger:   cfg.Logger,
	}
	if p.name == "" {
		p.name = DefaultCookieName
	}
	if p.maxAge <= 0 {
		p.maxAge = DefaultCookieMaxAge
	}
	if p.sameSite == 0 {
		p.sameSite = http.SameSiteLaxMode
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.trusted = newProxyMatcher(cfg.TrustedProxies, p.logger)
	return p
}

// Name returns the session cookie name.
func (p *CookiePolicy) Name() string { return p.name }

// Token reads the session token from the request cookie.
func (p *CookiePolicy) Token(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(p.name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// SessionCookie builds the Set-Cookie for a freshly issued token.
func (p *CookiePolicy) SessionCookie(r *http.Request, token string) (*http.Cookie, error) {
	secure, err := p.secureFlag(r)
	if err != nil {
		return nil, err
	}

	cookie := &http.Cookie{
		Name:     p.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(p.maxAge / time.Second),
		HttpOnly: true,
		SameSite: p.sameSite,
		Secure:   secure,
	}
	if p.domain != "" {
		cookie.Domain = p.domain
	}
	return cookie, nil
}

// DeleteCookie builds the Set-Cookie that clears the session. It cannot
// fail: cookie deletion is the authoritative definition of "logged out" and
// must happen even when everything else goes wrong.
func (p *CookiePolicy) DeleteCookie(r *http.Request) *http.Cookie {
	secure, err := p.secureFlag(r)
	if err != nil {
		// Deleting without the Secure attribute is still a delete.
		secure = false
	}

	cookie := &http.Cookie{
		Name:     p.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: p.sameSite,
		Secure:   secure,
	}
	if p.domain != "" {
		cookie.Domain = p.domain
	}
	return cookie
}

func (p *CookiePolicy) secureFlag(r *http.Request) (bool, error) {
	if !p.secure {
		return false, nil
	}
	if p.isRequestSecure(r) {
		return true, nil
	}
	return false, ErrSecureCookiesRequired
}

func (p *CookiePolicy) isRequestSecure(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if !p.trusted.IsTrusted(remoteIP(r)) {
		return false
	}

	if proto := forwardedProto(r.Header.Get("Forwarded")); proto != "" {
		return isSecureProto(proto)
	}
	if proto := forwardedHeaderValue(r.Header.Get("X-Forwarded-Proto")); proto != "" {
		return isSecureProto(proto)
	}
	return false
}

// forwardedProto extracts the proto parameter from an RFC 7239 Forwarded
// header, first hop only.
func forwardedProto(header string) string {
	if header == "" {
		return ""
	}
	first := strings.TrimSpace(strings.Split(header, ",")[0])
	for _, param := range strings.Split(first, ";") {
		kv := strings.SplitN(strings.TrimSpace(param), "=", 2)
		if len(kv) != 2 {
			continue
		}
		if strings.EqualFold(kv[0], "proto") {
			return strings.ToLower(strings.Trim(strings.TrimSpace(kv[1]), `"`))
		}
	}
	return ""
}

func forwardedHeaderValue(header string) string {
	if header == "" {
		return ""
	}
	return strings.ToLower(strings.Trim(strings.TrimSpace(strings.Split(header, ",")[0]), `"`))
}

func isSecureProto(proto string) bool {
	switch proto {
	case "https", "wss":
		return true
	default:
		return false
	}
}

func remoteIP(r *http.Request) net.IP {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return nil
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if zone := strings.Index(host, "%"); zone != -1 {
		host = host[:zone]
	}
	return net.ParseIP(host)
}

// proxyMatcher matches request IPs against the trusted proxy list.
type proxyMatcher struct {
	ips  map[string]struct{}
	nets []*net.IPNet
}

func newProxyMatcher(entries []string, logger *slog.Logger) *proxyMatcher {
	if len(entries) == 0 {
		return nil
	}

	ips := make(map[string]struct{})
	var nets []*net.IPNet

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, network, err := net.ParseCIDR(entry)
			if err != nil {
				logger.Warn("invalid trusted proxy CIDR", "entry", entry, "error", err)
				continue
			}
			nets = append(nets, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			logger.Warn("invalid trusted proxy IP", "entry", entry)
			continue
		}
		ips[ip.String()] = struct{}{}
	}

	if len(ips) == 0 && len(nets) == 0 {
		return nil
	}
	return &proxyMatcher{ips: ips, nets: nets}
}

func (m *proxyMatcher) IsTrusted(ip net.IP) bool {
	if m == nil || ip == nil {
		return false
	}
	if _, ok := m.ips[ip.String()]; ok {
		return true
	}
	for _, network := range m.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
