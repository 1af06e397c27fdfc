// Package endpoint validates the base URLs of remote services against a host
// allowlist.
package endpoint

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

type Policy struct {
	// Env names the setting in error messages, e.g. OPENROUTER_BASE_URL.
	Env          string
	AllowEnv     string
	DefaultURL   string
	DefaultHosts []string
	// LoopbackHTTP permits plain http to localhost addresses.
	LoopbackHTTP bool
}

func (p Policy) Normalize(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = p.DefaultURL
	}
	return strings.TrimRight(baseURL, "/")
}

func (p Policy) Validate(baseURL string, allowedHosts []string) error {
	baseURL = p.Normalize(baseURL)

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", p.Env, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("invalid %s %q: absolute URL with host is required", p.Env, baseURL)
	}
	if u.User != nil {
		return fmt.Errorf("invalid %s %q: userinfo is not allowed", p.Env, baseURL)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("invalid %s %q: query and fragment are not allowed", p.Env, baseURL)
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("invalid %s %q: host is required", p.Env, baseURL)
	}

	switch {
	case scheme == "https":
	case scheme == "http" && p.LoopbackHTTP && isLoopback(host):
	default:
		return fmt.Errorf("invalid %s %q: https is required", p.Env, baseURL)
	}

	allowed := p.allowed(allowedHosts)
	if _, ok := allowed[host]; !ok {
		return fmt.Errorf("invalid %s %q: host %q is not in %s", p.Env, baseURL, host, p.AllowEnv)
	}
	return nil
}

func (p Policy) allowed(allowedHosts []string) map[string]struct{} {
	out := normalizeHosts(allowedHosts)
	if len(out) == 0 {
		out = normalizeHosts(p.DefaultHosts)
	}
	return out
}

func normalizeHosts(hosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if v == "" {
			continue
		}
		if host, _, err := net.SplitHostPort(v); err == nil {
			v = host
		}
		out[v] = struct{}{}
	}
	return out
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// SplitHosts parses a comma separated allowlist setting.
func SplitHosts(s string) []string {
	var out []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
