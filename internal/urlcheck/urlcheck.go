// Package urlcheck validates user-supplied URLs before the service fetches or
// calls them. It rejects URLs that resolve into private, loopback, link-local,
// or cloud metadata address space so job submissions cannot be used to probe
// the internal network.
package urlcheck

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

// Blocked IPv4 ranges. Covers RFC 1918, loopback, link-local (cloud metadata),
// carrier-grade NAT, benchmarking, and the zero network.
var blockedV4 = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("198.18.0.0/15"),
}

var blockedV6 = []netip.Prefix{
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

var blockedHostnames = map[string]struct{}{
	"localhost":                {},
	"metadata.google.internal": {},
	"metadata.goog":            {},
	"169.254.169.254":          {},
}

// Resolver resolves hostnames to IP addresses. Satisfied by *net.Resolver;
// tests inject a fake.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Checker validates outbound URLs.
type Checker struct {
	resolver Resolver

	// AllowHTTP relaxes ValidateHTTPS to accept plain http. Off in
	// production; the dev simulator posts to local test servers over http.
	AllowHTTP bool
}

// New creates a Checker using the system resolver.
func New() *Checker {
	return &Checker{resolver: net.DefaultResolver}
}

// NewWithResolver creates a Checker with a custom resolver.
func NewWithResolver(r Resolver) *Checker {
	return &Checker{resolver: r}
}

// Validate checks that rawURL is a safe outbound target with an http or
// https scheme. It verifies the hostname denylist, any literal IP, and every
// address the hostname resolves to. DNS results are checked here and again
// implicitly at connect time by the 10s client timeouts; a TOCTOU rebind
// window remains but is bounded.
func (c *Checker) Validate(ctx context.Context, rawURL string) error {
	return c.validate(ctx, rawURL, false)
}

// ValidateHTTPS is Validate with the scheme restricted to https. Webhook
// targets receive signed payloads and must not travel in the clear.
func (c *Checker) ValidateHTTPS(ctx context.Context, rawURL string) error {
	return c.validate(ctx, rawURL, !c.AllowHTTP)
}

func (c *Checker) validate(ctx context.Context, rawURL string, requireHTTPS bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "https":
	case "http":
		if requireHTTPS {
			return fmt.Errorf("URL scheme must be https")
		}
	default:
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return fmt.Errorf("URL has no host")
	}
	if _, denied := blockedHostnames[host]; denied {
		return fmt.Errorf("host %q is not allowed", host)
	}

	if addr, parseErr := netip.ParseAddr(host); parseErr == nil {
		if blockedAddr(addr) {
			return fmt.Errorf("IP address %s is not allowed", addr)
		}
		return nil
	}

	addrs, err := c.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("could not resolve host %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("host %q resolved to no addresses", host)
	}
	for _, addr := range addrs {
		if blockedAddr(addr) {
			return fmt.Errorf("host %q resolves to disallowed address %s", host, addr)
		}
	}
	return nil
}

func blockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	prefixes := blockedV4
	if addr.Is6() {
		prefixes = blockedV6
	}
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
