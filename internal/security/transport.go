// Package security provides SSRF protection for outbound HTTP requests.
//
// The webhook URL is operator-supplied configuration, so the delivery client
// must never be coaxed into reaching internal infrastructure such as the
// cloud metadata service (169.254.169.254), localhost, or private network
// ranges. SafeTransport wraps http.Transport to enforce IP blocklists at
// dial time, covering both the initial request and any redirects.
package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"cardcast/internal/types"
)

// dnsTimeout is the maximum time allowed for DNS resolution.
const dnsTimeout = 500 * time.Millisecond

// ErrSSRFBlocked is returned when a request targets a blocked IP range.
var ErrSSRFBlocked = errors.New("ssrf: request to blocked IP range")

// ErrSSRFDNSTimeout is returned when DNS resolution exceeds the timeout.
var ErrSSRFDNSTimeout = errors.New("ssrf: DNS resolution timeout")

// ErrSSRFTooManyRedirects is returned when the redirect limit is exceeded.
var ErrSSRFTooManyRedirects = errors.New("ssrf: too many redirects")

// ErrSSRFDNSFailed is returned when DNS resolution fails entirely.
var ErrSSRFDNSFailed = errors.New("ssrf: DNS resolution failed")

// blockedNets holds the parsed CIDR blocks. Initialized once via sync.Once.
var (
	blockedNets []*net.IPNet
	initOnce    sync.Once
	initErr     error
)

// initBlockedNets parses types.SSRFBlockedCIDRs into net.IPNet structures.
// This is called once on first use for efficient runtime lookups.
func initBlockedNets() {
	initOnce.Do(func() {
		blockedNets = make([]*net.IPNet, 0, len(types.SSRFBlockedCIDRs))
		for _, cidr := range types.SSRFBlockedCIDRs {
			_, ipNet, err := net.ParseCIDR(cidr)
			if err != nil {
				initErr = fmt.Errorf("ssrf: failed to parse CIDR %q: %w", cidr, err)
				return
			}
			blockedNets = append(blockedNets, ipNet)
		}
	})
}

// isBlockedIP checks if the given IP falls within any blocked CIDR range.
func isBlockedIP(ip net.IP) bool {
	for _, ipNet := range blockedNets {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// Resolver abstracts DNS resolution for testability.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// netResolver wraps net.Resolver to satisfy the Resolver interface.
type netResolver struct {
	r *net.Resolver
}

func (nr *netResolver) LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error) {
	return nr.r.LookupIPAddr(ctx, host)
}

// resolveHost turns a host into the set of addresses that are safe to dial.
// IP literals are checked against the blocklist without a DNS round trip.
// Hostnames are resolved with a strict timeout, and every resolved address
// must be safe: a single private address in the answer set poisons the whole
// lookup, which is the defence against DNS rebinding.
func resolveHost(ctx context.Context, host string, resolver Resolver) ([]net.IPAddr, error) {
	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return nil, fmt.Errorf("%w: %s", ErrSSRFBlocked, ip.String())
		}
		return []net.IPAddr{{IP: ip}}, nil
	}

	dnsCtx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	ips, err := resolver.LookupIPAddr(dnsCtx, host)
	if err != nil {
		if dnsCtx.Err() != nil {
			return nil, fmt.Errorf("%w: host %q", ErrSSRFDNSTimeout, host)
		}
		return nil, fmt.Errorf("%w: host %q: %v", ErrSSRFDNSFailed, host, err)
	}

	if len(ips) == 0 {
		return nil, fmt.Errorf("%w: host %q resolved to no addresses", ErrSSRFDNSFailed, host)
	}

	for _, ipAddr := range ips {
		if isBlockedIP(ipAddr.IP) {
			return nil, fmt.Errorf("%w: %s (resolved from %s)", ErrSSRFBlocked, ipAddr.IP.String(), host)
		}
	}

	return ips, nil
}

// SafeTransport wraps http.Transport to enforce IP blocklists. It validates
// all resolved IPs during connection establishment, ensuring that no request
// can reach internal infrastructure regardless of what the configured
// webhook URL resolves to.
type SafeTransport struct {
	// Base is the underlying http.Transport used for actual connections.
	Base *http.Transport

	// Resolver is used for DNS lookups. If nil, net.DefaultResolver is used.
	// Exposed for testing.
	Resolver Resolver
}

// NewSafeTransport creates a SafeTransport wrapping the provided base transport.
// If base is nil, a default http.Transport is used.
func NewSafeTransport(base *http.Transport) (*SafeTransport, error) {
	initBlockedNets()
	if initErr != nil {
		return nil, fmt.Errorf("ssrf: initialization failed: %w", initErr)
	}

	if base == nil {
		base = &http.Transport{}
	}

	st := &SafeTransport{Base: base}

	// Override the DialContext on the base transport to inject IP validation.
	base.DialContext = st.safeDialContext

	return st, nil
}

// RoundTrip implements http.RoundTripper. It delegates to the base transport
// which has its DialContext overridden with SSRF validation.
func (st *SafeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return st.Base.RoundTrip(req)
}

// safeDialContext validates the target host via resolveHost and dials the
// first safe address.
func (st *SafeTransport) safeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("ssrf: invalid address %q: %w", addr, err)
	}

	ips, err := resolveHost(ctx, host, st.getResolver())
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{}
	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
}

// getResolver returns the configured Resolver, or the default net.Resolver.
func (st *SafeTransport) getResolver() Resolver {
	if st.Resolver != nil {
		return st.Resolver
	}
	return &netResolver{r: net.DefaultResolver}
}

// CheckRedirect returns an http.Client CheckRedirect function that validates
// redirect targets against the SSRF blocklist. It also enforces a maximum
// number of redirects.
//
// maxRedirects specifies the maximum number of redirects to follow.
// resolver is optional; if nil, net.DefaultResolver is used.
func CheckRedirect(maxRedirects int, resolver Resolver) func(req *http.Request, via []*http.Request) error {
	initBlockedNets()

	if resolver == nil {
		resolver = &netResolver{r: net.DefaultResolver}
	}

	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("%w: limit is %d", ErrSSRFTooManyRedirects, maxRedirects)
		}

		host := req.URL.Hostname()
		if host == "" {
			return fmt.Errorf("%w: redirect URL has no host", ErrSSRFBlocked)
		}

		_, err := resolveHost(req.Context(), host, resolver)
		return err
	}
}

// CheckURL validates a webhook destination before any request is sent. IP
// literals in blocked ranges are refused immediately so a misconfigured
// endpoint fails at startup rather than on the first event. Hostnames are
// accepted here and left to dial-time validation, where every resolved
// address is checked.
func CheckURL(rawURL string) error {
	initBlockedNets()
	if initErr != nil {
		return fmt.Errorf("ssrf: initialization failed: %w", initErr)
	}

	host := extractHost(rawURL)
	if host == "" {
		return fmt.Errorf("%w: unable to extract host from URL", ErrSSRFBlocked)
	}

	if ip := net.ParseIP(host); ip != nil && isBlockedIP(ip) {
		return fmt.Errorf("%w: %s", ErrSSRFBlocked, ip.String())
	}

	return nil
}

// NewSafeHTTPClient creates an http.Client configured with SafeTransport
// and SSRF-aware redirect checking. This is the client the delivery layer
// uses for every webhook POST.
func NewSafeHTTPClient(timeout time.Duration, maxRedirects int) (*http.Client, error) {
	transport, err := NewSafeTransport(nil)
	if err != nil {
		return nil, err
	}

	return &http.Client{
		Transport:     transport,
		Timeout:       timeout,
		CheckRedirect: CheckRedirect(maxRedirects, transport.Resolver),
	}, nil
}

// extractHost parses the hostname from a URL string using net/url.
// Returns empty string if parsing fails.
func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
