package types

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateWebhookURL checks that a webhook endpoint is structurally usable
// for card delivery: absolute, HTTPS, and with a non-empty host. SSRF
// checks run at delivery time against resolved addresses, not here.
func ValidateWebhookURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("%s: webhook URL is empty", ErrCodeConfigInvalid)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s: webhook URL is not parseable: %w", ErrCodeConfigInvalid, err)
	}
	if parsed.Scheme != "https" {
		return fmt.Errorf("%s: webhook URL must use HTTPS", ErrCodeConfigInvalid)
	}
	if parsed.Hostname() == "" {
		return fmt.Errorf("%s: webhook URL has no host", ErrCodeConfigInvalid)
	}
	return nil
}

// SSRFBlockedCIDRs defines the IP ranges that MUST be blocked for SSRF protection.
var SSRFBlockedCIDRs = []string{
	"127.0.0.0/8",    // Localhost
	"10.0.0.0/8",     // Private Class A
	"172.16.0.0/12",  // Private Class B
	"192.168.0.0/16", // Private Class C
	"169.254.0.0/16", // Link-local (AWS Metadata!)
	"0.0.0.0/8",      // Current network
	"224.0.0.0/4",    // Multicast
	"240.0.0.0/4",    // Reserved
	"100.64.0.0/10",  // Shared Address Space (CGN)
	"198.18.0.0/15",  // Benchmark testing
	"fc00::/7",       // IPv6 private
	"fe80::/10",      // IPv6 link-local
	"::1/128",        // IPv6 localhost
}
