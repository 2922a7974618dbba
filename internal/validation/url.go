package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// CatalogURLValidator checks the base URL of the remote catalog service and
// any outbound links (trailers) before they are handed to an opener.
type CatalogURLValidator struct {
	// AllowLocalhost permits loopback hosts, used with local mirrors and in tests
	AllowLocalhost bool
	// AllowPrivateIPs permits RFC1918 and link-local addresses
	AllowPrivateIPs bool
	// AllowHTTP permits plain http; https is required otherwise
	AllowHTTP bool
	// MaxLength is the maximum allowed URL length
	MaxLength int
}

// NewCatalogURLValidator creates a validator with secure defaults
func NewCatalogURLValidator() *CatalogURLValidator {
	return &CatalogURLValidator{
		MaxLength: 2048,
	}
}

// NewPermissiveCatalogURLValidator allows local development servers
func NewPermissiveCatalogURLValidator() *CatalogURLValidator {
	return &CatalogURLValidator{
		AllowLocalhost:  true,
		AllowPrivateIPs: true,
		AllowHTTP:       true,
		MaxLength:       2048,
	}
}

// ValidateAndNormalize validates a base URL and returns it without a trailing slash.
func (v *CatalogURLValidator) ValidateAndNormalize(input string) (string, error) {
	input = strings.TrimSpace(input)

	if input == "" {
		return "", fmt.Errorf("URL cannot be empty")
	}
	if len(input) > v.MaxLength {
		return "", fmt.Errorf("URL too long (max %d characters)", v.MaxLength)
	}
	if strings.ContainsAny(input, "<>\"'` ") {
		return "", fmt.Errorf("URL contains invalid characters")
	}

	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		input = "https://" + input
	}

	parsedURL, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}

	switch parsedURL.Scheme {
	case "https":
	case "http":
		if !v.AllowHTTP {
			return "", fmt.Errorf("URL must use https")
		}
	default:
		return "", fmt.Errorf("URL must use http or https protocol")
	}

	if parsedURL.Host == "" {
		return "", fmt.Errorf("URL must have a valid hostname")
	}
	if err := v.validateHostSecurity(parsedURL.Host); err != nil {
		return "", err
	}
	if strings.Contains(parsedURL.Path, "..") {
		return "", fmt.Errorf("directory traversal patterns not allowed in URL path")
	}

	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")
	parsedURL.Fragment = ""
	return parsedURL.String(), nil
}

// validateHostSecurity performs security checks on the hostname
func (v *CatalogURLValidator) validateHostSecurity(host string) error {
	hostname := host
	if strings.Contains(host, ":") {
		var err error
		hostname, _, err = net.SplitHostPort(host)
		if err != nil {
			return fmt.Errorf("invalid host format: %w", err)
		}
	}

	if !v.AllowLocalhost && isLocalhost(hostname) {
		return fmt.Errorf("localhost URLs are not permitted")
	}

	if !v.AllowPrivateIPs {
		if ip := net.ParseIP(hostname); ip != nil && isPrivateIP(ip) {
			return fmt.Errorf("private IP addresses are not permitted")
		}
	}

	if hostname == "0.0.0.0" || hostname == "255.255.255.255" {
		return fmt.Errorf("suspicious hostname detected")
	}

	return nil
}

// isLocalhost checks if a hostname refers to localhost
func isLocalhost(hostname string) bool {
	return hostname == "localhost" ||
		hostname == "127.0.0.1" ||
		hostname == "::1" ||
		strings.HasSuffix(hostname, ".localhost")
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast()
}
