// Package security checks URLs users hand to the session before anything fetches them.
package security

import (
	"net/netip"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

var ErrDisallowedURL = errors.New("url is not allowed")

type RemoteURLOptions struct {
	// AllowHTTP permits plain HTTP URLs. HTTPS is always allowed.
	AllowHTTP bool
	// AllowLocalNetworks permits loopback, private and link-local targets and localhost names.
	AllowLocalNetworks bool
}

// ValidateRemoteURL rejects URLs with other schemes than http(s) and, unless allowed, URLs
// pointing into local networks. Host names are not resolved.
func ValidateRemoteURL(rawURL string, opts RemoteURLOptions) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrapf(ErrDisallowedURL, "invalid url: %v", err)
	}

	switch parsed.Scheme {
	case "https":
	case "http":
		if !opts.AllowHTTP {
			return errors.Wrap(ErrDisallowedURL, "http scheme is not allowed")
		}
	default:
		return errors.Wrapf(ErrDisallowedURL, "unsupported scheme %q", parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return errors.Wrap(ErrDisallowedURL, "url has no host")
	}
	if opts.AllowLocalNetworks {
		return nil
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return errors.Wrapf(ErrDisallowedURL, "local host name %q", host)
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	if addr.Zone() != "" {
		return errors.Wrapf(ErrDisallowedURL, "zoned address %q", host)
	}
	addr = addr.Unmap()
	if addr.IsUnspecified() || addr.IsMulticast() ||
		addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
		return errors.Wrapf(ErrDisallowedURL, "local network address %q", host)
	}
	return nil
}
