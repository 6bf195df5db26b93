package muxhandlers

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/vitalvas/yoke/mux"
)

// ErrInvalidProxy is returned when a TrustedProxies entry is neither an IP
// address nor a CIDR range.
var ErrInvalidProxy = errors.New("proxy headers: invalid proxy entry")

// DefaultTrustedProxies are the loopback and private ranges trusted when
// ProxyHeadersConfig.TrustedProxies is empty.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"100.64.0.0/10",
	"::1/128",
	"fc00::/7",
}

// ProxyHeadersConfig configures the ProxyHeaders middleware behaviour.
type ProxyHeadersConfig struct {
	// TrustedProxies lists the IP addresses and CIDR ranges whose
	// forwarding headers are honoured. Defaults to DefaultTrustedProxies.
	TrustedProxies []string

	// EnableForwarded falls back to the RFC 7239 Forwarded header after the
	// X-Forwarded-* and X-Real-IP headers.
	EnableForwarded bool
}

// ProxyHeadersMiddleware returns a handler that rewrites the request seen by
// later handlers from reverse proxy headers, when the peer is a trusted
// proxy:
//
//   - RemoteAddr from X-Forwarded-For, X-Real-IP or Forwarded for=
//   - URL.Scheme from X-Forwarded-Proto, X-Forwarded-Scheme or Forwarded proto=
//   - Host from X-Forwarded-Host or Forwarded host=
//   - the X-Forwarded-By request header from Forwarded by=
//
// Forwarded is only read with EnableForwarded. It returns an error wrapping
// ErrInvalidProxy for unparseable TrustedProxies entries.
func ProxyHeadersMiddleware(cfg ProxyHeadersConfig) (mux.Handler, error) {
	entries := cfg.TrustedProxies
	if len(entries) == 0 {
		entries = DefaultTrustedProxies
	}

	trusted, err := parseTrustedProxies(entries)
	if err != nil {
		return nil, err
	}

	return mux.HandlerFunc(func(c *mux.Context, next mux.Next) {
		r := c.Request()
		if !isTrustedPeer(r.RemoteAddr, trusted) {
			next(nil)
			return
		}

		var fwd forwardedParams
		if cfg.EnableForwarded {
			fwd = parseForwarded(r.Header.Get("Forwarded"))
		}

		remote := r.RemoteAddr
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if ip := parseXForwardedFor(xff); ip != "" {
				remote = ip
			}
		} else if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			if _, err := netip.ParseAddr(realIP); err == nil {
				remote = realIP
			}
		} else if fwd.forIP != "" {
			remote = fwd.forIP
		}

		scheme := proxyScheme(r.Header.Get("X-Forwarded-Proto"), r.Header.Get("X-Forwarded-Scheme"))
		if scheme == "" {
			scheme = fwd.proto
		}

		host := r.Header.Get("X-Forwarded-Host")
		if host == "" {
			host = fwd.host
		}

		if remote == r.RemoteAddr && scheme == "" && host == "" && fwd.by == "" {
			next(nil)
			return
		}

		r = r.Clone(r.Context())
		r.RemoteAddr = remote
		if scheme != "" {
			r.URL.Scheme = scheme
		}
		if host != "" {
			r.Host = host
		}
		if fwd.by != "" {
			r.Header.Set("X-Forwarded-By", fwd.by)
		}
		c.SetRequest(r)

		next(nil)
	}), nil
}

// proxyScheme returns the first present header value if it is http or
// https.
func proxyScheme(values ...string) string {
	for _, val := range values {
		if val == "" {
			continue
		}

		val = strings.ToLower(strings.TrimSpace(val))
		if val == "http" || val == "https" {
			return val
		}
		return ""
	}
	return ""
}

func parseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))

	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, entry)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, entry)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return prefixes, nil
}

// isTrustedPeer reports whether remoteAddr, with or without a port, is in
// one of the trusted prefixes.
func isTrustedPeer(remoteAddr string, trusted []netip.Prefix) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// parseXForwardedFor returns the leftmost valid IP of an X-Forwarded-For
// value.
func parseXForwardedFor(xff string) string {
	for part := range strings.SplitSeq(xff, ",") {
		candidate := strings.TrimSpace(part)
		if _, err := netip.ParseAddr(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// forwardedParams are the directives of the first Forwarded element.
type forwardedParams struct {
	forIP string
	by    string
	proto string
	host  string
}

// parseForwarded reads the first element of an RFC 7239 Forwarded header,
// the one added by the proxy closest to the client.
func parseForwarded(header string) forwardedParams {
	var result forwardedParams
	if header == "" {
		return result
	}

	first, _, _ := strings.Cut(header, ",")
	for param := range strings.SplitSeq(first, ";") {
		key, val, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok {
			continue
		}
		val = strings.Trim(strings.TrimSpace(val), `"`)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "for":
			result.forIP = parseForwardedIP(val)
		case "proto":
			result.proto = proxyScheme(val)
		case "by":
			result.by = val
		case "host":
			result.host = val
		}
	}

	return result
}

// parseForwardedIP validates a for= value such as 192.0.2.60,
// [2001:db8::1] or [2001:db8::1]:4711. Obfuscated identifiers yield "".
func parseForwardedIP(val string) string {
	if host, _, err := net.SplitHostPort(val); err == nil {
		val = host
	} else {
		val = strings.TrimSuffix(strings.TrimPrefix(val, "["), "]")
	}

	if _, err := netip.ParseAddr(val); err == nil {
		return val
	}
	return ""
}
