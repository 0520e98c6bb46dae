package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIPExtractor identifies the client of a request. X-Forwarded-For
// is only consulted when the direct peer is a trusted proxy; with no
// trusted proxies the peer address is the client.
type ClientIPExtractor struct {
	trustedCIDRs []*net.IPNet
}

// NewClientIPExtractor creates an extractor trusting the given CIDRs or
// single addresses. Entries that parse as neither are skipped; the
// configuration validator reports them before this point.
func NewClientIPExtractor(trustedProxies []string) *ClientIPExtractor {
	cidrs := make([]*net.IPNet, 0, len(trustedProxies))
	for _, proxy := range trustedProxies {
		_, cidr, err := net.ParseCIDR(proxy)
		if err != nil {
			ip := net.ParseIP(proxy)
			if ip == nil {
				continue
			}
			cidr = singleIPToCIDR(ip)
		}
		cidrs = append(cidrs, cidr)
	}
	return &ClientIPExtractor{trustedCIDRs: cidrs}
}

// singleIPToCIDR converts a single IP address to a /32 or /128 CIDR.
func singleIPToCIDR(ip net.IP) *net.IPNet {
	bits := 32
	if ip.To4() == nil {
		bits = 128 //nolint:mnd // IPv6 prefix length
	}
	return &net.IPNet{
		IP:   ip,
		Mask: net.CIDRMask(bits, bits),
	}
}

// Extract returns the client address of r without a port. A nil
// extractor trusts nobody.
func (e *ClientIPExtractor) Extract(r *http.Request) string {
	remoteIP := stripPort(r.RemoteAddr)

	if e == nil || len(e.trustedCIDRs) == 0 || !e.isTrusted(remoteIP) {
		return remoteIP
	}
	return e.extractFromXFF(r, remoteIP)
}

// extractFromXFF walks X-Forwarded-For right to left and returns the
// first untrusted hop, or fallback when every hop is trusted.
func (e *ClientIPExtractor) extractFromXFF(
	r *http.Request,
	fallback string,
) string {
	xff := r.Header.Get(HeaderXForwardedFor)
	if xff == "" {
		return fallback
	}

	ips := strings.Split(xff, ",")
	for i := len(ips) - 1; i >= 0; i-- {
		ip := strings.TrimSpace(ips[i])
		if ip == "" {
			continue
		}
		if !e.isTrusted(ip) {
			return ip
		}
	}

	return fallback
}

// isTrusted checks if the given IP string is within any trusted CIDR.
func (e *ClientIPExtractor) isTrusted(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, cidr := range e.trustedCIDRs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// stripPort removes the port from "192.168.1.1:8080" or "[::1]:8080".
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
