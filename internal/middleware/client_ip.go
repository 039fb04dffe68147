package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// proxySet is the list of networks whose forwarding headers are believed.
type proxySet []netip.Prefix

func newProxySet(cidrs []string) proxySet {
	var set proxySet
	for _, cidr := range cidrs {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			slog.Warn("Ignoring invalid trusted proxy CIDR", "cidr", cidr, "error", err)
			continue
		}
		set = append(set, prefix.Masked())
	}
	return set
}

func (s proxySet) trusts(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range s {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientAddr is the peer address, or for a trusted peer the nearest hop in
// X-Forwarded-For that is not itself a trusted proxy. X-Real-IP is the last
// resort behind a trusted peer.
func (s proxySet) clientAddr(r *http.Request) string {
	peer, ok := addrOf(r.RemoteAddr)
	if !ok {
		return r.RemoteAddr
	}
	if !s.trusts(peer) {
		return peer.String()
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	var first netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		hop, ok := addrOf(hops[i])
		if !ok {
			continue
		}
		if !s.trusts(hop) {
			return hop.String()
		}
		first = hop
	}
	if first.IsValid() {
		return first.String()
	}

	if realIP, ok := addrOf(r.Header.Get("X-Real-IP")); ok && !s.trusts(realIP) {
		return realIP.String()
	}
	return peer.String()
}

// addrOf accepts a bare address or host:port, with or without brackets.
func addrOf(value string) (netip.Addr, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return netip.Addr{}, false
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		value = host
	}
	addr, err := netip.ParseAddr(strings.Trim(value, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
