package download

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

var ErrURLNotAllowed = errors.New("download url not allowed")

// Policy restricts what a Manager may fetch. http(s) URLs must name one of
// Hosts and resolve to public addresses unless AllowPrivate is set. Bucket
// schemes must address the bucket configured for that scheme.
type Policy struct {
	Hosts        []string
	Buckets      map[string]string
	AllowPrivate bool

	lookup func(ctx context.Context, host string) ([]net.IPAddr, error)
}

func (p *Policy) Check(ctx context.Context, u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme == "http" || scheme == "https" {
		return p.checkHost(ctx, u)
	}

	want, ok := p.Buckets[scheme]
	if !ok || want == "" || u.Host != want {
		return fmt.Errorf("%w: bucket %q", ErrURLNotAllowed, u.Host)
	}
	return nil
}

func (p *Policy) checkHost(ctx context.Context, u *url.URL) error {
	host := strings.ToLower(u.Hostname())
	if !p.hostListed(host) {
		return fmt.Errorf("%w: host %q", ErrURLNotAllowed, host)
	}
	if p.AllowPrivate {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return fmt.Errorf("%w: private address %s", ErrURLNotAllowed, ip)
		}
		return nil
	}

	lookup := p.lookup
	if lookup == nil {
		lookup = net.DefaultResolver.LookupIPAddr
	}
	addrs, err := lookup(ctx, host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	for _, a := range addrs {
		if isPrivateIP(a.IP) {
			return fmt.Errorf("%w: %s resolves to private address %s", ErrURLNotAllowed, host, a.IP)
		}
	}
	return nil
}

func (p *Policy) hostListed(host string) bool {
	for _, h := range p.Hosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast()
}

// DenyPrivateDial is a net.Dialer Control hook that refuses connections to
// private addresses after DNS resolution.
func DenyPrivateDial(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); ip != nil && isPrivateIP(ip) {
		return fmt.Errorf("%w: dial %s", ErrURLNotAllowed, address)
	}
	return nil
}
