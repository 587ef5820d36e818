package client

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

// Resolver is the subset of net.Resolver the deny list needs. Tests
// substitute a static map.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// DenyList blocks webhook deliveries to configured hosts. Entries may be
// plain hostnames, IP literals, or CIDR blocks; hostname targets are also
// resolved and their addresses checked against the IP entries, so a DNS
// alias cannot sidestep an IP block.
type DenyList struct {
	hostnames map[string]struct{}
	prefixes  []netip.Prefix
	resolver  Resolver
}

// NewDenyList parses the configured entries. Returns an error on a
// malformed CIDR so a typo fails loudly at startup instead of silently
// allowing traffic.
func NewDenyList(entries []string, resolver Resolver) (*DenyList, error) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	d := &DenyList{
		hostnames: make(map[string]struct{}),
		resolver:  resolver,
	}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid host_deny_list entry %q: %w", entry, err)
			}
			d.prefixes = append(d.prefixes, prefix)
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			d.prefixes = append(d.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		d.hostnames[strings.ToLower(entry)] = struct{}{}
	}
	return d, nil
}

// IsHostDenied reports whether host (a hostname or IP literal, no port)
// is blocked. Resolution failures deny: an unresolvable target cannot be
// proven safe.
func (d *DenyList) IsHostDenied(ctx context.Context, host string) bool {
	if len(d.hostnames) == 0 && len(d.prefixes) == 0 {
		return false
	}
	host = strings.ToLower(host)
	if _, ok := d.hostnames[host]; ok {
		return true
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		return d.addrDenied(addr)
	}
	if len(d.prefixes) == 0 {
		return false
	}

	addrs, err := d.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return true
	}
	for _, addr := range addrs {
		if d.addrDenied(addr) {
			return true
		}
	}
	return false
}

// IsURLDenied parses rawURL and checks its host. Unparseable URLs deny.
func (d *DenyList) IsURLDenied(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return true
	}
	return d.IsHostDenied(ctx, u.Hostname())
}

func (d *DenyList) addrDenied(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range d.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
