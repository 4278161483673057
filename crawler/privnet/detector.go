/*
	privnet package detects host names that resolve into private or
	otherwise non-routable address space. The crawler refuses to fetch
	such hosts: following attacker-supplied links into internal networks
	is a classic SSRF vector.
*/

package privnet

import (
	"fmt"
	"net"
)

var defaultPrivateCIDRs = []string{
	// Loopback.
	"127.0.0.0/8",
	"::1/128",
	// RFC1918 private ranges.
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	// Link-local.
	"169.254.0.0/16",
	"fe80::/10",
	// Current-network and broadcast.
	"0.0.0.0/8",
	"255.255.255.255/32",
	// IPv6 unique local.
	"fc00::/7",
}

// Detector reports whether a host resolves into a private network block.
type Detector struct {
	blocks []*net.IPNet
}

// NewDetector returns a Detector configured with the standard loopback,
// RFC1918, link-local and unique-local address blocks.
func NewDetector() (*Detector, error) {
	return NewDetectorFromCIDRs(defaultPrivateCIDRs...)
}

// NewDetectorFromCIDRs returns a Detector for a caller-supplied CIDR list.
func NewDetectorFromCIDRs(cidrs ...string) (*Detector, error) {
	blocks := make([]*net.IPNet, len(cidrs))
	for i, cidr := range cidrs {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("privnet: invalid CIDR %q: %w", cidr, err)
		}

		blocks[i] = block
	}

	return &Detector{blocks: blocks}, nil
}

// IsPrivate resolves the host and reports whether any of its addresses fall
// into a private block.
func (d *Detector) IsPrivate(host string) (bool, error) {
	addr, err := net.ResolveIPAddr("ip", host)
	if err != nil {
		return false, err
	}

	for _, block := range d.blocks {
		if block.Contains(addr.IP) {
			return true, nil
		}
	}

	return false, nil
}
