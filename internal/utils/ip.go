package utils

import (
	"net"
)

// IsAllowedIP reports whether ip falls inside any of the allowed CIDR blocks.
// Used to pin webhook deliveries to the provider's published egress ranges.
func IsAllowedIP(ip string, allowedCIDRs []string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	for _, cidr := range allowedCIDRs {
		_, netblock, err := net.ParseCIDR(cidr)
		if err != nil {
			// Skip invalid CIDR
			continue
		}
		if netblock.Contains(parsed) {
			return true
		}
	}
	return false
}
