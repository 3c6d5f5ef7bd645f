package auth

import (
	"net/netip"
	"strconv"
	"strings"
)

// IsAllowed reports whether ip is admitted by allowlist.
//
// An empty allowlist admits every address. Entries are either literal
// addresses (exact string match) or IPv4 CIDR blocks "a.b.c.d/n".
// Malformed entries never match.
func IsAllowed(ip string, allowlist []string) bool {
	allowed, _ := MatchAllowlist(ip, allowlist)
	return allowed
}

// MatchAllowlist is IsAllowed that also returns every malformed entry in the
// allowlist, so callers can report configuration mistakes.
func MatchAllowlist(ip string, allowlist []string) (bool, []string) {
	if len(allowlist) == 0 {
		return true, nil
	}

	var malformed []string
	allowed := false
	candidate, candidateOK := ipv4ToUint32(ip)

	for _, entry := range allowlist {
		entry = strings.TrimSpace(entry)
		if !strings.Contains(entry, "/") {
			if _, ok := ipv4ToUint32(entry); !ok {
				malformed = append(malformed, entry)
				continue
			}
			if entry == ip {
				allowed = true
			}
			continue
		}

		network, bits, ok := parseCIDR(entry)
		if !ok {
			malformed = append(malformed, entry)
			continue
		}
		if candidateOK && candidate&mask(bits) == network&mask(bits) {
			allowed = true
		}
	}

	return allowed, malformed
}

func mask(bits int) uint32 {
	// shifting a uint32 by 32 yields 0, so /0 matches everything
	return uint32(0xFFFFFFFF) << (32 - bits)
}

func parseCIDR(entry string) (uint32, int, bool) {
	addr, prefix, found := strings.Cut(entry, "/")
	if !found {
		return 0, 0, false
	}

	bits, err := strconv.Atoi(prefix)
	if err != nil || bits < 0 || bits > 32 {
		return 0, 0, false
	}

	network, ok := ipv4ToUint32(addr)
	if !ok {
		return 0, 0, false
	}
	return network, bits, true
}

func ipv4ToUint32(ip string) (uint32, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil || !addr.Is4() {
		return 0, false
	}
	b := addr.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), true
}

// InvalidAllowlistEntries returns the entries that are neither a dotted-quad
// IPv4 address nor an IPv4 CIDR block
func InvalidAllowlistEntries(allowlist []string) []string {
	var invalid []string
	for _, entry := range allowlist {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if _, _, ok := parseCIDR(entry); !ok {
				invalid = append(invalid, entry)
			}
			continue
		}
		if _, ok := ipv4ToUint32(entry); !ok {
			invalid = append(invalid, entry)
		}
	}
	return invalid
}
