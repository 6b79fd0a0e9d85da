package headerauth

import (
	"net"
	"net/netip"
	"strings"

	"github.com/rs/zerolog/log"
)

// ParseSubnets parses a list of CIDR prefixes. Entries that fail to parse are
// logged and skipped, they never invalidate the remaining prefixes.
func ParseSubnets(cidrs []string) []netip.Prefix {
	subnets := make([]netip.Prefix, 0, len(cidrs))

	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}

		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			log.Warn().Err(err).Str("subnet", cidr).Msg("ignoring unparsable trusted proxy subnet")
			continue
		}

		subnets = append(subnets, prefix.Masked())
	}

	return subnets
}

// IsTrusted reports whether remoteAddr falls into at least one of the given
// subnets. A malformed remote address does not match anything. An empty
// subnet set trusts nothing; callers bypass this check entirely when trusted
// proxies are not required.
func IsTrusted(remoteAddr string, subnets []netip.Prefix) bool {
	addr, err := netip.ParseAddr(remoteAddr)
	if err != nil {
		// remoteAddr may still carry a port, e.g. when taken straight
		// from the connection instead of the proxy headers.
		host, _, splitErr := net.SplitHostPort(remoteAddr)
		if splitErr != nil {
			log.Debug().Str("remote_addr", remoteAddr).Msg("looking up remote address failed")
			return false
		}

		if addr, err = netip.ParseAddr(host); err != nil {
			log.Debug().Str("remote_addr", remoteAddr).Msg("looking up remote address failed")
			return false
		}
	}

	addr = addr.Unmap()

	for _, subnet := range subnets {
		if subnet.Contains(addr) {
			return true
		}
	}

	return false
}

// SubnetsString renders the subnet set the way it is shown in logs and in the
// configuration resource, as a comma separated list.
func SubnetsString(subnets []netip.Prefix) string {
	parts := make([]string, 0, len(subnets))
	for _, subnet := range subnets {
		parts = append(parts, subnet.String())
	}

	return strings.Join(parts, ", ")
}
