package validation

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// ErrInvalidNetwork indicates that a proxy address is neither an IP nor a CIDR
var ErrInvalidNetwork = errors.New("invalid network")

// ParsePrefixes разбирает список адресов и подсетей доверенных прокси.
// Одиночный IP превращается в подсеть из одного адреса.
func ParsePrefixes(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, v)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}

		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidNetwork, v)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
