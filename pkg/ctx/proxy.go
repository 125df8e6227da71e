package ctx

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"
)

var trustedProxies atomic.Pointer[[]netip.Prefix]

// TrustProxies sets the peers whose X-Forwarded-For and X-Real-Ip headers
// ClientIP believes. Entries are addresses or CIDR ranges. An empty list,
// or one with an invalid entry, trusts nobody.
//
//	ctx.TrustProxies([]string{"10.0.0.0/8", "127.0.0.1"})
func TrustProxies(entries []string) error {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				trustedProxies.Store(nil)
				return fmt.Errorf("ctx: trusted proxy %q: %w", e, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			trustedProxies.Store(nil)
			return fmt.Errorf("ctx: trusted proxy %q: %w", e, err)
		}
		a = a.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(a, a.BitLen()))
	}
	trustedProxies.Store(&prefixes)
	return nil
}

func trusted(a netip.Addr) bool {
	prefixes := trustedProxies.Load()
	if prefixes == nil {
		return false
	}
	a = a.Unmap()
	for _, p := range *prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// ClientIP returns the connection address without its port. When the peer
// is a trusted proxy the address comes from X-Forwarded-For, read right to
// left up to the first untrusted hop, or else from X-Real-Ip.
func ClientIP(r *http.Request) string {
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil || !trusted(addr) {
		return peer
	}

	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		hops := strings.Split(fwd, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				return peer
			}
			if i == 0 || !trusted(hop) {
				return hop.Unmap().String()
			}
		}
	}
	if real, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-Ip"))); err == nil {
		return real.Unmap().String()
	}
	return peer
}
