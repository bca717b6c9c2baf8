package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("discovery: no matching service resolved")

// Endpoint is a resolved service location.
type Endpoint struct {
	Addr net.IP
	Port int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Addr.String(), strconv.Itoa(e.Port))
}

// Discover blocks until a service with the exact instance name resolves
// or the timeout elapses. ErrNotFound is retryable; callers may loop.
func Discover(ctx context.Context, instance string, timeout time.Duration) (Endpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	found := make(chan Endpoint, 1)
	err := Browse(ctx, instance, func(ep Endpoint) {
		select {
		case found <- ep:
		default:
		}
	})
	if err != nil {
		return Endpoint{}, err
	}

	select {
	case ep := <-found:
		return ep, nil
	case <-ctx.Done():
		return Endpoint{}, ErrNotFound
	}
}

// Browse watches the local broadcast domains and invokes onResolved for
// every resolution whose instance name matches exactly (case-sensitive).
// It returns once browsing is underway; callbacks fire until ctx ends.
func Browse(ctx context.Context, instance string, onResolved func(Endpoint)) error {
	if instance == "" {
		instance = DefaultInstance
	}
	ifaces, err := SiteLocalInterfaces()
	if err != nil {
		return err
	}

	var opts []zeroconf.ClientOption
	if len(ifaces) > 0 {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}
	resolver, err := zeroconf.NewResolver(opts...)
	if err != nil {
		return fmt.Errorf("discovery: resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 8)
	go func() {
		for entry := range entries {
			if entry.Instance != instance {
				log.Debug().Str("instance", entry.Instance).Msg("ignoring unrelated service")
				continue
			}
			ep, ok := endpointFromEntry(entry)
			if !ok {
				log.Warn().Str("instance", entry.Instance).Msg("service resolved without address or port")
				continue
			}
			log.Info().Str("instance", entry.Instance).Str("endpoint", ep.String()).Msg("service resolved")
			onResolved(ep)
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, Domain, entries); err != nil {
		return fmt.Errorf("discovery: browse: %w", err)
	}
	return nil
}

// endpointFromEntry picks the first advertised address. IPv4 candidates
// are listed ahead of IPv6, matching the source's first-address quirk.
func endpointFromEntry(entry *zeroconf.ServiceEntry) (Endpoint, bool) {
	if entry.Port <= 0 {
		return Endpoint{}, false
	}
	if len(entry.AddrIPv4) > 0 {
		return Endpoint{Addr: entry.AddrIPv4[0], Port: entry.Port}, true
	}
	if len(entry.AddrIPv6) > 0 {
		return Endpoint{Addr: entry.AddrIPv6[0], Port: entry.Port}, true
	}
	return Endpoint{}, false
}

// SiteLocalInterfaces enumerates the up, multicast-capable, non-loopback
// interfaces carrying a private (site-local) unicast address. The
// advertiser may be reachable on only a subset of them, so browsing
// binds across all of them.
func SiteLocalInterfaces() ([]net.Interface, error) {
	all, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("discovery: enumerate interfaces: %w", err)
	}
	var out []net.Interface
	for _, iface := range all {
		if !usableInterface(iface) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		if hasSiteLocalAddr(addrs) {
			out = append(out, iface)
		}
	}
	return out, nil
}

func usableInterface(iface net.Interface) bool {
	return iface.Flags&net.FlagUp != 0 &&
		iface.Flags&net.FlagMulticast != 0 &&
		iface.Flags&net.FlagLoopback == 0
}

func hasSiteLocalAddr(addrs []net.Addr) bool {
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP
		if ip.IsLoopback() {
			continue
		}
		if ip.IsPrivate() || ip.IsLinkLocalUnicast() {
			return true
		}
	}
	return false
}
