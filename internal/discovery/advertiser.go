package discovery

import (
	"fmt"
	"net"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog/log"
)

const (
	// ServiceType is the dedicated koala service type; zeroconf scopes it
	// to the local. domain.
	ServiceType = "_koala._tcp"
	Domain      = "local."

	// DefaultInstance is the advertised instance name clients filter on.
	DefaultInstance = "koala"

	// DefaultDescription travels in the service TXT record.
	DefaultDescription = "Koala data transfer service (Bear Metal scouting)"
)

// Advertiser is a live service registration. Shutdown unregisters it
// from every domain it was published on and is safe to call repeatedly.
type Advertiser struct {
	server *zeroconf.Server
	once   sync.Once
}

// Advertise publishes one service record for the given port. A nil or
// empty iface list publishes on all multicast-capable interfaces.
func Advertise(instance string, port int, description string, ifaces []net.Interface) (*Advertiser, error) {
	if instance == "" {
		instance = DefaultInstance
	}
	txt := []string{"description=" + description}
	server, err := zeroconf.Register(instance, ServiceType, Domain, port, txt, ifaces)
	if err != nil {
		return nil, fmt.Errorf("discovery: register %q on port %d: %w", instance, port, err)
	}
	log.Info().
		Str("instance", instance).
		Str("service", ServiceType).
		Int("port", port).
		Msg("mdns service registered")
	return &Advertiser{server: server}, nil
}

// Shutdown unregisters the service. Idempotent and nil-safe.
func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.once.Do(func() {
		a.server.Shutdown()
		log.Info().Msg("mdns service unregistered")
	})
}
