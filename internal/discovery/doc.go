// Package discovery owns mDNS presence for the koala service: the
// collector advertises one service record, field clients browse the
// local broadcast domains for it and resolve it to an address:port.
//
// Ownership boundary:
// - service registration/unregistration (zeroconf server)
// - per-interface browsing and instance-name filtering
// - candidate address selection (first advertised address wins)
package discovery
