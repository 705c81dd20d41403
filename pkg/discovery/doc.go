// Package discovery implements mDNS/DNS-SD discovery of ratbagd daemons.
//
// A daemon listening on tcp advertises one _ratbag._tcp service. Unix socket
// daemons are local only and never advertised.
//
// Instance name: the configured daemon name, by default "ratbagd@<hostname>".
// TXT records:
//
//	api    object API version (required)
//	proto  wire protocol version "major.minor" (required)
//	dc     number of devices currently served (optional)
//	name   human-readable daemon name (optional)
//
// Browsing aggregates the addresses of one instance seen on several
// interfaces into a single DaemonService, whose Address is directly usable
// with transport.Dial.
package discovery
