package stun

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Host is a network endpoint: an address family, a textual IP, and a port.
// It is immutable after construction.
type Host struct {
	Family uint16
	IP     string
	Port   uint16
}

// NewHost builds a Host from a family, IP and port.
func NewHost(family uint16, ip string, port uint16) Host {
	return Host{Family: family, IP: ip, Port: port}
}

// ParseHost parses a "host:port" or "[host]:port" string into a Host,
// inferring the address family from the parsed IP.
func ParseHost(s string) (Host, error) {
	addr, err := net.ResolveUDPAddr("udp", s)
	if err != nil {
		return Host{}, fmt.Errorf("stun: parse host %q: %w", s, err)
	}
	family := FamilyIPv4
	if addr.IP.To4() == nil {
		family = FamilyIPv6
	}
	return Host{Family: family, IP: addr.IP.String(), Port: uint16(addr.Port)}, nil
}

// hostFromUDPAddr builds a Host from a net.UDPAddr, used to record the
// datagram source endpoint of a reply.
func hostFromUDPAddr(addr *net.UDPAddr) Host {
	family := FamilyIPv4
	if addr.IP.To4() == nil {
		family = FamilyIPv6
	}
	return Host{Family: family, IP: addr.IP.String(), Port: uint16(addr.Port)}
}

// String renders the Host in "host:port" form, bracketing IPv6 addresses.
func (h Host) String() string {
	return joinHostPort(h.IP, strconv.Itoa(int(h.Port)))
}

// Equal reports whether two Hosts have identical family, IP and port.
func (h Host) Equal(other Host) bool {
	return h.Family == other.Family && h.IP == other.IP && h.Port == other.Port
}

// SameEndpoint reports whether two Hosts refer to the same IP and port,
// ignoring family (used when comparing a reply's source against a textual
// server address resolved independently).
func (h Host) SameEndpoint(other Host) bool {
	return h.IP == other.IP && h.Port == other.Port
}

func joinHostPort(host, port string) string {
	if strings.Contains(host, ":") {
		return fmt.Sprintf("[%s]:%s", host, port)
	}
	return fmt.Sprintf("%s:%s", host, port)
}
