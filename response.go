package stun

import (
	"net"
)

// LocalAddressChecker answers whether a mapped address observed in a STUN
// reply is one of this host's own addresses. Pulled out as an interface so
// tests and alternate platforms can swap in a fake rather than enumerate
// real OS interfaces. defaultLocalAddressChecker below is the stdlib-backed
// implementation used when a Client isn't given a custom one.
type LocalAddressChecker interface {
	IsLocalAddress(boundAddr, mappedAddr string) bool
}

// Response is the decoded state of one STUN reply: the underlying packet,
// the datagram's source endpoint, and the addresses extracted from it.
type Response struct {
	Packet      *Packet
	ServerAddr  Host
	MappedAddr  *Host
	ChangedAddr *Host
	OtherAddr   *Host
	Identical   bool
}

// newResponse decodes addresses out of pkt and determines Identical using
// checker. raddr is the datagram's source endpoint; boundAddr is the
// textual local address the client socket is bound to.
func newResponse(pkt *Packet, raddr *net.UDPAddr, boundAddr string, checker LocalAddressChecker) (*Response, error) {
	resp := &Response{
		Packet:     pkt,
		ServerAddr: hostFromUDPAddr(raddr),
	}

	mapped, ok, err := pkt.mappedAddr()
	if err != nil {
		return nil, err
	}
	if ok {
		resp.MappedAddr = &mapped
		if checker != nil {
			resp.Identical = checker.IsLocalAddress(boundAddr, mapped.String())
		}
	}

	if changed, ok, err := pkt.changedAddr(); err == nil && ok {
		resp.ChangedAddr = &changed
	}
	if other, ok, err := pkt.otherAddr(); err == nil && ok {
		resp.OtherAddr = &other
	}

	return resp, nil
}

// changeAddr returns the address to retry Test I against: CHANGED-ADDRESS
// if present, else OTHER-ADDRESS. Servers implementing only RFC 5780 send
// OTHER-ADDRESS instead of the classic CHANGED-ADDRESS.
func (r *Response) changeAddr() (Host, bool) {
	if r.ChangedAddr != nil {
		return *r.ChangedAddr, true
	}
	if r.OtherAddr != nil {
		return *r.OtherAddr, true
	}
	return Host{}, false
}

// defaultLocalAddressChecker implements LocalAddressChecker against the
// OS's network interfaces: a loopback bound address never matches; a
// non-wildcard bound address matches iff it equals the mapped address
// textually; otherwise every interface address is checked.
type defaultLocalAddressChecker struct{}

func (defaultLocalAddressChecker) IsLocalAddress(boundAddr, mappedAddr string) bool {
	boundHost, _, err := net.SplitHostPort(boundAddr)
	if err != nil {
		boundHost = boundAddr
	}
	mappedHost, _, err := net.SplitHostPort(mappedAddr)
	if err != nil {
		mappedHost = mappedAddr
	}

	boundIP := net.ParseIP(boundHost)
	if boundIP == nil {
		return false
	}
	if boundIP.IsLoopback() {
		return false
	}
	if !boundIP.IsUnspecified() {
		return boundHost == mappedHost
	}

	ifaces, err := net.InterfaceAddrs()
	if err != nil {
		return false
	}
	for _, ifaceAddr := range ifaces {
		ipNet, ok := ifaceAddr.(*net.IPNet)
		if !ok {
			continue
		}
		if ipNet.IP.String() == mappedHost {
			return true
		}
	}
	return false
}
