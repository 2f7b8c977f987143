package stun

import (
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// xorIPv4Value builds a raw XOR-MAPPED-ADDRESS value for an IPv4 host.
func xorIPv4Value(ip string, port uint16) []byte {
	var cookie [4]byte
	binary.BigEndian.PutUint32(cookie[:], MagicCookie)
	xport := port ^ uint16(MagicCookie>>16)

	parsed := net.ParseIP(ip).To4()
	value := make([]byte, 8)
	value[1] = byte(FamilyIPv4)
	binary.BigEndian.PutUint16(value[2:4], xport)
	for i := 0; i < 4; i++ {
		value[4+i] = parsed[i] ^ cookie[i]
	}
	return value
}

func rawIPv4Value(ip string, port uint16) []byte {
	parsed := net.ParseIP(ip).To4()
	value := make([]byte, 8)
	value[1] = byte(FamilyIPv4)
	binary.BigEndian.PutUint16(value[2:4], port)
	copy(value[4:8], parsed)
	return value
}

// scenarioReply describes one scripted server reply.
type scenarioReply struct {
	mappedIP    string
	mappedPort  uint16
	changedIP   string
	changedPort uint16
	otherIP     string
	otherPort   uint16
}

func (r scenarioReply) bytes(transID [16]byte) []byte {
	pkt := Packet{Type: TypeBindingResponse, TransID: transID}
	if r.mappedIP != "" {
		pkt.addAttribute(newAttribute(AttrXorMappedAddress, xorIPv4Value(r.mappedIP, r.mappedPort)))
	}
	if r.changedIP != "" {
		pkt.addAttribute(newAttribute(AttrChangedAddress, rawIPv4Value(r.changedIP, r.changedPort)))
	}
	if r.otherIP != "" {
		pkt.addAttribute(newAttribute(AttrOtherAddress, rawIPv4Value(r.otherIP, r.otherPort)))
	}
	return pkt.Bytes()
}

// scenarioSocket is a Socket fake that replies based on the destination
// address and the CHANGE-REQUEST flags of the decoded outbound packet,
// so it can drive the exact RFC 3489 decision tree deterministically.
type scenarioSocket struct {
	mu          sync.Mutex
	deadline    time.Time
	pending     []queued
	serverAddr  *net.UDPAddr
	altAddr     *net.UDPAddr
	respond     func(changeIP, changePort bool, dest *net.UDPAddr) (scenarioReply, bool)
}

type queued struct {
	data []byte
	from *net.UDPAddr
}

func (s *scenarioSocket) WriteTo(b []byte, addr net.Addr) (int, error) {
	req, err := DecodePacket(b)
	if err != nil {
		return 0, err
	}
	var changeIP, changePort bool
	if attr, ok := req.firstAttr(AttrChangeRequest); ok && len(attr.Value) >= 4 {
		changeIP = attr.Value[3]&changeIPFlag != 0
		changePort = attr.Value[3]&changePortFlag != 0
	}

	dest := addr.(*net.UDPAddr)
	reply, ok := s.respond(changeIP, changePort, dest)
	if ok {
		from := s.serverAddr
		if changeIP || changePort {
			from = s.altAddr
		}
		s.mu.Lock()
		s.pending = append(s.pending, queued{data: reply.bytes(req.TransID), from: from})
		s.mu.Unlock()
	}
	return len(b), nil
}

func (s *scenarioSocket) SetReadDeadline(t time.Time) error {
	s.mu.Lock()
	s.deadline = t
	s.mu.Unlock()
	return nil
}

func (s *scenarioSocket) ReadFrom(b []byte) (int, net.Addr, error) {
	for {
		s.mu.Lock()
		if len(s.pending) > 0 {
			next := s.pending[0]
			s.pending = s.pending[1:]
			s.mu.Unlock()
			return copy(b, next.data), next.from, nil
		}
		deadline := s.deadline
		s.mu.Unlock()

		if !deadline.IsZero() && time.Now().After(deadline) {
			return 0, nil, fakeTimeoutError{}
		}
		time.Sleep(time.Millisecond)
	}
}

func newDiscoverClient(sock Socket, checker LocalAddressChecker, boundAddr string) *Client {
	return NewClientWithSocket("203.0.113.100:3478", "stunnat-test", boundAddr, sock, checker)
}

func TestDiscoverOpenInternet(t *testing.T) {
	server := &net.UDPAddr{IP: net.ParseIP("203.0.113.100"), Port: 3478}
	alt := &net.UDPAddr{IP: net.ParseIP("203.0.113.200"), Port: 3479}

	sock := &scenarioSocket{
		serverAddr: server,
		altAddr:    alt,
		respond: func(changeIP, changePort bool, dest *net.UDPAddr) (scenarioReply, bool) {
			return scenarioReply{
				mappedIP: "198.51.100.10", mappedPort: 4000,
				changedIP: alt.IP.String(), changedPort: uint16(alt.Port),
			}, true
		},
	}

	checker := stubChecker{result: true} // mapped address matches the bound socket
	client := newDiscoverClient(sock, checker, "198.51.100.10:4000")

	nat, host, err := client.Discover()
	require.NoError(t, err)
	assert.Equal(t, NATNone, nat)
	assert.Equal(t, "198.51.100.10", host.IP)
	assert.Equal(t, uint16(4000), host.Port)
}

func TestDiscoverFullCone(t *testing.T) {
	server := &net.UDPAddr{IP: net.ParseIP("203.0.113.100"), Port: 3478}
	alt := &net.UDPAddr{IP: net.ParseIP("203.0.113.200"), Port: 3479}

	sock := &scenarioSocket{
		serverAddr: server,
		altAddr:    alt,
		respond: func(changeIP, changePort bool, dest *net.UDPAddr) (scenarioReply, bool) {
			return scenarioReply{
				mappedIP: "198.51.100.10", mappedPort: 4000,
				changedIP: alt.IP.String(), changedPort: uint16(alt.Port),
			}, true
		},
	}

	checker := stubChecker{result: false} // mapped address is not one of ours: NAT present
	client := newDiscoverClient(sock, checker, "10.0.0.5:4000")

	nat, host, err := client.Discover()
	require.NoError(t, err)
	assert.Equal(t, NATFull, nat)
	assert.Equal(t, "198.51.100.10", host.IP)
}

func TestDiscoverBlocked(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ~9.5s Test-I timeout scenario in -short mode")
	}

	sock := &scenarioSocket{
		serverAddr: &net.UDPAddr{IP: net.ParseIP("203.0.113.100"), Port: 3478},
		respond: func(changeIP, changePort bool, dest *net.UDPAddr) (scenarioReply, bool) {
			return scenarioReply{}, false // never reply
		},
	}
	client := newDiscoverClient(sock, stubChecker{}, "10.0.0.5:4000")

	nat, _, err := client.Discover()
	require.Error(t, err)
	assert.Equal(t, NATBlocked, nat)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestDiscoverSymmetricUDPFirewall(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ~9.5s Test-II timeout scenario in -short mode")
	}

	server := &net.UDPAddr{IP: net.ParseIP("203.0.113.100"), Port: 3478}
	alt := &net.UDPAddr{IP: net.ParseIP("203.0.113.200"), Port: 3479}

	sock := &scenarioSocket{
		serverAddr: server,
		altAddr:    alt,
		respond: func(changeIP, changePort bool, dest *net.UDPAddr) (scenarioReply, bool) {
			if changeIP && changePort {
				return scenarioReply{}, false // Test II never answers
			}
			return scenarioReply{
				mappedIP: "198.51.100.10", mappedPort: 4000,
				changedIP: alt.IP.String(), changedPort: uint16(alt.Port),
			}, true
		},
	}

	client := newDiscoverClient(sock, stubChecker{result: true}, "198.51.100.10:4000")

	nat, host, err := client.Discover()
	require.NoError(t, err)
	assert.Equal(t, NATSymmetricUDPFirewall, nat)
	assert.Equal(t, "198.51.100.10", host.IP)
}

func TestDiscoverSymmetric(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ~9.5s Test-II timeout scenario in -short mode")
	}

	server := &net.UDPAddr{IP: net.ParseIP("203.0.113.100"), Port: 3478}
	alt := &net.UDPAddr{IP: net.ParseIP("203.0.113.200"), Port: 3479}

	sock := &scenarioSocket{
		serverAddr: server,
		altAddr:    alt,
		respond: func(changeIP, changePort bool, dest *net.UDPAddr) (scenarioReply, bool) {
			if changeIP && changePort {
				return scenarioReply{}, false // Test II times out: NAT present
			}
			if dest.IP.Equal(alt.IP) && dest.Port == alt.Port {
				// Test I against the change address sees a different mapping.
				return scenarioReply{
					mappedIP: "1.2.3.4", mappedPort: 5001,
					changedIP: alt.IP.String(), changedPort: uint16(alt.Port),
				}, true
			}
			// Test I against S.
			return scenarioReply{
				mappedIP: "1.2.3.4", mappedPort: 5000,
				changedIP: alt.IP.String(), changedPort: uint16(alt.Port),
			}, true
		},
	}

	client := newDiscoverClient(sock, stubChecker{result: false}, "10.0.0.5:4000")

	nat, host, err := client.Discover()
	require.NoError(t, err)
	assert.Equal(t, NATSymmetric, nat)
	assert.Equal(t, "1.2.3.4", host.IP)
	assert.Equal(t, uint16(5000), host.Port)
}

func TestDiscoverPortRestricted(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping ~19s Test-II and Test-III timeout scenario in -short mode")
	}

	server := &net.UDPAddr{IP: net.ParseIP("203.0.113.100"), Port: 3478}
	alt := &net.UDPAddr{IP: net.ParseIP("203.0.113.200"), Port: 3479}

	sock := &scenarioSocket{
		serverAddr: server,
		altAddr:    alt,
		respond: func(changeIP, changePort bool, dest *net.UDPAddr) (scenarioReply, bool) {
			if changeIP && changePort {
				return scenarioReply{}, false // Test II times out: NAT present
			}
			if changePort && !changeIP {
				return scenarioReply{}, false // Test III times out: port restricted
			}
			return scenarioReply{
				mappedIP: "198.51.100.10", mappedPort: 4000,
				changedIP: alt.IP.String(), changedPort: uint16(alt.Port),
			}, true
		},
	}

	client := newDiscoverClient(sock, stubChecker{result: false}, "10.0.0.5:4000")

	nat, host, err := client.Discover()
	require.NoError(t, err)
	assert.Equal(t, NATPortRestricted, nat)
	assert.Equal(t, "198.51.100.10", host.IP)
}
