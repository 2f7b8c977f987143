package stun

import (
	"fmt"
	"net"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	ServerAddr   string
	LocalIP      string
	LocalPort    uint16
	SoftwareName string

	// LocalAddressChecker overrides the "is this address one of our
	// local addresses?" check. Defaults to an OS-interface-backed
	// implementation when nil.
	LocalAddressChecker LocalAddressChecker
}

// Client owns one UDP socket and drives discovery runs against it. No
// mutable state is shared between Client instances, so a process can run
// several discoveries concurrently from separate Clients.
type Client struct {
	serverAddr   string
	softwareName string
	checker      LocalAddressChecker

	sock     Socket
	conn     *net.UDPConn
	localTag string
}

// NewClient binds a UDP socket per cfg and returns a ready-to-use Client.
// An empty ServerAddr falls back to DefaultServerAddr.
func NewClient(cfg ClientConfig) (*Client, error) {
	serverAddr := cfg.ServerAddr
	if serverAddr == "" {
		serverAddr = DefaultServerAddr
	}

	localAddr := &net.UDPAddr{IP: net.ParseIP(cfg.LocalIP), Port: int(cfg.LocalPort)}
	conn, err := net.ListenUDP("udp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("stun: %w: bind local socket: %v", ErrSocketIO, err)
	}

	checker := cfg.LocalAddressChecker
	if checker == nil {
		checker = defaultLocalAddressChecker{}
	}

	softwareName := cfg.SoftwareName
	if softwareName == "" {
		softwareName = "stunnat"
	}

	return &Client{
		serverAddr:   serverAddr,
		softwareName: softwareName,
		checker:      checker,
		sock:         conn,
		conn:         conn,
		localTag:     conn.LocalAddr().String(),
	}, nil
}

// NewClientWithSocket builds a Client around a caller-supplied Socket,
// bypassing the UDP bind step entirely. Used by tests (and any caller
// driving the engine over a non-UDP or simulated datagram transport).
func NewClientWithSocket(serverAddr, softwareName, localTag string, sock Socket, checker LocalAddressChecker) *Client {
	if checker == nil {
		checker = defaultLocalAddressChecker{}
	}
	return &Client{
		serverAddr:   serverAddr,
		softwareName: softwareName,
		checker:      checker,
		sock:         sock,
		localTag:     localTag,
	}
}

// Close releases the Client's socket, if it owns one.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// probeOnce sends a Test-I/II/III style request to addr and decodes the
// correlated reply into a Response.
func (c *Client) probeOnce(pkt *Packet, addr net.Addr) (*Response, error) {
	reply, raddr, err := sendAndWait(c.sock, pkt, addr)
	if err != nil {
		return nil, err
	}
	udpAddr, ok := raddr.(*net.UDPAddr)
	if !ok {
		udpAddr = &net.UDPAddr{}
		if host, port, splitErr := net.SplitHostPort(raddr.String()); splitErr == nil {
			udpAddr.IP = net.ParseIP(host)
			fmt.Sscanf(port, "%d", &udpAddr.Port)
		}
	}
	return newResponse(reply, udpAddr, c.localTag, c.checker)
}
