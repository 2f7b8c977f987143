package stun

import (
	"errors"
	"fmt"
	"net"
)

// Discover runs the RFC 3489 NAT classification decision tree against the
// Client's configured server and returns a classification plus the
// observed external address on success, or a classification plus an
// error on failure. Discover never panics.
func (c *Client) Discover() (NAT, Host, error) {
	serverAddr, err := net.ResolveUDPAddr("udp", c.serverAddr)
	if err != nil {
		return NATError, Host{}, fmt.Errorf("stun: %w: resolve server address: %v", ErrSocketIO, err)
	}
	server := hostFromUDPAddr(serverAddr)

	// Step 1: Test I against S.
	resp1, err := c.probeOnce(buildTestI(c.softwareName), serverAddr)
	if err != nil {
		if isTimeoutErr(err) {
			return NATBlocked, Host{}, fmt.Errorf("%w: no reply to test I", ErrTimeout)
		}
		return NATError, Host{}, err
	}
	if !resp1.ServerAddr.SameEndpoint(server) {
		return NATError, Host{}, fmt.Errorf("%w: test I reply from %s, expected %s", ErrServerMismatch, resp1.ServerAddr, server)
	}
	if resp1.MappedAddr == nil {
		return NATError, Host{}, fmt.Errorf("%w: test I reply had no mapped address", ErrMissingAttribute)
	}
	mappedAddr := *resp1.MappedAddr
	identical := resp1.Identical

	change, ok := resp1.changeAddr()
	if !ok {
		return NATError, Host{}, fmt.Errorf("%w: test I reply had no changed/other address", ErrMissingAttribute)
	}

	// Step 2: Test II against S.
	resp2, err2 := c.probeOnce(buildTestII(c.softwareName), serverAddr)
	if err2 == nil {
		// Both the IP and the port must differ from S; a reply that only
		// shifted one of the two still came from the same server.
		if resp2.ServerAddr.IP == server.IP || resp2.ServerAddr.Port == server.Port {
			return NATError, Host{}, fmt.Errorf("%w: test II reply from %s did not change both IP and port of %s", ErrServerMismatch, resp2.ServerAddr, server)
		}
	} else if !isTimeoutErr(err2) {
		return NATError, Host{}, err2
	}

	if identical {
		if err2 == nil {
			return NATNone, mappedAddr, nil
		}
		return NATSymmetricUDPFirewall, mappedAddr, nil
	}

	if err2 == nil {
		return NATFull, mappedAddr, nil
	}
	// Test II timed out and identical was false: NAT present, keep probing.

	// Step 3: Test I against the change address C.
	changeAddr, err := net.ResolveUDPAddr("udp", change.String())
	if err != nil {
		return NATError, Host{}, fmt.Errorf("stun: %w: resolve change address %s: %v", ErrSocketIO, change, err)
	}

	resp3, err := c.probeOnce(buildTestI(c.softwareName), changeAddr)
	if err != nil {
		if isTimeoutErr(err) {
			return NATUnknown, mappedAddr, fmt.Errorf("%w: no reply to test I against change address", ErrTimeout)
		}
		return NATError, Host{}, err
	}
	if resp3.MappedAddr == nil {
		return NATError, Host{}, fmt.Errorf("%w: test I (change address) reply had no mapped address", ErrMissingAttribute)
	}
	if !resp3.MappedAddr.Equal(mappedAddr) {
		return NATSymmetric, mappedAddr, nil
	}

	// Step 4: Test III against S.
	resp4, err := c.probeOnce(buildTestIII(c.softwareName), serverAddr)
	if err != nil {
		if isTimeoutErr(err) {
			return NATPortRestricted, mappedAddr, nil
		}
		return NATError, Host{}, err
	}
	if resp4.ServerAddr.IP != server.IP && resp4.ServerAddr.Port != server.Port {
		return NATRestricted, mappedAddr, nil
	}
	return NATError, Host{}, fmt.Errorf("%w: test III reply from unexpected endpoint %s", ErrServerMismatch, resp4.ServerAddr)
}

func isTimeoutErr(err error) bool {
	return errors.Is(err, ErrTimeout)
}
