package stun

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// Socket is the datagram-sending abstraction the transport needs: send a
// buffer to an address, receive into a buffer honoring a read deadline.
// net.PacketConn (and so *net.UDPConn) satisfies it; the engine never
// depends on UDP specifically beyond this shape, so tests can swap in an
// in-memory fake.
type Socket interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
	ReadFrom(b []byte) (int, net.Addr, error)
	SetReadDeadline(t time.Time) error
}

const (
	maxRetransmits    = 9
	initialTimeout    = 100 * time.Millisecond
	maxTimeout        = 1600 * time.Millisecond
	receiveBufferSize = 1024
)

// sendAndWait sends pkt to addr over sock and waits for a reply whose
// transaction ID matches pkt's, retransmitting with doubling timeouts
// (100, 200, 400, 800, 1600, 1600, ...ms, 9 sends total, matching the
// classic STUN client's retransmission schedule). Replies with a
// non-matching transaction ID are discarded without
// counting against the retransmission budget. A decode failure on a
// received datagram likewise only consumes time within the current
// timeout, not an extra send.
func sendAndWait(sock Socket, pkt *Packet, addr net.Addr) (*Packet, net.Addr, error) {
	out := pkt.Bytes()
	timeout := initialTimeout
	buf := make([]byte, receiveBufferSize)

	for attempt := 0; attempt < maxRetransmits; attempt++ {
		n, err := sock.WriteTo(out, addr)
		if err != nil {
			return nil, nil, fmt.Errorf("stun: %w: send failed: %v", ErrSocketIO, err)
		}
		if n != len(out) {
			return nil, nil, fmt.Errorf("stun: %w: short write (%d of %d bytes)", ErrSocketIO, n, len(out))
		}

		deadline := time.Now().Add(timeout)
		if timeout < maxTimeout {
			timeout *= 2
		}

		for {
			if err := sock.SetReadDeadline(deadline); err != nil {
				return nil, nil, fmt.Errorf("stun: %w: set read deadline: %v", ErrSocketIO, err)
			}

			n, raddr, err := sock.ReadFrom(buf)
			if err != nil {
				if isTimeout(err) {
					break // this attempt's deadline elapsed; retransmit
				}
				return nil, nil, fmt.Errorf("stun: %w: receive failed: %v", ErrSocketIO, err)
			}

			reply, err := DecodePacket(buf[:n])
			if err != nil {
				continue // malformed datagram, keep waiting on this deadline
			}
			if reply.TransID != pkt.TransID {
				continue // unrelated reply, keep waiting on this deadline
			}

			return reply, raddr, nil
		}
	}

	return nil, nil, fmt.Errorf("%w after %d attempts", ErrTimeout, maxRetransmits)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
