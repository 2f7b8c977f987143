package stun

import "errors"

// Sentinel error kinds the discovery engine can return. Call sites wrap
// these with fmt.Errorf's %w verb so callers can errors.Is against the
// kind while still getting a descriptive message.
var (
	// ErrTimeout: the retransmission budget was exhausted with no
	// matched reply.
	ErrTimeout = errors.New("stun: timed out waiting for a matching reply")

	// ErrDecode: inbound bytes violated STUN framing.
	ErrDecode = errors.New("stun: malformed STUN message")

	// ErrServerMismatch: a reply's source endpoint did not match the
	// endpoint expected for the current test.
	ErrServerMismatch = errors.New("stun: reply source endpoint mismatch")

	// ErrMissingAttribute: a required mapped/changed address was absent
	// from an otherwise well-formed reply.
	ErrMissingAttribute = errors.New("stun: required attribute missing from reply")

	// ErrSocketIO: the underlying datagram send/receive failed for a
	// reason other than timeout.
	ErrSocketIO = errors.New("stun: socket I/O failure")
)
