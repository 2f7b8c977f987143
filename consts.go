package stun

// RFC 8489 Section 5: "The magic cookie field MUST contain the fixed value
// 0x2112A442 in network byte order."
const MagicCookie uint32 = 0x2112A442

// FingerprintXOR is the constant the FINGERPRINT attribute's CRC32 is XORed
// with (RFC 5389 Section 15.5).
const FingerprintXOR uint32 = 0x5354554E

// DefaultServerAddr is the STUN server used when a Client is not given one.
const DefaultServerAddr = "stun.ekiga.net:3478"

// Message types (RFC 3489 Section 11.1 / RFC 8489 Section 5).
const (
	TypeBindingRequest       uint16 = 0x0001
	TypeBindingResponse      uint16 = 0x0101
	TypeBindingErrorResponse uint16 = 0x0111
)

// STUN attribute type codes. Constants for
// authentication and TURN relay attributes are kept for wire
// compatibility with servers that echo them, but this client never
// constructs or interprets them (spec Non-goals: no MESSAGE-INTEGRITY,
// USERNAME, NONCE, REALM, no TURN relay/channel binding).
const (
	AttrMappedAddress    uint16 = 0x0001
	AttrResponseAddress  uint16 = 0x0002
	AttrChangeRequest    uint16 = 0x0003
	AttrSourceAddress    uint16 = 0x0004
	AttrChangedAddress   uint16 = 0x0005
	AttrUsername         uint16 = 0x0006
	AttrPassword         uint16 = 0x0007
	AttrMessageIntegrity uint16 = 0x0008
	AttrErrorCode        uint16 = 0x0009
	AttrUnknownAttrs     uint16 = 0x000a
	AttrReflectedFrom    uint16 = 0x000b
	AttrChannelNumber    uint16 = 0x000c
	AttrLifetime         uint16 = 0x000d
	AttrXorPeerAddress   uint16 = 0x0012
	AttrData             uint16 = 0x0013
	AttrRealm            uint16 = 0x0014
	AttrNonce            uint16 = 0x0015
	AttrXorRelayedAddr   uint16 = 0x0016
	AttrEvenPort         uint16 = 0x0018
	AttrRequestedTransp  uint16 = 0x0019
	AttrXorMappedAddress uint16 = 0x0020
	AttrReservationToken uint16 = 0x0022
	AttrPriority         uint16 = 0x0024
	AttrUseCandidate     uint16 = 0x0025
	AttrSoftware         uint16 = 0x8022
	AttrAlternateServer  uint16 = 0x8023
	AttrFingerprint      uint16 = 0x8028
	AttrResponseOrigin   uint16 = 0x802b
	AttrOtherAddress     uint16 = 0x802c
)

// Address families (RFC 8489 Section 14.1).
const (
	FamilyIPv4 uint16 = 0x01
	FamilyIPv6 uint16 = 0x02
)

// CHANGE-REQUEST flag bits (RFC 3489 Section 11.2.4).
const (
	changeIPFlag   byte = 0x04
	changePortFlag byte = 0x02
)

// NAT is the classification an RFC 3489 discovery run produces.
type NAT int

const (
	NATError NAT = iota
	NATUnknown
	NATNone
	NATBlocked
	NATFull
	NATRestricted
	NATPortRestricted
	NATSymmetric
	NATSymmetricUDPFirewall
)

var natNames = map[NAT]string{
	NATError:               "Error",
	NATUnknown:              "Unknown",
	NATNone:                 "None",
	NATBlocked:              "Blocked",
	NATFull:                 "Full",
	NATRestricted:           "Restricted",
	NATPortRestricted:       "PortRestricted",
	NATSymmetric:            "Symmetric",
	NATSymmetricUDPFirewall: "SymmetricUDPFirewall",
}

var natDescriptions = map[NAT]string{
	NATError:               "test failed",
	NATUnknown:              "unexpected response from the STUN server",
	NATNone:                 "not behind a NAT",
	NATBlocked:              "UDP is blocked",
	NATFull:                 "full cone NAT",
	NATRestricted:           "restricted cone NAT",
	NATPortRestricted:       "port restricted cone NAT",
	NATSymmetric:            "symmetric NAT",
	NATSymmetricUDPFirewall: "symmetric UDP firewall",
}

// String renders the classification's short enum name (e.g. "Full",
// "PortRestricted").
func (n NAT) String() string {
	if s, ok := natNames[n]; ok {
		return s
	}
	return "Unknown"
}

// Description renders a human-readable sentence describing the
// classification (e.g. "full cone NAT").
func (n NAT) Description() string {
	if s, ok := natDescriptions[n]; ok {
		return s
	}
	return "unknown NAT classification"
}
