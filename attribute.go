package stun

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"net"
)

// Attribute is a STUN TLV: a 16-bit type, a 16-bit length (the value's
// length before padding), and a zero-padded value whose stored length is
// always a multiple of 4.
type Attribute struct {
	Type   uint16
	Length uint16
	Value  []byte
}

// newAttribute pads value to a 4-byte boundary and records the pre-padding
// length on the wire, per RFC 5389 Section 15: the length field always
// reflects the value's length before padding, never the padded length.
func newAttribute(attrType uint16, value []byte) Attribute {
	return Attribute{
		Type:   attrType,
		Length: uint16(len(value)),
		Value:  padding(value),
	}
}

// padding zero-pads value so its length is a multiple of 4.
func padding(value []byte) []byte {
	n := len(value)
	need := align4(n) - n
	if need == 0 {
		return append([]byte(nil), value...)
	}
	out := make([]byte, n+need)
	copy(out, value)
	return out
}

// align4 rounds n up to the next multiple of 4.
func align4(n int) int {
	return (n + 3) &^ 3
}

func newSoftwareAttribute(name string) Attribute {
	return newAttribute(AttrSoftware, []byte(name))
}

// newChangeRequestAttribute builds a CHANGE-REQUEST value: bit 2 (0x04)
// requests an IP change, bit 1 (0x02) requests a port change.
func newChangeRequestAttribute(changeIP, changePort bool) Attribute {
	value := make([]byte, 4)
	if changeIP {
		value[3] |= changeIPFlag
	}
	if changePort {
		value[3] |= changePortFlag
	}
	return newAttribute(AttrChangeRequest, value)
}

// newFingerprintAttribute computes CRC32(packetBytes) XOR FingerprintXOR,
// where packetBytes is pkt serialized as if the fingerprint attribute
// (8 bytes: 4-byte header + 4-byte value) were already appended.
func newFingerprintAttribute(pkt *Packet) Attribute {
	pkt.Length += 8
	crc := crc32.ChecksumIEEE(pkt.Bytes()) ^ FingerprintXOR
	pkt.Length -= 8

	value := make([]byte, 4)
	binary.BigEndian.PutUint32(value, crc)
	return newAttribute(AttrFingerprint, value)
}

// decodeRawAddr parses a MAPPED-ADDRESS/CHANGED-ADDRESS/OTHER-ADDRESS
// value: [pad:1][family:1][port:2][addr:4 or 16], unobfuscated.
func decodeRawAddr(value []byte) (Host, error) {
	if len(value) < 8 {
		return Host{}, fmt.Errorf("stun: %w: address attribute too short (%d bytes)", ErrDecode, len(value))
	}
	family := uint16(value[1])
	port := binary.BigEndian.Uint16(value[2:4])

	switch family {
	case FamilyIPv4:
		ip := net.IP(append([]byte(nil), value[4:8]...))
		return Host{Family: family, IP: ip.String(), Port: port}, nil
	case FamilyIPv6:
		if len(value) < 20 {
			return Host{}, fmt.Errorf("stun: %w: IPv6 address attribute too short (%d bytes)", ErrDecode, len(value))
		}
		ip := net.IP(append([]byte(nil), value[4:20]...))
		return Host{Family: family, IP: ip.String(), Port: port}, nil
	default:
		return Host{}, fmt.Errorf("stun: %w: unsupported address family 0x%02x", ErrDecode, family)
	}
}

// decodeXorAddr parses an XOR-MAPPED-ADDRESS value. The port is XORed with
// the top 16 bits of the magic cookie; the IPv4 address is XORed with the
// magic cookie's 4 bytes, per RFC 5389 Section 15.2 (the IPv4 case XORs
// against the cookie alone, never the full transaction ID); the IPv6
// address is XORed with the full 16-byte magic-cookie+transaction-id.
func decodeXorAddr(value []byte, transID [16]byte) (Host, error) {
	if len(value) < 8 {
		return Host{}, fmt.Errorf("stun: %w: XOR address attribute too short (%d bytes)", ErrDecode, len(value))
	}
	family := uint16(value[1])
	xport := binary.BigEndian.Uint16(value[2:4])
	port := xport ^ uint16(MagicCookie>>16)

	var cookie [4]byte
	binary.BigEndian.PutUint32(cookie[:], MagicCookie)

	switch family {
	case FamilyIPv4:
		ip := make(net.IP, 4)
		for i := 0; i < 4; i++ {
			ip[i] = value[4+i] ^ cookie[i]
		}
		return Host{Family: family, IP: ip.String(), Port: port}, nil
	case FamilyIPv6:
		if len(value) < 20 {
			return Host{}, fmt.Errorf("stun: %w: XOR IPv6 address attribute too short (%d bytes)", ErrDecode, len(value))
		}
		// trans_id[0:4] is the magic cookie by invariant, so XORing with
		// the full 16-byte trans_id already XORs with cookie+random.
		ip := make(net.IP, 16)
		for i := 0; i < 16; i++ {
			ip[i] = value[4+i] ^ transID[i]
		}
		return Host{Family: family, IP: ip.String(), Port: port}, nil
	default:
		return Host{}, fmt.Errorf("stun: %w: unsupported address family 0x%02x", ErrDecode, family)
	}
}
