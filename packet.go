package stun

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// Packet is a STUN message: a 16-bit type, a 16-bit attribute-section
// length, a 16-byte transaction ID (4-byte magic cookie + 12 random
// bytes), and an ordered attribute sequence.
type Packet struct {
	Type       uint16
	Length     uint16
	TransID    [16]byte
	Attributes []Attribute
}

// newPacket builds an empty Packet of the given message type with a fresh
// transaction ID. The random 12 bytes come from a UUID's bytes rather than
// a hand-rolled rand.Read call; correlation, not security, is the only
// requirement a transaction ID has to meet.
func newPacket(msgType uint16) Packet {
	var transID [16]byte
	binary.BigEndian.PutUint32(transID[0:4], MagicCookie)

	id := uuid.New()
	copy(transID[4:16], id[0:12])

	return Packet{Type: msgType, TransID: transID}
}

// addAttribute appends attr and grows Length by its aligned size plus the
// 4-byte TLV header.
func (p *Packet) addAttribute(attr Attribute) {
	p.Length += uint16(align4(len(attr.Value)) + 4)
	p.Attributes = append(p.Attributes, attr)
}

// Bytes serializes the packet as
// [type:2][length:2][trans_id:16][attr...]*.
func (p *Packet) Bytes() []byte {
	buf := make([]byte, 20, 20+int(p.Length))
	binary.BigEndian.PutUint16(buf[0:2], p.Type)
	binary.BigEndian.PutUint16(buf[2:4], p.Length)
	copy(buf[4:20], p.TransID[:])

	for _, attr := range p.Attributes {
		header := make([]byte, 4)
		binary.BigEndian.PutUint16(header[0:2], attr.Type)
		binary.BigEndian.PutUint16(header[2:4], attr.Length)
		buf = append(buf, header...)
		buf = append(buf, attr.Value...)
	}
	return buf
}

// DecodePacket parses raw bytes into a Packet. It rejects buffers shorter
// than the 20-byte header, rejects an attribute section longer than
// 65535 bytes, and fails with ErrDecode if any attribute's declared
// length would read past the buffer.
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) < 20 {
		return nil, fmt.Errorf("stun: %w: message too short (%d bytes)", ErrDecode, len(data))
	}
	if len(data)-20 > 65535 {
		return nil, fmt.Errorf("stun: %w: message too long (%d bytes)", ErrDecode, len(data))
	}

	pkt := &Packet{
		Type:   binary.BigEndian.Uint16(data[0:2]),
		Length: binary.BigEndian.Uint16(data[2:4]),
	}
	copy(pkt.TransID[:], data[4:20])

	offset := 20
	for offset < len(data) {
		if offset+4 > len(data) {
			return nil, fmt.Errorf("stun: %w: truncated attribute header at offset %d", ErrDecode, offset)
		}
		attrType := binary.BigEndian.Uint16(data[offset : offset+2])
		attrLen := binary.BigEndian.Uint16(data[offset+2 : offset+4])

		valueStart := offset + 4
		valueEnd := valueStart + int(attrLen)
		if valueEnd > len(data) {
			return nil, fmt.Errorf("stun: %w: attribute value overflows buffer at offset %d", ErrDecode, offset)
		}

		value := append([]byte(nil), data[valueStart:valueEnd]...)
		pkt.Attributes = append(pkt.Attributes, Attribute{
			Type:   attrType,
			Length: attrLen,
			Value:  padding(value),
		})

		offset = valueStart + align4(int(attrLen))
	}

	return pkt, nil
}

// firstAttr returns the first attribute of the given type, if present.
func (p *Packet) firstAttr(attrType uint16) (Attribute, bool) {
	for _, a := range p.Attributes {
		if a.Type == attrType {
			return a, true
		}
	}
	return Attribute{}, false
}

// rawAddr decodes the first attribute of attrType as a raw (non-XOR)
// address attribute.
func (p *Packet) rawAddr(attrType uint16) (Host, bool, error) {
	attr, ok := p.firstAttr(attrType)
	if !ok {
		return Host{}, false, nil
	}
	h, err := decodeRawAddr(attr.Value)
	if err != nil {
		return Host{}, true, err
	}
	return h, true, nil
}

// xorAddr decodes the first attribute of attrType as an XOR address
// attribute.
func (p *Packet) xorAddr(attrType uint16) (Host, bool, error) {
	attr, ok := p.firstAttr(attrType)
	if !ok {
		return Host{}, false, nil
	}
	h, err := decodeXorAddr(attr.Value, p.TransID)
	if err != nil {
		return Host{}, true, err
	}
	return h, true, nil
}

// mappedAddr returns the reflexive address the server reports. Newer
// servers send XOR-MAPPED-ADDRESS only, older ones send MAPPED-ADDRESS
// only; a server sending both is trusted to keep them consistent, so
// XOR-MAPPED-ADDRESS is preferred and MAPPED-ADDRESS is the fallback.
func (p *Packet) mappedAddr() (Host, bool, error) {
	if h, ok, err := p.xorAddr(AttrXorMappedAddress); ok || err != nil {
		return h, ok, err
	}
	return p.rawAddr(AttrMappedAddress)
}

func (p *Packet) changedAddr() (Host, bool, error) {
	return p.rawAddr(AttrChangedAddress)
}

func (p *Packet) otherAddr() (Host, bool, error) {
	return p.rawAddr(AttrOtherAddress)
}
