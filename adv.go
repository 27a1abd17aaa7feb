package carble

import (
	"encoding/binary"
	"errors"
)

// MaxEIRPacketLength is the maximum allowed advertising data length.
// AdvertisingPayload does not enforce it; callers that exceed it will
// have their payload rejected or truncated by the radio stack.
const MaxEIRPacketLength = 31

// ErrInvalidAdvData is the error returned when parsing a malformed
// advertising data block.
var ErrInvalidAdvData = errors.New("invalid advertising data")

// AdvOptions describes the contents of an advertising payload.
type AdvOptions struct {
	// LimitedDiscoverable selects LE Limited Discoverable Mode in the
	// flags field; the default is General Discoverable Mode.
	LimitedDiscoverable bool

	// BREDRCapable marks the device as simultaneously BR/EDR capable
	// (controller and host); the default flags claim LE only.
	BREDRCapable bool

	// Name, if non-empty, is emitted verbatim as a Complete Local Name
	// field. Truncation is the caller's problem.
	Name []byte

	// Services are emitted in order, each as a complete-UUID-list field
	// selected by the UUID's byte length. UUIDs of unsupported lengths
	// are silently skipped.
	Services []UUID

	// Appearance, if nonzero, is emitted as a 2-byte little-endian
	// Appearance field.
	Appearance uint16
}

// AdvertisingPayload builds the advertising data block announced by a
// peripheral. The flags field always comes first. The total length is
// not checked against MaxEIRPacketLength.
func AdvertisingPayload(opts AdvOptions) []byte {
	p := new(AdvPacket)
	p.AppendFlags(opts.LimitedDiscoverable, opts.BREDRCapable)
	if len(opts.Name) > 0 {
		p.AppendName(opts.Name)
	}
	for _, u := range opts.Services {
		p.AppendUUID(u)
	}
	if opts.Appearance != 0 {
		p.AppendAppearance(opts.Appearance)
	}
	return p.Bytes()
}

// An AdvPacket accumulates length-prefixed, type-tagged advertising
// data fields.
type AdvPacket struct {
	data []byte
}

// Bytes returns the accumulated fields.
func (p *AdvPacket) Bytes() []byte { return p.data }

// Len returns the accumulated length in bytes.
func (p *AdvPacket) Len() int { return len(p.data) }

// AppendField appends a BLE advertising packet field.
// A field consists of len, typ, data.
// Len is 1 byte for typ plus len(data).
func (p *AdvPacket) AppendField(typ byte, data []byte) *AdvPacket {
	p.data = append(p.data, byte(len(data)+1))
	p.data = append(p.data, typ)
	p.data = append(p.data, data...)
	return p
}

// AppendFlags appends a flags field combining the discoverability
// mode with the BR/EDR capability bits.
func (p *AdvPacket) AppendFlags(limitedDisc, brEDR bool) *AdvPacket {
	flags := byte(flagGeneralDiscoverable)
	if limitedDisc {
		flags = flagLimitedDiscoverable
	}
	if brEDR {
		flags |= flagBothController | flagBothHost
	} else {
		flags |= flagLEOnly
	}
	return p.AppendField(typeFlags, []byte{flags})
}

// AppendName appends a Complete Local Name field.
func (p *AdvPacket) AppendName(name []byte) *AdvPacket {
	return p.AppendField(typeCompleteName, name)
}

// AppendUUID appends a complete-service-UUID field, selecting the
// field type by the UUID's byte length. UUIDs of any other length are
// skipped without error; the radio has no field type for them.
func (p *AdvPacket) AppendUUID(u UUID) *AdvPacket {
	switch u.Len() {
	case 2:
		p.AppendField(typeAllUUID16, u.reverseBytes())
	case 4:
		p.AppendField(typeAllUUID32, u.reverseBytes())
	case 16:
		p.AppendField(typeAllUUID128, u.reverseBytes())
	}
	return p
}

// AppendAppearance appends a 2-byte little-endian Appearance field.
func (p *AdvPacket) AppendAppearance(a uint16) *AdvPacket {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, a)
	return p.AppendField(typeAppearance, b)
}

// An Advertisement holds the decoded fields of an advertising data
// block.
type Advertisement struct {
	Flags      byte
	LocalName  string
	Services   []UUID
	Appearance uint16
	TxPower    int
}

// ParseAdvertisement decodes an advertising data block. Each field
// must carry a length byte equal to its content length plus one, and
// the fields must exactly cover the block.
func ParseAdvertisement(b []byte) (*Advertisement, error) {
	a := &Advertisement{}
	for len(b) > 0 {
		if len(b) < 2 {
			return nil, ErrInvalidAdvData
		}
		l, t := b[0], b[1]
		if l == 0 || len(b) < int(1+l) {
			return nil, ErrInvalidAdvData
		}
		d := b[2 : 1+l]
		switch t {
		case typeFlags:
			if len(d) < 1 {
				return nil, ErrInvalidAdvData
			}
			a.Flags = d[0]
		case typeSomeUUID16, typeAllUUID16:
			a.Services = appendUUIDList(a.Services, d, 2)
		case typeSomeUUID32, typeAllUUID32:
			a.Services = appendUUIDList(a.Services, d, 4)
		case typeSomeUUID128, typeAllUUID128:
			a.Services = appendUUIDList(a.Services, d, 16)
		case typeShortName, typeCompleteName:
			a.LocalName = string(d)
		case typeTxPower:
			if len(d) < 1 {
				return nil, ErrInvalidAdvData
			}
			a.TxPower = int(int8(d[0]))
		case typeAppearance:
			if len(d) < 2 {
				return nil, ErrInvalidAdvData
			}
			a.Appearance = binary.LittleEndian.Uint16(d)
		}
		b = b[1+l:]
	}
	return a, nil
}

// appendUUIDList splits d into UUIDs of width w, reversing each back
// into canonical byte order.
func appendUUIDList(u []UUID, d []byte, w int) []UUID {
	for len(d) >= w {
		u = append(u, UUID{reverse(d[:w])})
		d = d[w:]
	}
	return u
}
