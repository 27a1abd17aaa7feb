package carble

import "time"

// A ConnHandle identifies an active link. It is issued by the radio
// stack on connect and is meaningless after the matching disconnect.
type ConnHandle uint16

// An AttrHandle identifies a characteristic value in the radio's
// attribute table. Handles are bound at service registration and stay
// fixed for the life of the session.
type AttrHandle uint16

// EventKind tags a radio event.
type EventKind int

const (
	// EventConnect reports a central connecting; Conn is valid.
	EventConnect EventKind = iota + 1
	// EventDisconnect reports a central disconnecting; Conn is valid.
	EventDisconnect
	// EventWrite reports a written characteristic value; Conn and
	// Attr are valid. The value itself is fetched with ReadAttribute.
	EventWrite
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventWrite:
		return "write"
	}
	return "unknown"
}

// An Event is a single radio IRQ delivery. Which fields are valid
// depends on Kind.
type Event struct {
	Kind EventKind
	Conn ConnHandle
	Attr AttrHandle
}

// Radio is the interface the host BLE stack must provide. The package
// does not implement GAP or GATT mechanics itself; it drives them
// through this seam. Implementations deliver events through the
// handler registered with HandleEvents and must not invoke it
// concurrently with itself.
type Radio interface {
	// Activate powers the radio stack on or off.
	Activate(on bool) error

	// HandleEvents registers the single global event handler.
	HandleEvents(fn func(Event))

	// RegisterServices installs the given services in the attribute
	// table and returns, per service, the value handle of each
	// characteristic in declaration order.
	RegisterServices(ss []*Service) ([][]AttrHandle, error)

	// Advertise starts, or restarts, advertising the payload at the
	// given interval.
	Advertise(interval time.Duration, payload []byte) error

	// Notify pushes a characteristic value notification to one
	// connected central.
	Notify(c ConnHandle, a AttrHandle, data []byte) error

	// ReadAttribute fetches the current value of an attribute, such
	// as the value just written by a central.
	ReadAttribute(a AttrHandle) ([]byte, error)
}
