// Package sim provides an in-memory Radio implementation. It stands
// in for a real BLE stack in tests and demos: it keeps an attribute
// table, tracks advertising state, and lets a test act as the central
// side of the link, connecting, writing characteristics and receiving
// notifications.
//
// Event delivery is synchronous on the caller's goroutine, the way an
// embedded stack delivers IRQ callbacks: Connect, Disconnect and
// WriteAttribute return after the registered handler has run.
package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/carleo/carble"
)

var (
	// ErrRadioOff is returned for any command issued while the radio
	// is not activated.
	ErrRadioOff = errors.New("sim: radio is not active")

	// ErrNotAdvertising is returned by Connect while the peripheral
	// is not advertising.
	ErrNotAdvertising = errors.New("sim: peripheral is not advertising")

	// ErrUnknownConn is returned by Notify for a connection handle
	// that is not open.
	ErrUnknownConn = errors.New("sim: unknown connection")

	// ErrUnknownAttr is returned for an attribute handle that was
	// never registered.
	ErrUnknownAttr = errors.New("sim: unknown attribute")
)

// A Notification is a characteristic value push received by a
// simulated central.
type Notification struct {
	Attr carble.AttrHandle
	Data []byte
}

// Radio is an in-memory BLE radio. The zero value is not usable; use
// NewRadio.
type Radio struct {
	logger *log.Logger

	mu      sync.Mutex
	active  bool
	handler func(carble.Event)

	// attribute table
	attrs map[carble.AttrHandle][]byte
	chars map[carble.AttrHandle]*carble.Characteristic
	next  carble.AttrHandle

	advertising bool
	advInterval time.Duration
	advPayload  []byte
	advCount    int

	nextConn carble.ConnHandle
	conns    map[carble.ConnHandle]*Central
}

// NewRadio creates an inactive simulated radio.
func NewRadio() *Radio {
	return &Radio{
		logger:   log.StandardLogger(),
		attrs:    make(map[carble.AttrHandle][]byte),
		chars:    make(map[carble.AttrHandle]*carble.Characteristic),
		next:     1, // attribute handles start at 1
		nextConn: 64,
		conns:    make(map[carble.ConnHandle]*Central),
	}
}

// SetLogger routes the radio's debug output to l.
func (r *Radio) SetLogger(l *log.Logger) { r.logger = l }

// Activate powers the simulated stack on or off. Powering off drops
// all open connections and stops advertising, without events.
func (r *Radio) Activate(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = on
	if !on {
		r.advertising = false
		r.conns = make(map[carble.ConnHandle]*Central)
	}
	return nil
}

// HandleEvents registers the single global event handler.
func (r *Radio) HandleEvents(fn func(carble.Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = fn
}

// RegisterServices installs the services in the attribute table. As
// in a real GATT table, each service consumes a declaration handle
// and each characteristic a declaration and a value handle; the value
// handles are returned.
func (r *Radio) RegisterServices(ss []*carble.Service) ([][]carble.AttrHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return nil, ErrRadioOff
	}

	var hh [][]carble.AttrHandle
	for _, s := range ss {
		r.next++ // service declaration
		var vals []carble.AttrHandle
		for _, c := range s.Characteristics() {
			r.next++ // characteristic declaration
			v := r.next
			r.next++
			r.attrs[v] = nil
			r.chars[v] = c
			vals = append(vals, v)
			r.logger.WithFields(log.Fields{
				"uuid":   c.UUID(),
				"handle": v,
			}).Debug("registered characteristic")
		}
		hh = append(hh, vals)
	}
	return hh, nil
}

// Advertise starts, or restarts, advertising.
func (r *Radio) Advertise(interval time.Duration, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return ErrRadioOff
	}
	r.advertising = true
	r.advInterval = interval
	r.advPayload = append([]byte(nil), payload...)
	r.advCount++
	r.logger.WithField("interval", interval).Debug("advertising")
	return nil
}

// Notify pushes a notification to one connected central. It fails for
// a connection that is not open. A central that does not drain its
// notification channel loses the excess.
func (r *Radio) Notify(c carble.ConnHandle, a carble.AttrHandle, data []byte) error {
	r.mu.Lock()
	central, ok := r.conns[c]
	active := r.active
	r.mu.Unlock()
	if !active {
		return ErrRadioOff
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownConn, c)
	}
	n := Notification{Attr: a, Data: append([]byte(nil), data...)}
	select {
	case central.notifs <- n:
	default:
		r.logger.WithField("conn", c).Debug("notification dropped, central not draining")
	}
	return nil
}

// ReadAttribute fetches the current value of an attribute.
func (r *Radio) ReadAttribute(a carble.AttrHandle) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.attrs[a]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAttr, a)
	}
	return append([]byte(nil), v...), nil
}

// CharacteristicHandle returns the value handle registered for the
// characteristic with the given UUID.
func (r *Radio) CharacteristicHandle(u carble.UUID) (carble.AttrHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h, c := range r.chars {
		if c.UUID().Equal(u) {
			return h, true
		}
	}
	return 0, false
}

// Advertising reports whether the radio is currently advertising.
func (r *Radio) Advertising() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.advertising
}

// AdvertiseCount returns how many times advertising was started.
func (r *Radio) AdvertiseCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.advCount
}

// AdvertisedPayload returns the most recently advertised payload.
func (r *Radio) AdvertisedPayload() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.advPayload...)
}

// dispatch runs the registered handler outside the radio lock; the
// handler is free to issue radio commands.
func (r *Radio) dispatch(ev carble.Event) {
	r.mu.Lock()
	fn := r.handler
	r.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

// A Central is the remote side of a simulated link.
type Central struct {
	radio  *Radio
	handle carble.ConnHandle
	notifs chan Notification
}

// Connect simulates a central connecting to the advertising
// peripheral. Advertising stops, as it does on a real single-link
// stack, until the application restarts it.
func (r *Radio) Connect() (*Central, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return nil, ErrRadioOff
	}
	if !r.advertising {
		r.mu.Unlock()
		return nil, ErrNotAdvertising
	}
	c := &Central{
		radio:  r,
		handle: r.nextConn,
		notifs: make(chan Notification, 16),
	}
	r.nextConn++
	r.conns[c.handle] = c
	r.advertising = false
	r.mu.Unlock()

	r.dispatch(carble.Event{Kind: carble.EventConnect, Conn: c.handle})
	return c, nil
}

// Handle returns the connection handle the radio issued for this
// central.
func (c *Central) Handle() carble.ConnHandle { return c.handle }

// Notifications returns the channel notifications are delivered on.
func (c *Central) Notifications() <-chan Notification { return c.notifs }

// Write simulates a characteristic write: the attribute value is
// stored and a write event is delivered. Writing an unregistered or
// non-writable attribute fails.
func (c *Central) Write(a carble.AttrHandle, data []byte) error {
	c.radio.mu.Lock()
	char, ok := c.radio.chars[a]
	if !ok {
		c.radio.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownAttr, a)
	}
	if char.Props()&(carble.CharWrite|carble.CharWriteNR) == 0 {
		c.radio.mu.Unlock()
		return fmt.Errorf("sim: attribute %d is not writable", a)
	}
	c.radio.attrs[a] = append([]byte(nil), data...)
	c.radio.mu.Unlock()

	c.radio.dispatch(carble.Event{Kind: carble.EventWrite, Conn: c.handle, Attr: a})
	return nil
}

// Disconnect simulates the central dropping the link.
func (c *Central) Disconnect() {
	c.radio.mu.Lock()
	delete(c.radio.conns, c.handle)
	c.radio.mu.Unlock()

	c.radio.dispatch(carble.Event{Kind: carble.EventDisconnect, Conn: c.handle})
}
