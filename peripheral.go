package carble

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Default advertising interval used when none is configured.
const defaultAdvInterval = 500 * time.Millisecond

// ErrNoWritableCharacteristic is returned when the registered service
// has no characteristic accepting writes.
var ErrNoWritableCharacteristic = errors.New("service has no writable characteristic")

// ErrNoNotifyCharacteristic is returned when the registered service
// has no characteristic supporting notifications.
var ErrNoNotifyCharacteristic = errors.New("service has no notify characteristic")

// A Peripheral is a BLE peripheral session. It owns the set of open
// connections, the attribute handles of its service, and a single
// write-callback slot, and it reacts to radio events: connects and
// disconnects update the connection set, and writes to the writable
// characteristic are routed to the registered callback.
//
// The service is fixed at construction. Construction activates the
// radio, registers the service and starts advertising.
type Peripheral struct {
	radio Radio
	svc   *Service

	name        []byte
	appearance  uint16
	limitedDisc bool
	interval    time.Duration
	logger      *log.Logger

	tx AttrHandle // notify characteristic value handle
	rx AttrHandle // writable characteristic value handle

	payload []byte

	mu           sync.Mutex
	conns        map[ConnHandle]struct{}
	writeCB      func([]byte)
	connected    func(ConnHandle)
	disconnected func(ConnHandle)
}

// NewPeripheral builds a session around radio serving svc. The
// service must carry at least one notify characteristic (used for
// Send) and one writable characteristic (routed to OnWrite); the
// first of each, in declaration order, is used.
func NewPeripheral(radio Radio, svc *Service, opts ...Option) (*Peripheral, error) {
	p := &Peripheral{
		radio:    radio,
		svc:      svc,
		interval: defaultAdvInterval,
		logger:   log.StandardLogger(),
		conns:    make(map[ConnHandle]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	var txc, rxc int = -1, -1
	for i, c := range svc.Characteristics() {
		if txc < 0 && c.notifiable() {
			txc = i
		}
		if rxc < 0 && c.writable() {
			rxc = i
		}
	}
	if txc < 0 {
		return nil, ErrNoNotifyCharacteristic
	}
	if rxc < 0 {
		return nil, ErrNoWritableCharacteristic
	}

	if err := radio.Activate(true); err != nil {
		return nil, fmt.Errorf("activate radio: %w", err)
	}
	radio.HandleEvents(p.handleEvent)

	hh, err := radio.RegisterServices([]*Service{svc})
	if err != nil {
		return nil, fmt.Errorf("register services: %w", err)
	}
	p.tx = hh[0][txc]
	p.rx = hh[0][rxc]

	p.payload = AdvertisingPayload(AdvOptions{
		LimitedDiscoverable: p.limitedDisc,
		Name:                p.name,
		Services:            []UUID{svc.UUID()},
		Appearance:          p.appearance,
	})

	if err := p.Advertise(p.interval); err != nil {
		return nil, err
	}
	return p, nil
}

// An Option configures a Peripheral before it touches the radio.
type Option func(*Peripheral)

// Name sets the local name carried in the advertising payload.
func Name(s string) Option {
	return func(p *Peripheral) { p.name = []byte(s) }
}

// Appearance sets the GAP appearance code carried in the advertising
// payload. Zero (the default) omits the field.
func Appearance(a uint16) Option {
	return func(p *Peripheral) { p.appearance = a }
}

// LimitedDiscoverable selects LE Limited Discoverable Mode instead of
// the default General Discoverable Mode.
func LimitedDiscoverable() Option {
	return func(p *Peripheral) { p.limitedDisc = true }
}

// AdvertisingInterval sets the advertising interval used at
// construction and on every restart after a disconnect.
func AdvertisingInterval(d time.Duration) Option {
	return func(p *Peripheral) { p.interval = d }
}

// Logger routes the session's log output to l.
func Logger(l *log.Logger) Option {
	return func(p *Peripheral) { p.logger = l }
}

// handleEvent is the radio's single event handler. The radio must not
// invoke it concurrently with itself; state shared with the
// application's own goroutines is guarded by p.mu.
func (p *Peripheral) handleEvent(ev Event) {
	switch ev.Kind {
	case EventConnect:
		p.mu.Lock()
		p.conns[ev.Conn] = struct{}{}
		f := p.connected
		p.mu.Unlock()
		p.logger.WithField("conn", ev.Conn).Info("new connection")
		if f != nil {
			f(ev.Conn)
		}

	case EventDisconnect:
		// A handle we never saw is dropped silently; the delete is
		// a no-op either way.
		p.mu.Lock()
		delete(p.conns, ev.Conn)
		f := p.disconnected
		p.mu.Unlock()
		p.logger.WithField("conn", ev.Conn).Info("disconnected")
		if f != nil {
			f(ev.Conn)
		}
		// Start advertising again to allow a new connection.
		if err := p.Advertise(p.interval); err != nil {
			p.logger.WithError(err).Error("failed to restart advertising")
		}

	case EventWrite:
		value, err := p.radio.ReadAttribute(ev.Attr)
		if err != nil {
			p.logger.WithError(err).WithField("attr", ev.Attr).Error("failed to read written value")
			return
		}
		p.mu.Lock()
		cb := p.writeCB
		p.mu.Unlock()
		if ev.Attr == p.rx && cb != nil {
			cb(value)
		}
	}
}

// Send notifies every open connection with data on the notify
// characteristic. With no open connections it does nothing. The first
// radio error aborts the fan-out and is returned; there is no retry.
func (p *Peripheral) Send(data []byte) error {
	p.mu.Lock()
	conns := make([]ConnHandle, 0, len(p.conns))
	for c := range p.conns {
		conns = append(conns, c)
	}
	p.mu.Unlock()

	for _, c := range conns {
		if err := p.radio.Notify(c, p.tx, data); err != nil {
			return fmt.Errorf("notify conn %d: %w", c, err)
		}
	}
	return nil
}

// IsConnected reports whether at least one connection is open.
func (p *Peripheral) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns) > 0
}

// ConnectionCount returns the number of open connections.
func (p *Peripheral) ConnectionCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// OnWrite registers the callback invoked with the value of each write
// to the writable characteristic. There is a single slot: a second
// registration silently discards the first. A nil callback clears it.
func (p *Peripheral) OnWrite(fn func(data []byte)) {
	p.mu.Lock()
	p.writeCB = fn
	p.mu.Unlock()
}

// Advertise starts, or restarts, advertising the session payload at
// the given interval. It is idempotent and safe to call repeatedly.
func (p *Peripheral) Advertise(interval time.Duration) error {
	p.logger.WithField("interval", interval).Info("starting advertising")
	return p.radio.Advertise(interval, p.payload)
}

// Payload returns the advertising payload precomputed at
// construction.
func (p *Peripheral) Payload() []byte { return p.payload }

// Service returns the service descriptor the session was built with.
func (p *Peripheral) Service() *Service { return p.svc }

// Stop powers the radio stack off.
func (p *Peripheral) Stop() error { return p.radio.Activate(false) }

// A handler configures an event observer on a Peripheral.
type handler func(*Peripheral)

// Handle registers the specified observers.
func (p *Peripheral) Handle(hh ...handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range hh {
		h(p)
	}
}

// CentralConnected sets a function to be called when a central
// connects to the peripheral.
func CentralConnected(f func(ConnHandle)) handler {
	return func(p *Peripheral) { p.connected = f }
}

// CentralDisconnected sets a function to be called when a central
// disconnects from the peripheral.
func CentralDisconnected(f func(ConnHandle)) handler {
	return func(p *Peripheral) { p.disconnected = f }
}
