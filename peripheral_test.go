package carble

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifyCall struct {
	conn ConnHandle
	attr AttrHandle
	data []byte
}

// fakeRadio records every command issued by the session and lets
// tests inject events and failures.
type fakeRadio struct {
	active  bool
	handler func(Event)

	attrs map[AttrHandle][]byte

	advertiseCalls int
	advInterval    time.Duration
	advPayload     []byte

	notifies []notifyCall

	activateErr  error
	registerErr  error
	advertiseErr error
	notifyErr    error
}

func newFakeRadio() *fakeRadio {
	return &fakeRadio{attrs: make(map[AttrHandle][]byte)}
}

func (r *fakeRadio) Activate(on bool) error {
	if r.activateErr != nil {
		return r.activateErr
	}
	r.active = on
	return nil
}

func (r *fakeRadio) HandleEvents(fn func(Event)) { r.handler = fn }

func (r *fakeRadio) RegisterServices(ss []*Service) ([][]AttrHandle, error) {
	if r.registerErr != nil {
		return nil, r.registerErr
	}
	// Mimic a real attribute table: one handle for the service
	// declaration, then a declaration and a value handle per
	// characteristic.
	n := AttrHandle(1)
	var hh [][]AttrHandle
	for _, s := range ss {
		n++
		var vals []AttrHandle
		for range s.Characteristics() {
			n += 2
			vals = append(vals, n)
			n++
		}
		hh = append(hh, vals)
	}
	return hh, nil
}

func (r *fakeRadio) Advertise(interval time.Duration, payload []byte) error {
	if r.advertiseErr != nil {
		return r.advertiseErr
	}
	r.advertiseCalls++
	r.advInterval = interval
	r.advPayload = payload
	return nil
}

func (r *fakeRadio) Notify(c ConnHandle, a AttrHandle, data []byte) error {
	if r.notifyErr != nil {
		return r.notifyErr
	}
	r.notifies = append(r.notifies, notifyCall{conn: c, attr: a, data: data})
	return nil
}

func (r *fakeRadio) ReadAttribute(a AttrHandle) ([]byte, error) {
	v, ok := r.attrs[a]
	if !ok {
		return nil, errors.New("no such attribute")
	}
	return v, nil
}

func testService() *Service {
	svc := NewService(MustParseUUID("7dbea1af-b4ed-4d65-99c9-78b85f2f371f"))
	svc.AddCharacteristic(MustParseUUID("bd9945a3-5c60-45b1-9f0e-fd3c5eb163b2"), CharRead|CharNotify)
	svc.AddCharacteristic(MustParseUUID("8a1e3d71-7224-4d9d-bf07-cc924abb8db6"), CharWrite|CharWriteNR)
	return svc
}

func newTestPeripheral(t *testing.T) (*Peripheral, *fakeRadio) {
	t.Helper()
	r := newFakeRadio()
	p, err := NewPeripheral(r, testService(), Name("car-leo"))
	require.NoError(t, err)
	return p, r
}

func TestNewPeripheralStartsAdvertising(t *testing.T) {
	p, r := newTestPeripheral(t)

	assert.True(t, r.active)
	require.NotNil(t, r.handler)
	assert.Equal(t, 1, r.advertiseCalls)
	assert.Equal(t, defaultAdvInterval, r.advInterval)
	assert.Equal(t, p.Payload(), r.advPayload)

	a, err := ParseAdvertisement(r.advPayload)
	require.NoError(t, err)
	assert.Equal(t, "car-leo", a.LocalName)
	require.Len(t, a.Services, 1)
	assert.True(t, a.Services[0].Equal(testService().UUID()))
}

func TestNewPeripheralRequiresCharacteristics(t *testing.T) {
	noWrite := NewService(UUID16(0x1815))
	noWrite.AddCharacteristic(UUID16(0x2A56), CharRead|CharNotify)
	_, err := NewPeripheral(newFakeRadio(), noWrite)
	assert.ErrorIs(t, err, ErrNoWritableCharacteristic)

	noNotify := NewService(UUID16(0x1815))
	noNotify.AddCharacteristic(UUID16(0x2A56), CharWrite)
	_, err = NewPeripheral(newFakeRadio(), noNotify)
	assert.ErrorIs(t, err, ErrNoNotifyCharacteristic)
}

func TestNewPeripheralRadioFailures(t *testing.T) {
	r := newFakeRadio()
	r.activateErr = errors.New("power")
	_, err := NewPeripheral(r, testService())
	assert.ErrorContains(t, err, "activate radio")

	r = newFakeRadio()
	r.registerErr = errors.New("table full")
	_, err = NewPeripheral(r, testService())
	assert.ErrorContains(t, err, "register services")

	r = newFakeRadio()
	r.advertiseErr = errors.New("busy")
	_, err = NewPeripheral(r, testService())
	assert.ErrorContains(t, err, "busy")
}

func TestConnectDisconnect(t *testing.T) {
	p, r := newTestPeripheral(t)

	var gotConn, gotDisc []ConnHandle
	p.Handle(
		CentralConnected(func(c ConnHandle) { gotConn = append(gotConn, c) }),
		CentralDisconnected(func(c ConnHandle) { gotDisc = append(gotDisc, c) }),
	)

	r.handler(Event{Kind: EventConnect, Conn: 64})
	assert.True(t, p.IsConnected())
	assert.Equal(t, []ConnHandle{64}, gotConn)

	r.handler(Event{Kind: EventDisconnect, Conn: 64})
	assert.False(t, p.IsConnected())
	assert.Equal(t, []ConnHandle{64}, gotDisc)

	// Once at construction, once after the disconnect.
	assert.Equal(t, 2, r.advertiseCalls)
}

func TestDisconnectUnknownHandle(t *testing.T) {
	p, r := newTestPeripheral(t)

	r.handler(Event{Kind: EventConnect, Conn: 64})
	require.Equal(t, 1, p.ConnectionCount())

	assert.NotPanics(t, func() {
		r.handler(Event{Kind: EventDisconnect, Conn: 99})
	})
	assert.Equal(t, 1, p.ConnectionCount())
	assert.True(t, p.IsConnected())
}

func TestSend(t *testing.T) {
	p, r := newTestPeripheral(t)

	// No open connections: no notify calls, no error.
	require.NoError(t, p.Send([]byte("ping")))
	assert.Empty(t, r.notifies)

	r.handler(Event{Kind: EventConnect, Conn: 64})
	r.handler(Event{Kind: EventConnect, Conn: 65})
	require.NoError(t, p.Send([]byte("ping")))
	require.Len(t, r.notifies, 2)
	for _, n := range r.notifies {
		assert.Equal(t, p.tx, n.attr)
		assert.Equal(t, []byte("ping"), n.data)
	}

	r.notifyErr = errors.New("link lost")
	assert.Error(t, p.Send([]byte("pong")))
}

func TestWriteEvent(t *testing.T) {
	p, r := newTestPeripheral(t)

	var got [][]byte
	p.OnWrite(func(data []byte) { got = append(got, data) })

	r.attrs[p.rx] = []byte("hello")
	r.handler(Event{Kind: EventWrite, Conn: 64, Attr: p.rx})
	require.Equal(t, [][]byte{[]byte("hello")}, got)

	// A write to some other attribute is ignored.
	r.attrs[p.tx] = []byte("nope")
	r.handler(Event{Kind: EventWrite, Conn: 64, Attr: p.tx})
	assert.Len(t, got, 1)
}

func TestWriteEventWithoutCallback(t *testing.T) {
	p, r := newTestPeripheral(t)

	r.attrs[p.rx] = []byte("hello")
	assert.NotPanics(t, func() {
		r.handler(Event{Kind: EventWrite, Conn: 64, Attr: p.rx})
	})
}

func TestOnWriteReplacesCallback(t *testing.T) {
	p, r := newTestPeripheral(t)

	var first, second int
	p.OnWrite(func([]byte) { first++ })
	p.OnWrite(func([]byte) { second++ })

	r.attrs[p.rx] = []byte("x")
	r.handler(Event{Kind: EventWrite, Conn: 64, Attr: p.rx})

	assert.Zero(t, first)
	assert.Equal(t, 1, second)
}

func TestAdvertiseIdempotent(t *testing.T) {
	p, r := newTestPeripheral(t)

	require.NoError(t, p.Advertise(100*time.Millisecond))
	require.NoError(t, p.Advertise(100*time.Millisecond))
	assert.Equal(t, 3, r.advertiseCalls)
	assert.Equal(t, 100*time.Millisecond, r.advInterval)
}

func TestStop(t *testing.T) {
	p, r := newTestPeripheral(t)
	require.NoError(t, p.Stop())
	assert.False(t, r.active)
}
