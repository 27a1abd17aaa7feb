package carble

// Do not re-order the bit flags below;
// they are organized to match the BLE spec.

// Characteristic property flags.
const (
	CharRead    = 1 << (iota + 1) // the characteristic may be read
	CharWriteNR                   // the characteristic may be written to, with no reply
	CharWrite                     // the characteristic may be written to, with a reply
	CharNotify                    // the characteristic supports notifications
)

// A Service is a BLE service descriptor: a UUID plus an ordered set
// of characteristics. Calls to AddCharacteristic must occur before
// the service is registered with a radio.
type Service struct {
	uuid  UUID
	chars []*Characteristic
}

// NewService creates a service with the given UUID.
func NewService(u UUID) *Service {
	return &Service{uuid: u}
}

// AddCharacteristic adds a characteristic with the given UUID and
// property flags to a service. AddCharacteristic panics if the
// service already contains another characteristic with the same UUID.
func (s *Service) AddCharacteristic(u UUID, props uint) *Characteristic {
	for _, char := range s.chars {
		if uuidEqual(char.uuid, u) {
			panic("service already contains a characteristic with uuid " + u.String())
		}
	}

	char := &Characteristic{
		service: s,
		uuid:    u,
		props:   props,
	}
	s.chars = append(s.chars, char)
	return char
}

// UUID returns the service's UUID.
func (s *Service) UUID() UUID { return s.uuid }

// Characteristics returns the service's characteristics in
// declaration order.
func (s *Service) Characteristics() []*Characteristic { return s.chars }

// A Characteristic is a BLE characteristic descriptor.
type Characteristic struct {
	uuid  UUID
	props uint

	service *Service
}

// UUID returns the characteristic's UUID.
func (c *Characteristic) UUID() UUID { return c.uuid }

// Props returns the characteristic's property flags.
func (c *Characteristic) Props() uint { return c.props }

// Service returns the service the characteristic belongs to.
func (c *Characteristic) Service() *Service { return c.service }

// notifiable reports whether the characteristic supports
// notifications.
func (c *Characteristic) notifiable() bool { return c.props&CharNotify != 0 }

// writable reports whether the characteristic accepts writes, with or
// without response.
func (c *Characteristic) writable() bool {
	return c.props&(CharWrite|CharWriteNR) != 0
}
