// Package carble implements a minimal BLE peripheral session for
// embedded boards: it advertises a custom service, exposes a single
// logical read-notify / write characteristic pair, tracks connection
// state, and drives a PWM LED as a visual indicator of connection and
// activity.
//
// carble is not a BLE stack. GAP advertising, the GATT attribute
// table and event delivery are the job of a host radio stack, which
// the package drives through the Radio interface. Any stack that can
// power on, register services, advertise a payload, push
// notifications and report connect/disconnect/write events will do;
// the sim package provides an in-memory one for development and
// tests.
//
// USAGE
//
// Sessions are constructed around a radio and a service descriptor:
//
//	svc := carble.NewService(carble.MustParseUUID("7dbea1af-b4ed-4d65-99c9-78b85f2f371f"))
//	svc.AddCharacteristic(carble.MustParseUUID("bd9945a3-5c60-45b1-9f0e-fd3c5eb163b2"),
//		carble.CharRead|carble.CharNotify)
//	svc.AddCharacteristic(carble.MustParseUUID("8a1e3d71-7224-4d9d-bf07-cc924abb8db6"),
//		carble.CharWrite|carble.CharWriteNR)
//
//	p, err := carble.NewPeripheral(radio, svc, carble.Name("car-leo"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	p.OnWrite(func(data []byte) {
//		log.Println("received:", string(data))
//	})
//
// Construction activates the radio, registers the service, and starts
// advertising. Advertising restarts automatically whenever the last
// connection drops, so a fresh central can always connect.
//
// Data flows out with Send, which notifies every open connection on
// the notify characteristic:
//
//	if p.IsConnected() {
//		p.Send([]byte("ping"))
//	}
//
// The advertising payload itself is built by AdvertisingPayload and
// can be used independently of a session; ParseAdvertisement decodes
// one back into its fields.
//
// Connection feedback on an LED is provided by Indicator, which takes
// any PWM output. Wire its Connected/Disconnected transitions through
// Handle and its activity pulse through OnWrite; run its pulse loop
// away from the radio's event path:
//
//	ind := carble.NewIndicator(pwm)
//	p.Handle(
//		carble.CentralConnected(func(carble.ConnHandle) { ind.Connected() }),
//		carble.CentralDisconnected(func(carble.ConnHandle) { ind.Disconnected() }),
//	)
//	p.OnWrite(func(data []byte) { ind.Pulse() })
//	go ind.Run(ctx)
package carble
