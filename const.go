package carble

// This file includes constants from the BLE spec.

// advertising data field types
const (
	typeFlags        = 0x01 // Flags
	typeSomeUUID16   = 0x02 // Incomplete List of 16-bit Service Class UUIDs
	typeAllUUID16    = 0x03 // Complete List of 16-bit Service Class UUIDs
	typeSomeUUID32   = 0x04 // Incomplete List of 32-bit Service Class UUIDs
	typeAllUUID32    = 0x05 // Complete List of 32-bit Service Class UUIDs
	typeSomeUUID128  = 0x06 // Incomplete List of 128-bit Service Class UUIDs
	typeAllUUID128   = 0x07 // Complete List of 128-bit Service Class UUIDs
	typeShortName    = 0x08 // Shortened Local Name
	typeCompleteName = 0x09 // Complete Local Name
	typeTxPower      = 0x0A // Tx Power Level
	typeAppearance   = 0x19 // Appearance
)

// flag bits
const (
	flagLimitedDiscoverable = 1 << iota // LE Limited Discoverable Mode
	flagGeneralDiscoverable             // LE General Discoverable Mode
	flagLEOnly                          // BR/EDR Not Supported
	flagBothController                  // Simultaneous LE and BR/EDR (Controller)
	flagBothHost                        // Simultaneous LE and BR/EDR (Host)
)

// https://developer.bluetooth.org/gatt/characteristics/Pages/CharacteristicViewer.aspx?u=org.bluetooth.characteristic.gap.appearance.xml
const (
	// AppearanceGenericComputer is the GAP appearance code for a
	// generic computer, a reasonable default for hobbyist boards.
	AppearanceGenericComputer = 0x0080
)
