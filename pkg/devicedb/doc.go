// Package devicedb loads the .device database that describes supported
// hardware and builds live devices from it.
//
// A .device file is an INI document:
//
//	[Device]
//	Name=Logitech G502
//	DeviceMatch=usb:046d:c07d;usb:046d:c08b
//	Driver=hidpp20
//	DeviceType=mouse
//
//	[Driver/hidpp20]
//	Profiles=5
//	Buttons=11
//	Leds=2
//	Dpis=5
//	DpiRange=100:25600@50
//	Wireless=0
//
// Keys and section names are case-insensitive. A probe descriptor (bus
// type, vendor and product id) is looked up against every DeviceMatch
// pattern of every loaded file.
package devicedb
