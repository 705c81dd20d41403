// Package testdevice parses declarative device descriptions and builds
// synthetic devices from them.
//
// A description is YAML or JSON. Every field is optional and takes the
// default documented on its type. An empty document yields one disabled,
// inactive profile:
//
//	profiles:
//	  - is_active: true
//	    rate: 500
//	    resolutions:
//	      - {xres: 800, dpi_min: 100, dpi_max: 3200, is_active: true, is_default: true}
//	    buttons:
//	      - {action_type: key, key: 30}
//	    leds:
//	      - {mode: 1, color: [255, 0, 0]}
//
// Parsing rejects unknown fields. Building checks every model invariant
// before a device is constructed; violations are *model.SpecError values
// naming the offending field.
package testdevice
