package detection

import "fmt"

// Kind identifies the attack signature that matched a frame.
type Kind uint8

const (
	// KindUnknown is the zero value and never produced by the classifier.
	KindUnknown Kind = iota
	// DeauthFlood marks an 802.11 deauthentication frame.
	DeauthFlood
	// PixieDust marks a reassociation request, used as a coarse proxy for
	// WPS pixie dust exploitation traffic.
	PixieDust
)

// String returns the human-readable attack label used in diagnostics.
func (k Kind) String() string {
	switch k {
	case DeauthFlood:
		return "Deauth"
	case PixieDust:
		return "Pixie Dust"
	default:
		return "Unknown"
	}
}

// MACLength is the size of an IEEE 802 hardware address in bytes.
const MACLength = 6

// MAC is a 6-byte hardware address stored by value.
type MAC [MACLength]byte

// String formats the address as uppercase colon-separated hex.
func (m MAC) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Detection is a single positive classification of a captured frame.
type Detection struct {
	// Kind is the matched attack signature.
	Kind Kind
	// MAC is the transmitter address extracted from the frame.
	MAC MAC
	// Channel is the radio channel the frame was received on.
	Channel uint16
}

// String renders the diagnostic line emitted for every detection.
func (d Detection) String() string {
	return fmt.Sprintf("%s packet detected from MAC address: %s on channel %d", d.Kind, d.MAC, d.Channel)
}
