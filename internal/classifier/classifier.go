package classifier

import "github.com/oshokin/wifi-sentinel/internal/domain/detection"

// signature describes one frame control pattern and where its transmitter
// address lives.
type signature struct {
	kind         detection.Kind
	frameControl [2]byte
	macOffset    int
}

// minLength is the shortest payload that holds both the frame control bytes
// and the whole address field.
func (s signature) minLength() int {
	return s.macOffset + detection.MACLength
}

// match reports whether payload carries this signature and returns the address.
func (s signature) match(payload []byte) (detection.MAC, bool) {
	var mac detection.MAC

	if len(payload) < s.minLength() {
		return mac, false
	}

	if payload[0] != s.frameControl[0] || payload[1] != s.frameControl[1] {
		return mac, false
	}

	copy(mac[:], payload[s.macOffset:s.minLength()])

	return mac, true
}

// signatures are evaluated in order; the first match wins.
//
//nolint:gochecknoglobals // Fixed rule table, never mutated.
var signatures = [...]signature{
	{
		// Management type 0, subtype 12: deauthentication. Address 2 (SA) at offset 10.
		kind:         detection.DeauthFlood,
		frameControl: [2]byte{0xC0, 0x00},
		macOffset:    10,
	},
	{
		// Management type 0, subtype 3: reassociation request.
		kind:         detection.PixieDust,
		frameControl: [2]byte{0x30, 0x00},
		macOffset:    4,
	},
}

// Classify checks a frame against the known signatures.
// It returns false for capture artifacts, unknown frames and frames too short
// to hold the address field of their signature.
func Classify(frame Frame) (detection.Detection, bool) {
	if frame.Type == Misc {
		return detection.Detection{}, false
	}

	for _, sig := range signatures {
		mac, ok := sig.match(frame.Payload)
		if !ok {
			continue
		}

		return detection.Detection{
			Kind:    sig.kind,
			MAC:     mac,
			Channel: frame.Channel,
		}, true
	}

	return detection.Detection{}, false
}
