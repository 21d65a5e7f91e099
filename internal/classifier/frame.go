package classifier

// PacketType is the receive-side category the capture layer assigned to a frame.
type PacketType uint8

const (
	// Management frames: beacons, authentication, deauthentication, etc.
	Management PacketType = iota
	// Control frames: RTS, CTS, ACK.
	Control
	// Data frames.
	Data
	// Misc marks capture artifacts that carry no attacker-relevant payload,
	// such as frames with a failed checksum or an unknown frame type.
	Misc
)

// String returns a short name of the packet type.
func (t PacketType) String() string {
	switch t {
	case Management:
		return "management"
	case Control:
		return "control"
	case Data:
		return "data"
	default:
		return "misc"
	}
}

// Frame is one captured frame together with its receive metadata.
// Payload starts at the 802.11 frame control field and is only borrowed
// for the duration of a Classify call.
type Frame struct {
	// Payload is the raw 802.11 frame.
	Payload []byte
	// Channel is the radio channel the frame was received on.
	Channel uint16
	// Type is the category assigned by the capture layer.
	Type PacketType
}
