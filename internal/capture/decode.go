package capture

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/oshokin/wifi-sentinel/internal/classifier"
)

// fcsLength is the size of the trailing 802.11 frame check sequence.
const fcsLength = 4

// Decode converts one captured packet into a classifier frame.
// Packets that cannot be decoded are returned as classifier.Misc.
func Decode(data []byte, linkType layers.LinkType, fallbackChannel uint16) classifier.Frame {
	switch linkType {
	case layers.LinkTypeIEEE80211Radio:
		return decodeRadioTap(data, fallbackChannel)
	case layers.LinkTypeIEEE802_11:
		return classifier.Frame{
			Payload: data,
			Channel: fallbackChannel,
			Type:    frameType(data),
		}
	default:
		return classifier.Frame{Channel: fallbackChannel, Type: classifier.Misc}
	}
}

func decodeRadioTap(data []byte, fallbackChannel uint16) (frame classifier.Frame) {
	// The radiotap decoder indexes the payload for some flag combinations
	// without checking its length.
	defer func() {
		if recover() != nil {
			frame = classifier.Frame{Channel: fallbackChannel, Type: classifier.Misc}
		}
	}()

	var rt layers.RadioTap

	if err := rt.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return classifier.Frame{Channel: fallbackChannel, Type: classifier.Misc}
	}

	channel := fallbackChannel
	if rt.Present.Channel() {
		if ch := ChannelFromFrequency(uint16(rt.ChannelFrequency)); ch != 0 {
			channel = ch
		}
	}

	frame = classifier.Frame{
		Payload: rt.Payload,
		Channel: channel,
	}

	if rt.Present.Flags() && rt.Flags.BadFCS() {
		frame.Type = classifier.Misc
		return frame
	}

	// The payload always ends in an FCS: the captured one when the flags
	// report it, otherwise one computed by the decoder.
	if len(frame.Payload) < fcsLength {
		frame.Type = classifier.Misc
		return frame
	}

	frame.Payload = frame.Payload[:len(frame.Payload)-fcsLength]
	frame.Type = frameType(frame.Payload)

	return frame
}

// frameType reads the category from the frame control field.
func frameType(payload []byte) classifier.PacketType {
	// Protocol version must be zero; anything else is not a valid 802.11 frame.
	if len(payload) == 0 || payload[0]&0x03 != 0 {
		return classifier.Misc
	}

	switch layers.Dot11Type(payload[0] >> 2).MainType() {
	case layers.Dot11TypeMgmt:
		return classifier.Management
	case layers.Dot11TypeCtrl:
		return classifier.Control
	case layers.Dot11TypeData:
		return classifier.Data
	default:
		return classifier.Misc
	}
}

// ChannelFromFrequency maps a center frequency in MHz to its channel number.
// Unknown frequencies map to zero.
func ChannelFromFrequency(mhz uint16) uint16 {
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz <= 2472:
		return (mhz - 2407) / 5
	case mhz >= 5160 && mhz <= 5885:
		return (mhz - 5000) / 5
	case mhz == 5935:
		return 2
	case mhz >= 5955 && mhz <= 7115:
		return (mhz - 5950) / 5
	default:
		return 0
	}
}
