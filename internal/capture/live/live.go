// Package live opens a monitor-mode wireless interface through libpcap.
//
// It is kept apart from package capture because it needs cgo and the
// libpcap headers at build time.
package live

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/gopacket/pcap"

	"github.com/oshokin/wifi-sentinel/internal/capture"
)

const (
	// SnapLength is large enough for any 802.11 management frame with radiotap.
	SnapLength = 2048
	// ReadTimeout bounds each read so cancellation is noticed promptly.
	ReadTimeout = 500 * time.Millisecond
	// DefaultFilter keeps only management frames, the only ones that can match.
	DefaultFilter = "type mgt"
)

// errInterfaceRequired is returned when no interface name is supplied.
var errInterfaceRequired = errors.New("capture interface must be provided")

// Open starts promiscuous capture on iface and applies DefaultFilter.
// The interface must already be in monitor mode.
func Open(iface string, opts ...capture.Option) (*capture.Source, error) {
	if iface == "" {
		return nil, errInterfaceRequired
	}

	handle, err := pcap.OpenLive(iface, SnapLength, true, ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", iface, err)
	}

	if err = handle.SetBPFFilter(DefaultFilter); err != nil {
		handle.Close()

		return nil, fmt.Errorf("set filter %q on %s: %w", DefaultFilter, iface, err)
	}

	opts = append(opts,
		capture.WithTransientError(isTimeout),
		capture.WithCloser(func() error {
			handle.Close()
			return nil
		}),
	)

	src, err := capture.New(handle, handle.LinkType(), opts...)
	if err != nil {
		handle.Close()

		return nil, fmt.Errorf("capture on %s: %w", iface, err)
	}

	return src, nil
}

// isTimeout reports the read timeout libpcap returns when no packet arrived.
func isTimeout(err error) bool {
	return errors.Is(err, pcap.NextErrorTimeoutExpired)
}
