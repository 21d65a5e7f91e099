package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/oshokin/wifi-sentinel/internal/classifier"
)

var (
	// ErrUnsupportedLinkType is returned for sources that do not carry 802.11 frames.
	ErrUnsupportedLinkType = errors.New("unsupported link type")
	// errDataSourceRequired is returned when no packet source is supplied.
	errDataSourceRequired = errors.New("packet data source must be provided")
)

// Handler receives every captured frame. The payload is only valid during the call.
type Handler func(frame classifier.Frame)

// Source delivers decoded frames from a packet data source.
type Source struct {
	data            gopacket.PacketDataSource
	linkType        layers.LinkType
	fallbackChannel uint16
	closer          func() error
	// transient reports read errors after which reading should continue.
	transient func(error) bool

	packets   atomic.Uint64
	artifacts atomic.Uint64
}

// Option configures a Source.
type Option func(*Source)

// WithFallbackChannel sets the channel reported when the packet carries none.
func WithFallbackChannel(channel uint16) Option {
	return func(s *Source) {
		s.fallbackChannel = channel
	}
}

// WithCloser registers a function run by Close.
func WithCloser(closer func() error) Option {
	return func(s *Source) {
		s.closer = closer
	}
}

// WithTransientError marks read errors that should be skipped, such as read timeouts.
func WithTransientError(isTransient func(error) bool) Option {
	return func(s *Source) {
		s.transient = isTransient
	}
}

// New wraps data. Only radiotap and bare 802.11 link types are accepted.
func New(data gopacket.PacketDataSource, linkType layers.LinkType, opts ...Option) (*Source, error) {
	if data == nil {
		return nil, errDataSourceRequired
	}

	if linkType != layers.LinkTypeIEEE80211Radio && linkType != layers.LinkTypeIEEE802_11 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLinkType, linkType)
	}

	s := &Source{
		data:     data,
		linkType: linkType,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// linkTypeSource is implemented by both pcap and pcapng readers.
type linkTypeSource interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// OpenFile opens a pcap or pcapng capture for replay.
func OpenFile(path string, opts ...Option) (*Source, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open capture file: %w", err)
	}

	reader, err := newFileReader(f)
	if err != nil {
		_ = f.Close()

		return nil, err
	}

	opts = append(opts, WithCloser(f.Close))

	src, err := New(reader, reader.LinkType(), opts...)
	if err != nil {
		_ = f.Close()

		return nil, err
	}

	return src, nil
}

// newFileReader picks the pcap or pcapng reader based on the file magic.
func newFileReader(f io.Reader) (linkTypeSource, error) {
	buffered := bufio.NewReader(f)

	magic, err := buffered.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("read capture header: %w", err)
	}

	// Section header block type of pcapng.
	if magic[0] == 0x0A && magic[1] == 0x0D && magic[2] == 0x0D && magic[3] == 0x0A {
		ng, ngErr := pcapgo.NewNgReader(buffered, pcapgo.DefaultNgReaderOptions)
		if ngErr != nil {
			return nil, fmt.Errorf("read pcapng header: %w", ngErr)
		}

		return ng, nil
	}

	r, err := pcapgo.NewReader(buffered)
	if err != nil {
		return nil, fmt.Errorf("read pcap header: %w", err)
	}

	return r, nil
}

// LinkType returns the link type of the underlying source.
func (s *Source) LinkType() layers.LinkType {
	return s.linkType
}

// Packets returns how many packets were read so far.
func (s *Source) Packets() uint64 {
	return s.packets.Load()
}

// Artifacts returns how many packets were delivered as classifier.Misc.
func (s *Source) Artifacts() uint64 {
	return s.artifacts.Load()
}

// Run reads packets and calls handler for each one until the source is
// exhausted or ctx is done. Reaching the end of the source is not an error.
func (s *Source) Run(ctx context.Context, handler Handler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		data, _, err := s.data.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}

			if s.transient != nil && s.transient(err) {
				continue
			}

			return fmt.Errorf("read packet: %w", err)
		}

		s.packets.Add(1)

		frame := Decode(data, s.linkType, s.fallbackChannel)
		if frame.Type == classifier.Misc {
			s.artifacts.Add(1)
		}

		handler(frame)
	}
}

// Close releases the underlying source.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}

	return s.closer()
}
