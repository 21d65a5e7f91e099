package sensor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/wifi-sentinel/internal/actuator"
	"github.com/oshokin/wifi-sentinel/internal/capture"
	"github.com/oshokin/wifi-sentinel/internal/config"
	"github.com/oshokin/wifi-sentinel/internal/domain/detection"
)

const testPulse = 5 * time.Millisecond

var errTestOutput = errors.New("buzzer disconnected")

// countingOutput counts rising edges and can fail on demand.
type countingOutput struct {
	mu       sync.Mutex
	on       bool
	rises    int
	closed   bool
	failHigh bool
}

func (o *countingOutput) Set(on bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if on && o.failHigh {
		return errTestOutput
	}

	if on && !o.on {
		o.rises++
	}

	o.on = on

	return nil
}

func (o *countingOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.on = false
	o.closed = true

	return nil
}

func (o *countingOutput) state() (rises int, on, closed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.rises, o.on, o.closed
}

// writeReplay stores bare 802.11 frames in a pcap file.
func writeReplay(t *testing.T, frames ...[]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "replay.pcap")

	f, err := os.Create(path)
	require.NoError(t, err)

	defer func() {
		require.NoError(t, f.Close())
	}()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65535, layers.LinkTypeIEEE802_11))

	for _, frame := range frames {
		require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     time.Now(),
			CaptureLength: len(frame),
			Length:        len(frame),
		}, frame))
	}

	return path
}

func deauthFrame(src detection.MAC) []byte {
	frame := make([]byte, 26)
	frame[0] = 0xC0
	copy(frame[10:16], src[:])

	return frame
}

func pixieFrame(src detection.MAC) []byte {
	return append([]byte{0x30, 0x00, 0x00, 0x00}, src[:]...)
}

func newTestRunner(cfg *config.Config, out *countingOutput) *runner {
	return &runner{
		cfg: cfg,
		openOutput: func(context.Context, *config.Config) (output, error) {
			return out, nil
		},
		openSource:      sourceOpener(nil),
		actuatorOptions: []actuator.Option{actuator.WithPulseDuration(testPulse)},
	}
}

// TestRun_ReplaySynchronous replays a capture with alerting on the capture path.
func TestRun_ReplaySynchronous(t *testing.T) {
	t.Parallel()

	replay := writeReplay(t,
		deauthFrame(detection.MAC{1, 2, 3, 4, 5, 6}),
		append([]byte{0x80, 0x00}, make([]byte, 30)...),
		pixieFrame(detection.MAC{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}),
		[]byte{0xC0, 0x00},
	)

	out := new(countingOutput)
	r := newTestRunner(&config.Config{ReplayFile: replay, FallbackChannel: 6}, out)

	stats, err := r.run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{Frames: 4, Detections: 2, Pulses: 3}, stats)

	// Boot chime plus one pulse per detection.
	rises, on, closed := out.state()
	require.Equal(t, 3, rises)
	require.False(t, on)
	require.True(t, closed)
}

// TestRun_ReplayQueued drains the bounded queue before returning.
func TestRun_ReplayQueued(t *testing.T) {
	t.Parallel()

	frames := make([][]byte, 0, 5)
	for i := range 5 {
		frames = append(frames, deauthFrame(detection.MAC{0, 0, 0, 0, 0, byte(i)}))
	}

	out := new(countingOutput)
	r := newTestRunner(&config.Config{ReplayFile: writeReplay(t, frames...), QueueDepth: 16}, out)

	stats, err := r.run(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{Frames: 5, Detections: 5, Pulses: 6}, stats)

	rises, _, _ := out.state()
	require.Equal(t, 6, rises)
}

// TestRun_BootChimeFailureIsFatal stops before capture when the output cannot be driven.
func TestRun_BootChimeFailureIsFatal(t *testing.T) {
	t.Parallel()

	out := &countingOutput{failHigh: true}
	r := newTestRunner(&config.Config{ReplayFile: "never-opened.pcap"}, out)

	r.openSource = func(*config.Config) (frameSource, error) {
		t.Fatal("capture must not be opened after a failed boot chime")

		return nil, nil
	}

	_, err := r.run(context.Background())
	require.ErrorIs(t, err, errTestOutput)

	_, _, closed := out.state()
	require.True(t, closed)
}

// TestRun_SourceError reports a capture that cannot be opened.
func TestRun_SourceError(t *testing.T) {
	t.Parallel()

	out := new(countingOutput)
	r := newTestRunner(&config.Config{ReplayFile: filepath.Join(t.TempDir(), "missing.pcap")}, out)

	_, err := r.run(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestRun_WithHealthEndpoint runs a replay with the health endpoint enabled.
func TestRun_WithHealthEndpoint(t *testing.T) {
	t.Parallel()

	out := new(countingOutput)
	r := newTestRunner(&config.Config{
		ReplayFile:    writeReplay(t, pixieFrame(detection.MAC{9, 9, 9, 9, 9, 9})),
		HealthAddress: "127.0.0.1:0",
	}, out)

	stats, err := r.run(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), stats.Detections)
}

// TestRun_LiveCaptureRequiresOpener fails when no live opener is wired in.
func TestRun_LiveCaptureRequiresOpener(t *testing.T) {
	t.Parallel()

	out := new(countingOutput)
	r := newTestRunner(&config.Config{Interface: "wlan0mon"}, out)

	_, err := r.run(context.Background())
	require.ErrorIs(t, err, errLiveCaptureUnavailable)

	var opened string

	r = newTestRunner(&config.Config{Interface: "wlan0mon", FallbackChannel: 3}, out)
	r.openSource = sourceOpener(func(iface string, opts ...capture.Option) (*capture.Source, error) {
		opened = iface

		return capture.OpenFile(writeReplay(t, pixieFrame(detection.MAC{1, 1, 1, 1, 1, 1})), opts...)
	})

	stats, err := r.run(context.Background())
	require.NoError(t, err)
	require.Equal(t, "wlan0mon", opened)
	require.Equal(t, uint64(1), stats.Detections)
}

// TestLoadSettings applies command line overrides on top of the file.
func TestLoadSettings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(path, &config.Config{Interface: "wlan0mon", QueueDepth: 4}))

	depth := 0

	cfg, err := loadSettings(&Options{
		ConfigPath: path,
		AlarmPin:   "GPIO27",
		DryRun:     true,
		QueueDepth: &depth,
		LogLevel:   "debug",
	})
	require.NoError(t, err)
	require.Equal(t, "wlan0mon", cfg.Interface)
	require.Equal(t, "GPIO27", cfg.AlarmPin)
	require.True(t, cfg.DryRun)
	require.Zero(t, cfg.QueueDepth)
	require.Equal(t, "debug", cfg.LogLevel)

	_, err = loadSettings(&Options{ConfigPath: path, LogLevel: "shout"})
	require.Error(t, err)

	_, err = loadSettings(&Options{ConfigPath: filepath.Join(t.TempDir(), "none.yaml")})
	require.Error(t, err)
}

// fakeProcess is a minimal ps.Process.
type fakeProcess struct {
	pid  int
	name string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

// TestOtherInstances ignores itself, its parent and unrelated executables.
func TestOtherInstances(t *testing.T) {
	t.Parallel()

	self := os.Getpid()
	processes := []ps.Process{
		fakeProcess{pid: self, name: "wifi-sentinel"},
		fakeProcess{pid: os.Getppid(), name: "wifi-sentinel"},
		fakeProcess{pid: 424242, name: "wifi-sentinel"},
		fakeProcess{pid: 424243, name: "sshd"},
	}

	require.Equal(t, []int{424242}, otherInstances(processes, "wifi-sentinel", self))
	require.Empty(t, otherInstances(processes, "hostapd", self))
}
