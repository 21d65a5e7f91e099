package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oshokin/wifi-sentinel/internal/actuator"
	"github.com/oshokin/wifi-sentinel/internal/api/grpc/healthcheck"
	"github.com/oshokin/wifi-sentinel/internal/capture"
	"github.com/oshokin/wifi-sentinel/internal/config"
	"github.com/oshokin/wifi-sentinel/internal/logger"
	"github.com/oshokin/wifi-sentinel/internal/output/gpioline"
	"github.com/oshokin/wifi-sentinel/internal/output/simulated"
	"github.com/oshokin/wifi-sentinel/internal/version"
)

// Options holds command line overrides for the settings file.
// Zero values leave the corresponding setting untouched.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// Interface overrides the capture interface.
	Interface string
	// ReplayFile overrides the replay capture file.
	ReplayFile string
	// AlarmPin overrides the GPIO line name.
	AlarmPin string
	// DryRun forces the simulated output.
	DryRun bool
	// QueueDepth overrides the queue depth when not nil.
	QueueDepth *int
	// LogLevel overrides the log level.
	LogLevel string
	// OpenLive opens live capture. Without it only replay files can be used.
	OpenLive LiveOpener
}

// LiveOpener opens capture on a monitor-mode interface.
type LiveOpener func(iface string, opts ...capture.Option) (*capture.Source, error)

// errLiveCaptureUnavailable is returned when live capture is configured but no opener is set.
var errLiveCaptureUnavailable = errors.New("live capture is not available in this build")

// output is an alarm output that can be released on shutdown.
type output interface {
	actuator.Output
	Close() error
}

// frameSource delivers captured frames until exhausted or canceled.
type frameSource interface {
	Run(ctx context.Context, handler capture.Handler) error
	Close() error
}

// runner holds the settings and the device openers for one sensor run.
type runner struct {
	cfg             *config.Config
	openOutput      func(ctx context.Context, cfg *config.Config) (output, error)
	openSource      func(cfg *config.Config) (frameSource, error)
	actuatorOptions []actuator.Option
}

// Run loads settings, claims the alarm output and classifies frames until
// ctx is canceled or the replay file is exhausted.
func Run(ctx context.Context, opts *Options) (Stats, error) {
	if opts == nil {
		opts = new(Options)
	}

	ctx = logger.WithName(ctx, "wifi-sentinel")

	cfg, err := loadSettings(opts)
	if err != nil {
		return Stats{}, err
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	logger.InfoKV(ctx, "Starting sensor", "version", version.Full())

	if err = ensureSingleInstance(); err != nil {
		return Stats{}, err
	}

	r := &runner{
		cfg:        cfg,
		openOutput: openOutput,
		openSource: sourceOpener(opts.OpenLive),
	}

	return r.run(ctx)
}

// loadSettings reads the settings file and applies command line overrides.
func loadSettings(opts *Options) (*config.Config, error) {
	if opts == nil {
		opts = new(Options)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.Interface != "" {
		cfg.Interface = opts.Interface
	}

	if opts.ReplayFile != "" {
		cfg.ReplayFile = opts.ReplayFile
	}

	if opts.AlarmPin != "" {
		cfg.AlarmPin = opts.AlarmPin
	}

	if opts.DryRun {
		cfg.DryRun = true
	}

	if opts.QueueDepth != nil {
		cfg.QueueDepth = *opts.QueueDepth
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	return cfg, nil
}

// run drives the whole sensor lifecycle and returns the run statistics.
//
//nolint:funlen // Linear start-up sequence reads best in one place.
func (r *runner) run(ctx context.Context) (Stats, error) {
	out, err := r.openOutput(ctx, r.cfg)
	if err != nil {
		return Stats{}, fmt.Errorf("open alarm output: %w", err)
	}

	alarm, err := actuator.New(out, r.actuatorOptions...)
	if err != nil {
		_ = out.Close()

		return Stats{}, err
	}

	// Release waits for a running pulse before the line is closed.
	defer func() {
		if releaseErr := errors.Join(alarm.Release(), out.Close()); releaseErr != nil {
			logger.ErrorKV(ctx, "Failed to release alarm output", "error", releaseErr)
		}
	}()

	// A silent boot chime means the buzzer is miswired, nothing else is worth doing.
	if err = alarm.BootChime(ctx); err != nil {
		return Stats{}, err
	}

	health, stopHealth := r.startHealth(ctx)
	defer stopHealth()

	src, err := r.openSource(r.cfg)
	if err != nil {
		return Stats{}, fmt.Errorf("open capture: %w", err)
	}

	defer func() {
		if closeErr := src.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Failed to close capture", "error", closeErr)
		}
	}()

	// Detections and queue warnings name the capture they came from.
	captureCtx := logger.WithKV(ctx, "source", sourceName(r.cfg))

	p, err := newPipeline(captureCtx, alarm, r.cfg.QueueDepth)
	if err != nil {
		return Stats{}, err
	}

	if health != nil {
		health.SetServing(true)
	}

	logger.InfoKV(ctx, "Sensor started",
		"interface", r.cfg.Interface,
		"replay_file", r.cfg.ReplayFile,
		"alarm_pin", r.cfg.AlarmPin,
		"dry_run", r.cfg.DryRun,
	)

	runErr := src.Run(ctx, p.handler(captureCtx))

	if health != nil {
		health.SetServing(false)
	}

	stats := p.stop()
	stats.Pulses = alarm.Pulses()

	logger.InfoKV(ctx, "Sensor stopped",
		"frames", stats.Frames,
		"detections", stats.Detections,
		"dropped", stats.Dropped,
		"pulses", stats.Pulses,
		"failed_pulses", alarm.Failures(),
	)

	if runErr != nil {
		return stats, fmt.Errorf("capture: %w", runErr)
	}

	return stats, nil
}

// startHealth serves the health endpoint when configured.
// The returned function stops it and waits for the listener to close.
func (r *runner) startHealth(ctx context.Context) (*healthcheck.Server, func()) {
	if r.cfg.HealthAddress == "" {
		return nil, func() {}
	}

	var (
		healthCtx, cancel = context.WithCancel(ctx)
		srv               = healthcheck.NewServer()
		wg                sync.WaitGroup
	)

	wg.Add(1)

	go func() {
		defer wg.Done()

		if err := srv.ListenAndServe(healthCtx, r.cfg.HealthAddress); err != nil {
			logger.ErrorKV(ctx, "Health endpoint failed", "error", err)
		}
	}()

	return srv, func() {
		cancel()
		wg.Wait()
	}
}

// openOutput opens the GPIO line, or a simulated output on dry runs.
func openOutput(ctx context.Context, cfg *config.Config) (output, error) {
	if cfg.DryRun {
		logger.Info(ctx, "Dry run, using simulated alarm output")

		return simulated.New(ctx), nil
	}

	return gpioline.Open(cfg.AlarmPin)
}

// sourceName identifies the capture in log lines.
func sourceName(cfg *config.Config) string {
	if cfg.ReplayFile != "" {
		return cfg.ReplayFile
	}

	return cfg.Interface
}

// sourceOpener opens the replay file when set, otherwise the live interface.
func sourceOpener(openLive LiveOpener) func(cfg *config.Config) (frameSource, error) {
	return func(cfg *config.Config) (frameSource, error) {
		opts := []capture.Option{capture.WithFallbackChannel(cfg.FallbackChannel)}

		if cfg.ReplayFile != "" {
			return capture.OpenFile(cfg.ReplayFile, opts...)
		}

		if openLive == nil {
			return nil, errLiveCaptureUnavailable
		}

		return openLive(cfg.Interface, opts...)
	}
}
