package sensor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/oshokin/wifi-sentinel/internal/actuator"
	"github.com/oshokin/wifi-sentinel/internal/capture"
	"github.com/oshokin/wifi-sentinel/internal/classifier"
	"github.com/oshokin/wifi-sentinel/internal/logger"
)

// Stats summarises one sensor run.
type Stats struct {
	// Frames is the number of frames handed to the classifier.
	Frames uint64
	// Detections is the number of frames that matched a signature.
	Detections uint64
	// Dropped is the number of detections discarded by a full queue.
	Dropped uint64
	// Pulses is the number of alarm pulses, boot chime included.
	Pulses uint64
}

// pipeline connects classification to alerting, either directly or
// through a bounded dispatcher.
type pipeline struct {
	alerter    actuator.Alerter
	dispatcher *actuator.Dispatcher
	wg         sync.WaitGroup

	frames     atomic.Uint64
	detections atomic.Uint64
}

// newPipeline alerts synchronously when depth is zero and otherwise starts a
// dispatcher goroutine that lives until stop or ctx cancellation.
func newPipeline(ctx context.Context, alerter actuator.Alerter, depth int) (*pipeline, error) {
	p := &pipeline{alerter: alerter}

	if depth == 0 {
		logger.Info(ctx, "Alerting synchronously on the capture path")

		return p, nil
	}

	dispatcher, err := actuator.NewDispatcher(alerter, depth)
	if err != nil {
		return nil, err
	}

	p.dispatcher = dispatcher
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		dispatcher.Run(ctx)
	}()

	logger.InfoKV(ctx, "Alerting through bounded queue", "queue_depth", depth)

	return p, nil
}

// handler returns the per-frame callback for a capture source.
func (p *pipeline) handler(ctx context.Context) capture.Handler {
	return func(frame classifier.Frame) {
		p.frames.Add(1)

		d, ok := classifier.Classify(frame)
		if !ok {
			return
		}

		p.detections.Add(1)

		if p.dispatcher == nil {
			p.alerter.Alert(ctx, d)
			return
		}

		if !p.dispatcher.Submit(d) {
			logger.WarnKV(ctx, "Alarm queue full, detection dropped",
				"kind", d.Kind.String(),
				"mac", d.MAC.String(),
				"channel", d.Channel,
			)
		}
	}
}

// stop closes the dispatcher and waits until queued detections are alerted.
func (p *pipeline) stop() Stats {
	stats := Stats{
		Frames:     p.frames.Load(),
		Detections: p.detections.Load(),
	}

	if p.dispatcher != nil {
		p.dispatcher.Close()
		p.wg.Wait()
		stats.Dropped = p.dispatcher.Dropped()
	}

	return stats
}
