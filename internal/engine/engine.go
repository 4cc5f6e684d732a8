// Package engine drives the poll cycle: fetch one reading, persist it, feed
// the anomaly detector, classify alerts, and publish the cycle's status.
package engine

import (
	"context"
	"time"

	"codeberg.org/mutker/printwatch/internal/alert"
	"codeberg.org/mutker/printwatch/internal/anomaly"
	"codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/printer"
	"codeberg.org/mutker/printwatch/internal/status"
)

// Source answers one status query per cycle.
type Source interface {
	Fetch(ctx context.Context) (printer.Reading, error)
}

// Store receives one row per successful cycle.
type Store interface {
	Append(ctx context.Context, reading printer.Reading) error
}

// Publisher makes the cycle's result externally observable.
type Publisher interface {
	Publish(snapshot status.Snapshot) error
	RecordAlerts(alerts []alert.Alert) error
}

type Config struct {
	Interval time.Duration
}

func (c Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New().WithData(errors.ErrInvalidInterval, c.Interval.String())
	}
	return nil
}

// Engine owns the detector and is the only writer to the store and the
// publisher. One cycle runs at a time; the next fetch does not start until
// the previous publish finished or failed.
type Engine struct {
	cfg       Config
	source    Source
	store     Store
	detector  *anomaly.Detector
	publisher Publisher
	log       logger.Logger
}

func New(
	cfg Config,
	source Source,
	store Store,
	detector *anomaly.Detector,
	publisher Publisher,
	log logger.Logger,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		cfg:       cfg,
		source:    source,
		store:     store,
		detector:  detector,
		publisher: publisher,
		log:       log,
	}, nil
}

// Run polls on the configured interval until ctx is cancelled. Cancellation
// drains the in-flight cycle before returning; no cycle is interrupted
// between its store write and its publish.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	e.log.Info().
		Str("interval", e.cfg.Interval.String()).
		Msg("Polling telemetry source")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.runCycle(ctx)
		}
	}
}

// runCycle executes one fetch→store→detect→classify→publish pass. Every
// failure inside the cycle is recoverable: it is logged and the loop moves
// on to the next interval.
func (e *Engine) runCycle(ctx context.Context) {
	errFactory := errors.New()

	reading, err := e.source.Fetch(ctx)
	if err != nil {
		// Skip the whole cycle: neither the store nor the detector sees
		// anything from a failed fetch.
		e.log.ErrorWithCode(errFactory.Wrap(errors.ErrFetchReading, err)).Send()
		return
	}

	if err := e.store.Append(ctx, reading); err != nil {
		// The row is lost; detection and alerting still run on the
		// in-memory reading.
		e.log.ErrorWithCode(errFactory.Wrap(errors.ErrStoreReading, err)).Send()
	}

	verdict, err := e.detector.Observe(reading.NozzleTemp)
	if err != nil {
		// Sample excluded from the window; the persisted row stands.
		e.log.Warn().
			Err(err).
			Float64("nozzle_temp", reading.NozzleTemp).
			Msg("Reading excluded from anomaly window")
	}

	alerts, health := alert.Evaluate(reading, verdict)

	if err := e.publisher.RecordAlerts(alerts); err != nil {
		e.log.ErrorWithCode(errFactory.Wrap(errors.ErrRecordAlerts, err)).Send()
	}

	snapshot := status.Snapshot{
		CurrentData:  reading,
		ActiveAlerts: alert.Messages(alerts),
		LastUpdated:  time.Now(),
		SystemStatus: health,
	}
	if err := e.publisher.Publish(snapshot); err != nil {
		// Readers keep the last-known-good snapshot.
		e.log.ErrorWithCode(errFactory.Wrap(errors.ErrPublishStatus, err)).Send()
	}

	for _, a := range alerts {
		e.log.Warn().
			Str("kind", string(a.Kind)).
			Str("severity", string(a.Severity)).
			Msg(a.Message)
	}

	e.log.Info().
		Str("printer_status", string(reading.PrinterStatus)).
		Float64("nozzle_temp", reading.NozzleTemp).
		Float64("bed_temp", reading.BedTemp).
		Str("verdict", verdict.String()).
		Str("system_status", string(health)).
		Msg("")
}
