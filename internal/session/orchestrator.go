package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mjelva/netwarden/internal/device"
	"github.com/mjelva/netwarden/internal/engine"
	apperrors "github.com/mjelva/netwarden/internal/errors"
	"github.com/mjelva/netwarden/internal/events"
	"github.com/mjelva/netwarden/internal/logging"
	"github.com/mjelva/netwarden/internal/metrics"
)

// Recorder persists the outcome of a successful scan. Persistence failures
// never fail the scan itself.
type Recorder interface {
	SaveScan(ctx context.Context, devices []device.Device) (string, error)
}

// Orchestrator drives one scan lifecycle end to end: it initializes session
// state, subscribes to progress events, invokes the external engine,
// normalizes the result, and finalizes state under success or failure.
// A single session runs at a time; concurrent StartScan calls are rejected.
type Orchestrator struct {
	state    *State
	engine   engine.Engine
	bus      *events.Bus
	logger   *logging.Logger
	metrics  *metrics.Metrics
	recorder Recorder
	scanning atomic.Bool
}

// NewOrchestrator wires an orchestrator to its engine, session state, and
// progress event bus.
func NewOrchestrator(eng engine.Engine, state *State, bus *events.Bus, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		state:  state,
		engine: eng,
		bus:    bus,
		logger: logger.WithComponent("orchestrator"),
	}
}

// SetMetrics attaches a metrics instance. Optional.
func (o *Orchestrator) SetMetrics(m *metrics.Metrics) {
	o.metrics = m
}

// SetRecorder attaches a scan history recorder. Optional.
func (o *Orchestrator) SetRecorder(r Recorder) {
	o.recorder = r
}

// State returns the session state the orchestrator mutates.
func (o *Orchestrator) State() *State {
	return o.state
}

// IsScanning reports whether a scan session is currently active.
func (o *Orchestrator) IsScanning() bool {
	return o.scanning.Load()
}

// StartScan runs one scan session to completion and returns its terminal
// error, if any. A call made while another session is active is rejected
// with CodeScanInProgress and leaves all state untouched. Engine failures,
// unavailability, and cancellation all land on the same error path: device
// set stays empty, the phase carries the failure detail, progress reads
// 100, and the progress subscription is always torn down.
func (o *Orchestrator) StartScan(ctx context.Context) error {
	return o.StartScanWithIntensity(ctx, engine.IntensityActive)
}

// StartScanWithIntensity is StartScan with an explicit scan intensity.
func (o *Orchestrator) StartScanWithIntensity(ctx context.Context, intensity engine.Intensity) error {
	if !o.scanning.CompareAndSwap(false, true) {
		return apperrors.ErrScanInProgress()
	}
	if intensity == "" {
		intensity = engine.IntensityActive
	}
	return o.run(ctx, intensity)
}

// StartScanAsync claims the session slot and runs the scan in the
// background. The rejection semantics match StartScan; the session
// outcome lands in the session state instead of a return value.
func (o *Orchestrator) StartScanAsync(ctx context.Context, intensity engine.Intensity) error {
	if !o.scanning.CompareAndSwap(false, true) {
		return apperrors.ErrScanInProgress()
	}
	if intensity == "" {
		intensity = engine.IntensityActive
	}
	go func() { _ = o.run(ctx, intensity) }()
	return nil
}

// run executes one claimed session. The caller must have won the
// scanning CAS; run releases it.
func (o *Orchestrator) run(ctx context.Context, intensity engine.Intensity) error {
	defer o.scanning.Store(false)

	scanID := uuid.NewString()
	log := o.logger.WithScanID(scanID)
	started := time.Now()

	o.state.beginScan()
	sub := o.bus.Subscribe(func(p events.Progress) {
		o.state.applyProgress(p.Phase, p.Percent)
		o.metrics.IncProgressEvents()
	})
	// Backstop against any early return path; Unsubscribe is idempotent.
	defer sub.Unsubscribe()

	log.Info("Scan session started")

	devices, err := o.engine.Scan(ctx, engine.Request{Intensity: intensity})
	if err != nil {
		o.state.fail(err.Error())
		sub.Unsubscribe()
		o.state.finalize()
		o.metrics.ObserveScan("error", time.Since(started))
		log.Error("Scan session failed", "error", err, "duration", time.Since(started))
		return apperrors.WrapScanError(apperrors.GetCode(err), "Scan session failed", err)
	}

	normalized := device.SortByIP(devices)
	o.state.setDevices(normalized)

	// Teardown order: close the subscription first so nothing can write
	// to the status after finalization, then flip IsScanning.
	sub.Unsubscribe()
	o.state.finalize()

	score := o.state.HealthScore()
	o.metrics.ObserveScan("success", time.Since(started))
	o.metrics.SetDeviceSet(len(normalized), score)
	log.Info("Scan session complete",
		"devices", len(normalized),
		"health_score", score,
		"duration", time.Since(started))

	if o.recorder != nil {
		if recordID, saveErr := o.recorder.SaveScan(ctx, normalized); saveErr != nil {
			log.Error("Failed to record scan history", "error", saveErr)
		} else {
			log.Debug("Scan session recorded", "record_id", recordID)
		}
	}
	return nil
}
