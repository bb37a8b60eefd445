// Package session holds the authoritative state of a scan session and the
// orchestrator that drives one scan lifecycle end to end. Session state is
// the single source of truth for all observers: the device set, the scan
// status, and the derived health score are all read from here.
package session

import (
	"sync"

	"github.com/mjelva/netwarden/internal/device"
)

// Phase labels for the session lifecycle. Progress events from the engine
// supply the phases in between.
const (
	PhaseInitializing = "initializing"
	PhaseComplete     = "complete"
	phaseErrorPrefix  = "error: "
)

// Status is the mutable scan status record. Progress is monotonically
// non-decreasing within one session; IsScanning is true strictly between
// session start and finalization.
type Status struct {
	IsScanning   bool   `json:"is_scanning"`
	Progress     int    `json:"progress"`
	CurrentPhase string `json:"current_phase"`
}

// Observer is notified synchronously after every state mutation, with a
// snapshot of the new status. Observers must not mutate state.
type Observer func(Status)

// State is the authoritative record of scan progress and results. It is
// created once at process start and mutated per scan by the orchestrator
// and the progress handler only.
type State struct {
	mu        sync.RWMutex
	status    Status
	devices   []device.Device
	failed    bool
	observers []Observer
}

// NewState returns session state in its pre-scan zero form: not scanning,
// zero progress, empty phase, empty device set.
func NewState() *State {
	return &State{}
}

// Status returns a snapshot of the current scan status.
func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Devices returns a copy of the current device set in display order.
func (s *State) Devices() []device.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	devices := make([]device.Device, len(s.devices))
	copy(devices, s.devices)
	return devices
}

// HealthScore derives the aggregate health score from the current device
// set. It is recomputed on every read, never cached, so it can never be
// stale relative to the device set.
func (s *State) HealthScore() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return device.HealthScore(s.devices)
}

// OnChange registers an observer for state changes. Observers are invoked
// synchronously, in registration order, after each mutation commits.
func (s *State) OnChange(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// beginScan transitions into a new scan session: scanning, zero progress,
// initializing phase, device set cleared.
func (s *State) beginScan() {
	s.mu.Lock()
	s.status = Status{
		IsScanning:   true,
		Progress:     0,
		CurrentPhase: PhaseInitializing,
	}
	s.devices = nil
	s.failed = false
	s.mu.Unlock()
	s.notify()
}

// applyProgress applies one progress event. Only phase and progress move;
// IsScanning is untouched. Progress never goes backwards within a session,
// and events outside an active session are dropped.
func (s *State) applyProgress(phase string, percent int) {
	s.mu.Lock()
	if !s.status.IsScanning {
		s.mu.Unlock()
		return
	}
	if percent > 100 {
		percent = 100
	}
	if percent > s.status.Progress {
		s.status.Progress = percent
	}
	if phase != "" {
		s.status.CurrentPhase = phase
	}
	s.mu.Unlock()
	s.notify()
}

// setDevices replaces the device set wholesale with an already-normalized
// sequence.
func (s *State) setDevices(devices []device.Device) {
	s.mu.Lock()
	s.devices = devices
	s.mu.Unlock()
	s.notify()
}

// fail marks the session failed: the phase carries the failure detail and
// progress jumps to 100 so the scan reads as over, not stuck. The device
// set stays as cleared by beginScan.
func (s *State) fail(detail string) {
	s.mu.Lock()
	s.status.CurrentPhase = phaseErrorPrefix + detail
	s.status.Progress = 100
	s.failed = true
	s.mu.Unlock()
	s.notify()
}

// finalize ends the session. An error phase set by fail is preserved;
// otherwise the phase becomes complete and progress 100.
func (s *State) finalize() {
	s.mu.Lock()
	s.status.IsScanning = false
	if !s.failed {
		s.status.CurrentPhase = PhaseComplete
		s.status.Progress = 100
	}
	s.mu.Unlock()
	s.notify()
}

// notify invokes observers with a status snapshot, outside the state lock
// so observers can read back derived values.
func (s *State) notify() {
	s.mu.RLock()
	status := s.status
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.RUnlock()

	for _, fn := range observers {
		fn(status)
	}
}
