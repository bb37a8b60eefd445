package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mjelva/netwarden/internal/device"
)

func TestNewStateIsIdle(t *testing.T) {
	s := NewState()

	status := s.Status()
	assert.False(t, status.IsScanning)
	assert.Equal(t, 0, status.Progress)
	assert.Equal(t, "", status.CurrentPhase)
	assert.Empty(t, s.Devices())
	assert.Equal(t, 0, s.HealthScore())
}

func TestApplyProgressOutsideSessionIsDropped(t *testing.T) {
	s := NewState()

	s.applyProgress("scanning ports", 50)

	status := s.Status()
	assert.Equal(t, 0, status.Progress)
	assert.Equal(t, "", status.CurrentPhase)
}

func TestApplyProgressClampsAboveHundred(t *testing.T) {
	s := NewState()
	s.beginScan()

	s.applyProgress("overeager", 250)

	assert.Equal(t, 100, s.Status().Progress)
}

func TestBeginScanClearsDeviceSet(t *testing.T) {
	s := NewState()
	s.setDevices([]device.Device{{ID: "a", IP: "10.0.0.1"}})

	s.beginScan()

	assert.Empty(t, s.Devices())
	assert.Equal(t, PhaseInitializing, s.Status().CurrentPhase)
}

func TestDevicesReturnsCopy(t *testing.T) {
	s := NewState()
	s.setDevices([]device.Device{{ID: "a", IP: "10.0.0.1"}})

	got := s.Devices()
	got[0].ID = "tampered"

	assert.Equal(t, "a", s.Devices()[0].ID)
}

func TestHealthScoreTracksDeviceSet(t *testing.T) {
	s := NewState()
	assert.Equal(t, 0, s.HealthScore())

	s.setDevices([]device.Device{
		{SecurityLevel: device.SecuritySafe},
		{SecurityLevel: device.SecurityDanger},
	})
	assert.Equal(t, 60, s.HealthScore())

	s.setDevices([]device.Device{{SecurityLevel: device.SecuritySafe}})
	assert.Equal(t, 100, s.HealthScore())
}

func TestFinalizePreservesErrorPhase(t *testing.T) {
	s := NewState()
	s.beginScan()
	s.fail("engine unreachable")
	s.finalize()

	status := s.Status()
	assert.False(t, status.IsScanning)
	assert.Equal(t, 100, status.Progress)
	assert.Equal(t, "error: engine unreachable", status.CurrentPhase)
}
