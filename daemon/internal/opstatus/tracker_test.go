package opstatus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func TestTracker_InitialState(t *testing.T) {
	tracker := NewTracker()
	assert.Equal(t, Progress{}, tracker.Get())
}

func TestTracker_BeginClearsPreviousError(t *testing.T) {
	tracker := NewTracker()
	tracker.SetError("previous attempt failed")

	tracker.Begin(5, "Updating...")

	progress := tracker.Get()
	assert.True(t, progress.Running)
	assert.Equal(t, 5, progress.Progress)
	assert.Equal(t, "Updating...", progress.Description)
	assert.Empty(t, progress.Error)
}

func TestTracker_ApplyShallowMerge(t *testing.T) {
	tracker := NewTracker()
	tracker.Begin(5, "Updating...")

	tracker.Apply(Patch{Progress: intPtr(40)})
	progress := tracker.Get()
	assert.Equal(t, 40, progress.Progress)
	assert.Equal(t, "Updating...", progress.Description)
	assert.True(t, progress.Running)

	tracker.Apply(Patch{Description: strPtr("Installing kernel"), Running: boolPtr(true)})
	progress = tracker.Get()
	assert.Equal(t, 40, progress.Progress)
	assert.Equal(t, "Installing kernel", progress.Description)
}

func TestTracker_FailAndResetKeepsSpecificError(t *testing.T) {
	tracker := NewTracker()
	tracker.Begin(5, "Updating...")
	tracker.Apply(Patch{Error: strPtr("disk full")})

	tracker.FailAndReset("Update failed")

	progress := tracker.Get()
	assert.Equal(t, Progress{Error: "disk full"}, progress)
}

func TestTracker_FailAndResetGenericError(t *testing.T) {
	tracker := NewTracker()
	tracker.Begin(50, "Updating...")

	tracker.FailAndReset("Update failed")

	progress := tracker.Get()
	assert.Equal(t, Progress{Error: "Update failed"}, progress)
}

func TestTracker_Complete(t *testing.T) {
	tracker := NewTracker()
	tracker.Begin(95, "Updating...")
	tracker.Complete(100, "Restarting...")

	progress := tracker.Get()
	assert.False(t, progress.Running)
	assert.Equal(t, 100, progress.Progress)
	assert.Equal(t, "Restarting...", progress.Description)
	assert.Empty(t, progress.Error)
}

func TestTracker_ProgressClamped(t *testing.T) {
	tracker := NewTracker()
	tracker.SetProgress(120)
	assert.Equal(t, 100, tracker.Get().Progress)
	tracker.SetProgress(-3)
	assert.Equal(t, 0, tracker.Get().Progress)
}
