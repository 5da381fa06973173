package reset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livos-io/livos/daemon/internal/opstatus"
)

type fakeAuth struct {
	password string
}

func (f *fakeAuth) ValidatePassword(password string) error {
	if password != f.password {
		return errors.New("invalid password")
	}
	return nil
}

func TestAuthorize(t *testing.T) {
	c := NewCoordinator(opstatus.NewTracker(), &fakeAuth{password: "moonbeam"}, t.TempDir())

	assert.NoError(t, c.Authorize("moonbeam"))
	assert.Error(t, c.Authorize("wrong-password"))
}

func TestReset_WipesDataDir(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "app-data", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "settings.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "app-data", "nested", "file"), []byte("x"), 0o644))

	c := NewCoordinator(opstatus.NewTracker(), &fakeAuth{password: "moonbeam"}, dataDir)
	require.NoError(t, c.Reset(context.Background()))

	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "data dir must be empty after reset")

	progress := c.Status()
	assert.False(t, progress.Running)
	assert.Equal(t, 100, progress.Progress)
	assert.Empty(t, progress.Error)
}

func TestReset_FailureKeepsError(t *testing.T) {
	c := NewCoordinator(opstatus.NewTracker(), &fakeAuth{password: "moonbeam"}, t.TempDir())
	c.wipe = func(_ context.Context, _ *Coordinator) error {
		return errors.New("device busy")
	}

	require.Error(t, c.Reset(context.Background()))
	assert.Equal(t, opstatus.Progress{Error: "Factory reset failed"}, c.Status())
}
