package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "settings.json"))
}

func TestStore_ChannelDefaultsToStable(t *testing.T) {
	store := newTestStore(t)
	assert.Equal(t, ChannelStable, store.Channel())
}

func TestStore_SetChannel(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetChannel(context.Background(), ChannelBeta))
	assert.Equal(t, ChannelBeta, store.Channel())

	require.NoError(t, store.SetChannel(context.Background(), ChannelStable))
	assert.Equal(t, ChannelStable, store.Channel())
}

func TestStore_SetChannelRejectsUnknown(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.SetChannel(context.Background(), "nightly"))
	assert.Equal(t, ChannelStable, store.Channel())
}

func TestStore_ValidatePassword(t *testing.T) {
	store := newTestStore(t)

	// no password configured yet
	assert.Error(t, store.ValidatePassword("anything"))

	require.NoError(t, store.SetPassword(context.Background(), "moonbeam"))
	assert.NoError(t, store.ValidatePassword("moonbeam"))
	assert.Error(t, store.ValidatePassword("wrong-password"))
}

func TestStore_PasswordAndChannelCoexist(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SetPassword(context.Background(), "moonbeam"))
	require.NoError(t, store.SetChannel(context.Background(), ChannelBeta))

	assert.NoError(t, store.ValidatePassword("moonbeam"))
	assert.Equal(t, ChannelBeta, store.Channel())
}
