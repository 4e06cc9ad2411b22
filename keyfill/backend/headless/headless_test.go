package headless_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-keyfill/keyfill/backend"
	"github.com/valerio/go-keyfill/keyfill/backend/headless"
	"github.com/valerio/go-keyfill/keyfill/input/action"
	"github.com/valerio/go-keyfill/keyfill/input/event"
)

func TestHeadlessBackend(t *testing.T) {
	t.Run("quits after max frames", func(t *testing.T) {
		h := headless.New(3, headless.SnapshotConfig{})
		require.NoError(t, h.Init(backend.BackendConfig{Title: "Test", Workers: 1}))
		require.NotNil(t, h.Target())

		for i := 0; i < 3; i++ {
			events, err := h.Update()
			assert.NoError(t, err)

			if i < 2 {
				assert.Empty(t, events)
			} else {
				require.Len(t, events, 1)
				assert.Equal(t, action.Quit, events[0].Action)
				assert.Equal(t, event.Press, events[0].Type)
			}
		}

		assert.NoError(t, h.Cleanup())
	})

	t.Run("unbounded run", func(t *testing.T) {
		h := headless.New(0, headless.SnapshotConfig{})
		require.NoError(t, h.Init(backend.BackendConfig{Workers: 1}))
		for i := 0; i < 5; i++ {
			events, err := h.Update()
			require.NoError(t, err)
			assert.Empty(t, events)
		}
	})
}

func TestHeadlessSnapshots(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	cfg, err := headless.CreateSnapshotConfig(2, dir)
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)

	h := headless.New(3, cfg)
	require.NoError(t, h.Init(backend.BackendConfig{Workers: 1}))
	for i := 0; i < 3; i++ {
		require.NoError(t, h.Target().Present())
		_, err := h.Update()
		require.NoError(t, err)
	}

	// frame 2 on the interval, frame 3 as the final snapshot; two panes each
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestCreateSnapshotConfigDisabled(t *testing.T) {
	cfg, err := headless.CreateSnapshotConfig(0, "")
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.Directory)
}

func TestHeadlessImplementsBackend(t *testing.T) {
	var _ backend.Backend = (*headless.Backend)(nil)
}
