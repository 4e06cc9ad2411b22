package layer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-keyfill/keyfill/display"
	"github.com/valerio/go-keyfill/keyfill/handoff"
)

func solidFrame(b, g, r, a byte) []byte {
	f := make([]byte, display.FrameBytes)
	for i := 0; i < len(f); i += display.BytesPerPixel {
		f[i+display.BlueOffset] = b
		f[i+display.GreenOffset] = g
		f[i+display.RedOffset] = r
		f[i+display.AlphaOffset] = a
	}
	return f
}

func TestLockMaterializesDenseLayers(t *testing.T) {
	s := NewStore(4, handoff.PingPong)
	assert.Equal(t, 0, s.Len())

	buf, err := s.Lock(2)
	require.NoError(t, err)
	assert.Equal(t, display.PaneWidth, buf.Width)
	assert.Equal(t, display.FramePitch, buf.Pitch)
	require.NoError(t, s.Publish(2))

	assert.Equal(t, 3, s.Len())
	views := s.Snapshot()
	require.Len(t, views, 3)
	for i, v := range views {
		assert.Equal(t, i, v.Index)
		assert.Equal(t, i == 2, v.Visible, "layer %d", i)
	}
}

func TestLockOutOfRange(t *testing.T) {
	s := NewStore(2, handoff.PingPong)

	_, err := s.Lock(2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = s.Lock(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	assert.ErrorIs(t, s.Deliver(5, solidFrame(0, 0, 0, 0), display.FramePitch), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.Publish(0), ErrIndexOutOfRange)
	assert.Equal(t, 0, s.Len())
}

func TestShowHideUnknownLayerIsNoop(t *testing.T) {
	s := NewStore(4, handoff.PingPong)
	s.Show(3)
	s.Hide(1)
	s.Hide(-4)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Exists(3))
}

func TestHideKeepsContents(t *testing.T) {
	s := NewStore(4, handoff.PingPong)
	require.NoError(t, s.Deliver(0, solidFrame(1, 2, 3, 255), display.FramePitch))
	require.Equal(t, 1, s.Drain())

	s.Hide(0)
	v := s.Snapshot()[0]
	assert.False(t, v.Visible)
	assert.Equal(t, []byte{1, 2, 3, 255}, v.Pixels[:4])

	s.Show(0)
	assert.True(t, s.Snapshot()[0].Visible)
}

func TestHiddenLayerStaysHiddenWhileProducing(t *testing.T) {
	s := NewStore(4, handoff.PingPong)
	assert.False(t, s.Exists(0))

	require.NoError(t, s.Deliver(0, solidFrame(1, 2, 3, 255), display.FramePitch))
	require.Equal(t, 1, s.Drain())
	require.True(t, s.Snapshot()[0].Visible, "first write shows the layer")

	s.Hide(0)
	require.NoError(t, s.Deliver(0, solidFrame(4, 5, 6, 255), display.FramePitch))
	require.Equal(t, 1, s.Drain())
	v := s.Snapshot()[0]
	assert.False(t, v.Visible, "later writes keep the layer hidden")
	assert.Equal(t, []byte{4, 5, 6, 255}, v.Pixels[:4])

	buf, err := s.Lock(0)
	require.NoError(t, err)
	require.NotNil(t, buf)
	require.NoError(t, s.Publish(0))
	assert.False(t, s.Snapshot()[0].Visible)

	s.Show(0)
	assert.True(t, s.Snapshot()[0].Visible)
}

func TestDrain(t *testing.T) {
	s := NewStore(4, handoff.PingPong)
	require.NoError(t, s.Deliver(1, solidFrame(10, 20, 30, 128), display.FramePitch))

	assert.Equal(t, uint64(0), s.Snapshot()[1].Generation)
	assert.Equal(t, 1, s.Drain())
	assert.Equal(t, 0, s.Drain(), "nothing new to drain")

	v := s.Snapshot()[1]
	assert.Equal(t, uint64(1), v.Generation)
	assert.Equal(t, []byte{10, 20, 30, 128}, v.Pixels[len(v.Pixels)-4:])

	st := s.Status()
	require.Len(t, st, 2)
	assert.Equal(t, Status{Index: 1, Visible: true, Published: 1, Consumed: 1}, st[1])
}

func TestSnapshotDoesNotWaitOnStuckProducer(t *testing.T) {
	s := NewStore(4, handoff.PingPong)

	// layer 0 is held for writing and never published
	_, err := s.Lock(0)
	require.NoError(t, err)

	// layer 1 has a frame in flight and its next writer is blocked
	require.NoError(t, s.Deliver(1, solidFrame(0, 0, 0, 255), display.FramePitch))
	blocked := make(chan error, 1)
	go func() { blocked <- s.Deliver(1, solidFrame(0, 0, 0, 255), display.FramePitch) }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Snapshot()
		s.Hide(0)
		s.Show(0)
		_ = s.Status()
		assert.Equal(t, 1, s.Drain())
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("store operations waited on a producer")
	}

	s.Close()
	select {
	case err := <-blocked:
		// either delivered after the drain freed the slot, or woken by Close
		if err != nil {
			assert.ErrorIs(t, err, handoff.ErrClosed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not release the blocked producer")
	}
}

func TestCloseAppliesToLaterLayers(t *testing.T) {
	s := NewStore(4, handoff.PingPong)
	s.Close()
	_, err := s.Lock(1)
	assert.ErrorIs(t, err, handoff.ErrClosed)
}

func TestDefaultCapacity(t *testing.T) {
	assert.Equal(t, display.DefaultMaxLayers, NewStore(0, handoff.PingPong).Cap())
}
