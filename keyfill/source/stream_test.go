package source

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-keyfill/keyfill/display"
)

type recordingWriter struct {
	mu     sync.Mutex
	frames [][]byte
	layers []int
	err    error
}

func (w *recordingWriter) WriteLayer(index int, frame []byte, pitch int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if pitch != display.FramePitch {
		return errors.New("unexpected pitch")
	}
	w.frames = append(w.frames, append([]byte(nil), frame...))
	w.layers = append(w.layers, index)
	return nil
}

func frames(n int) []byte {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		buf.Write(bytes.Repeat([]byte{byte(i + 1)}, display.FrameBytes))
	}
	return buf.Bytes()
}

func TestStreamReaderDeliversEveryFrame(t *testing.T) {
	w := &recordingWriter{}
	n, err := NewStreamReader(bytes.NewReader(frames(3)), w, 2).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.Len(t, w.frames, 3)
	assert.Equal(t, []int{2, 2, 2}, w.layers)
	for i, f := range w.frames {
		assert.Equal(t, byte(i+1), f[0])
		assert.Equal(t, byte(i+1), f[len(f)-1])
	}
}

func TestStreamReaderEmptyStream(t *testing.T) {
	n, err := NewStreamReader(bytes.NewReader(nil), &recordingWriter{}, 0).Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStreamReaderTruncatedFrame(t *testing.T) {
	data := frames(2)
	data = data[:len(data)-100]
	w := &recordingWriter{}

	n, err := NewStreamReader(bytes.NewReader(data), w, 0).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read frame 2")
	assert.Equal(t, 1, n)
	assert.Len(t, w.frames, 1)
}

func TestStreamReaderWriterError(t *testing.T) {
	boom := errors.New("boom")
	n, err := NewStreamReader(bytes.NewReader(frames(2)), &recordingWriter{err: boom}, 1).Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, n)
}

func TestStreamReaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &recordingWriter{}

	n, err := NewStreamReader(bytes.NewReader(frames(2)), w, 0).Run(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, w.frames)
}
