package handoff

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-keyfill/keyfill/video"
)

const (
	testWidth  = 4
	testHeight = 3
	testPitch  = testWidth * 4
	blockWait  = 50 * time.Millisecond
	doneWait   = 2 * time.Second
)

func frameOf(v byte) []byte {
	f := make([]byte, testPitch*testHeight)
	for i := range f {
		f[i] = v
	}
	return f
}

func take(t *testing.T, h *Handoff) []byte {
	t.Helper()
	var got []byte
	require.True(t, h.TakeReady(func(pix []byte, pitch int) {
		got = append([]byte(nil), pix[:pitch*testHeight]...)
	}))
	return got
}

func TestPublishWithoutAcquire(t *testing.T) {
	h := New(PingPong, testWidth, testHeight)
	assert.ErrorIs(t, h.Publish(), ErrNotAcquired)

	_, err := h.AcquireForWrite()
	require.NoError(t, err)
	require.NoError(t, h.Publish())
	assert.ErrorIs(t, h.Publish(), ErrNotAcquired)
}

func TestTakeReadyNothingPublished(t *testing.T) {
	h := New(PingPong, testWidth, testHeight)
	called := false
	assert.False(t, h.TakeReady(func([]byte, int) { called = true }))
	assert.False(t, called)
}

func TestNoTearing(t *testing.T) {
	h := New(PingPong, testWidth, testHeight)

	buf, err := h.AcquireForWrite()
	require.NoError(t, err)
	copy(buf.Pixels, frameOf(7)[:len(buf.Pixels)/2])

	// a write in progress is invisible to the consumer
	assert.False(t, h.TakeReady(func([]byte, int) { t.Fatal("copyOut during write") }))

	copy(buf.Pixels, frameOf(7))
	require.NoError(t, h.Publish())
	assert.Equal(t, frameOf(7), take(t, h))
	assert.False(t, h.TakeReady(func([]byte, int) {}), "frames are consumed once")
}

func TestBackpressure(t *testing.T) {
	h := New(PingPong, testWidth, testHeight)
	require.NoError(t, h.Deliver(frameOf(1), testPitch))

	acquired := make(chan struct{})
	go func() {
		defer close(acquired)
		buf, err := h.AcquireForWrite()
		if err == nil {
			copy(buf.Pixels, frameOf(2))
			_ = h.Publish()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire returned before the first frame was consumed")
	case <-time.After(blockWait):
	}

	assert.Equal(t, frameOf(1), take(t, h))

	select {
	case <-acquired:
	case <-time.After(doneWait):
		t.Fatal("acquire did not resume after consume")
	}
	assert.Equal(t, frameOf(2), take(t, h))
}

func TestRendezvousPublishBlocks(t *testing.T) {
	h := New(Rendezvous, testWidth, testHeight)

	buf, err := h.AcquireForWrite()
	require.NoError(t, err)
	copy(buf.Pixels, frameOf(5))

	published := make(chan error, 1)
	go func() { published <- h.Publish() }()

	select {
	case <-published:
		t.Fatal("rendezvous publish returned before consume")
	case <-time.After(blockWait):
	}

	assert.Equal(t, frameOf(5), take(t, h))
	select {
	case err := <-published:
		assert.NoError(t, err)
	case <-time.After(doneWait):
		t.Fatal("publish did not return after consume")
	}
}

func TestRendezvousDeliverReadsCallerMemory(t *testing.T) {
	h := New(Rendezvous, testWidth, testHeight)
	frame := frameOf(9)

	delivered := make(chan error, 1)
	go func() { delivered <- h.Deliver(frame, testPitch) }()

	var got []byte
	require.Eventually(t, func() bool {
		return h.TakeReady(func(pix []byte, pitch int) {
			assert.Same(t, &frame[0], &pix[0])
			got = append([]byte(nil), pix...)
		})
	}, doneWait, time.Millisecond)

	require.NoError(t, <-delivered)
	assert.Equal(t, frameOf(9), got)
	assert.Equal(t, Stats{Published: 1, Consumed: 1}, h.Stats())
}

func TestDeliverPaddedPitch(t *testing.T) {
	h := New(PingPong, testWidth, testHeight)
	const pitch = testPitch + 8
	frame := make([]byte, pitch*testHeight)
	for y := 0; y < testHeight; y++ {
		for x := 0; x < testPitch; x++ {
			frame[y*pitch+x] = byte(y + 1)
		}
		for x := testPitch; x < pitch; x++ {
			frame[y*pitch+x] = 0xEE
		}
	}

	require.NoError(t, h.Deliver(frame, pitch))
	got := take(t, h)
	for y := 0; y < testHeight; y++ {
		for x := 0; x < testPitch; x++ {
			require.Equal(t, byte(y+1), got[y*testPitch+x])
		}
	}
}

func TestDeliverRejectsShortFrame(t *testing.T) {
	for _, policy := range []Policy{PingPong, Rendezvous} {
		t.Run(policy.String(), func(t *testing.T) {
			h := New(policy, testWidth, testHeight)
			assert.ErrorIs(t, h.Deliver(make([]byte, 5), testPitch), video.ErrFrameSize)
			assert.ErrorIs(t, h.Deliver(frameOf(0), testPitch-1), video.ErrFrameSize)

			// a rejected frame leaves the handoff free
			_, err := h.AcquireForWrite()
			assert.NoError(t, err)
		})
	}
}

func TestOrdering(t *testing.T) {
	h := New(PingPong, testWidth, testHeight)
	const frames = 50

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= frames; i++ {
			if err := h.Deliver(frameOf(byte(i)), testPitch); err != nil {
				return
			}
		}
	}()

	var seen []byte
	deadline := time.After(doneWait)
	for len(seen) < frames {
		select {
		case <-deadline:
			t.Fatalf("only %d frames consumed", len(seen))
		default:
		}
		h.TakeReady(func(pix []byte, _ int) { seen = append(seen, pix[0]) })
	}
	wg.Wait()

	for i, v := range seen {
		require.Equal(t, byte(i+1), v)
	}
}

func TestCloseUnblocks(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		block  func(h *Handoff) error
	}{
		{
			name:   "pending acquire",
			policy: PingPong,
			block: func(h *Handoff) error {
				_, err := h.AcquireForWrite()
				return err
			},
		},
		{
			name:   "rendezvous deliver",
			policy: Rendezvous,
			block: func(h *Handoff) error {
				return h.Deliver(frameOf(3), testPitch)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(tt.policy, testWidth, testHeight)
			if tt.policy == PingPong {
				require.NoError(t, h.Deliver(frameOf(1), testPitch))
			}

			errs := make(chan error, 1)
			go func() { errs <- tt.block(h) }()
			time.Sleep(blockWait)
			h.Close()

			select {
			case err := <-errs:
				assert.ErrorIs(t, err, ErrClosed)
			case <-time.After(doneWait):
				t.Fatal("Close did not wake the producer")
			}

			_, err := h.AcquireForWrite()
			assert.ErrorIs(t, err, ErrClosed)
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("rendezvous")
	require.NoError(t, err)
	assert.Equal(t, Rendezvous, p)

	p, err = ParsePolicy("pingpong")
	require.NoError(t, err)
	assert.Equal(t, PingPong, p)

	_, err = ParsePolicy("queue")
	assert.Error(t, err)
}
