package debug

import (
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-keyfill/keyfill/blend"
	"github.com/valerio/go-keyfill/keyfill/video"
)

type fakeFramer struct{ fb *video.FrameBuffer }

func (f fakeFramer) Frame() *video.FrameBuffer { return f.fb }

func TestSaveFramePNGToDir(t *testing.T) {
	dir := t.TempDir()
	fb := video.NewFrameBuffer(3, 2)
	fb.SetPixel(1, 1, blend.Color{R: 10, G: 20, B: 30, A: 255})

	path, err := SaveFramePNGToDir(fb, "frame", dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "frame_"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, fb.Bounds(), img.Bounds())
	r, g, b, a := img.At(1, 1).RGBA()
	assert.Equal(t, []uint32{10, 20, 30, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})
}

func TestSavePanesPNGToDir(t *testing.T) {
	dir := t.TempDir()
	canvas := video.NewCanvas()
	canvas.Fill(video.KeyPane, blend.OpaqueWhite)

	fillPath, keyPath, err := SavePanesPNGToDir(canvas, "out", dir)
	require.NoError(t, err)

	for path, want := range map[string]uint32{fillPath: 0, keyPath: 0xffff} {
		f, err := os.Open(path)
		require.NoError(t, err)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, video.FillPane.Size(), img.Bounds().Size())
		r, _, _, _ := img.At(5, 5).RGBA()
		assert.Equal(t, want, r, path)
	}
}

func TestTakeSnapshot(t *testing.T) {
	dir := t.TempDir()
	TakeSnapshot(fakeFramer{video.NewFrameBuffer(2, 2)}, dir)
	TakeSnapshot(struct{}{}, dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
