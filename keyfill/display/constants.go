package display

// Layer and frame geometry. Every layer and every producer frame is exactly one pane in size.
const (
	// PaneWidth is the width of a single pane (and of every layer) in pixels
	PaneWidth = 1920
	// PaneHeight is the height of a single pane (and of every layer) in pixels
	PaneHeight = 1080
	// CanvasWidth is the width of the presented output: Fill pane followed by Key pane
	CanvasWidth = 2 * PaneWidth // 3840
	// CanvasHeight is the height of the presented output
	CanvasHeight = PaneHeight
	// FillPaneX is the left edge of the Fill pane on the canvas
	FillPaneX = 0
	// KeyPaneX is the left edge of the Key pane on the canvas
	KeyPaneX = PaneWidth
)

// BGRA8888 pixel format constants
const (
	// BytesPerPixel is the number of bytes per pixel in BGRA8888
	BytesPerPixel = 4
	// BlueOffset is the byte offset of the blue channel within a pixel
	BlueOffset = 0
	// GreenOffset is the byte offset of the green channel within a pixel
	GreenOffset = 1
	// RedOffset is the byte offset of the red channel within a pixel
	RedOffset = 2
	// AlphaOffset is the byte offset of the alpha channel within a pixel
	AlphaOffset = 3
	// FramePitch is the row stride of a tightly packed layer frame
	FramePitch = PaneWidth * BytesPerPixel // 7680
	// FrameBytes is the size of a tightly packed layer frame
	FrameBytes = FramePitch * PaneHeight // 8294400
	// CanvasPitch is the row stride of the canvas
	CanvasPitch = CanvasWidth * BytesPerPixel
)

// Color mapping constants
const (
	// FullAlpha is the alpha value for fully opaque pixels
	FullAlpha = 255
)

// Output defaults
const (
	// DefaultFPS matches the frame rate the upstream page renderer is configured with
	DefaultFPS = 25
	// DefaultMaxLayers is the default layer arena capacity
	DefaultMaxLayers = 16
	// DefaultListenAddr is where the control plane listens unless configured otherwise
	DefaultListenAddr = ":9090"
	// DefaultMaxUploadBytes bounds frame and image uploads on the control plane
	DefaultMaxUploadBytes = 32 << 20
)
