package video

import (
	"image"

	"github.com/valerio/go-keyfill/keyfill/display"
)

// Pane rectangles on the canvas. Both panes share the same size so a layer maps 1:1 onto either.
var (
	FillPane = image.Rect(display.FillPaneX, 0, display.FillPaneX+display.PaneWidth, display.PaneHeight)
	KeyPane  = image.Rect(display.KeyPaneX, 0, display.KeyPaneX+display.PaneWidth, display.PaneHeight)
)
