package terminal

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/valerio/go-keyfill/keyfill/backend"
	"github.com/valerio/go-keyfill/keyfill/backend/terminal/render"
	"github.com/valerio/go-keyfill/keyfill/input"
	"github.com/valerio/go-keyfill/keyfill/input/action"
	"github.com/valerio/go-keyfill/keyfill/input/event"
	keyfillrender "github.com/valerio/go-keyfill/keyfill/render"
	"github.com/valerio/go-keyfill/keyfill/video"
)

const (
	minTermWidth  = 40
	minTermHeight = 12
	logLines      = 8
	logCapacity   = 200
)

// Backend composites in software and monitors both panes in the terminal, for operating without a
// display attached to the output.
type Backend struct {
	screen     tcell.Screen
	target     *keyfillrender.Software
	running    bool
	logBuffer  *render.LogBuffer
	logLevel   *slog.LevelVar
	config     backend.BackendConfig
	eventQueue []backend.InputEvent
	signals    chan os.Signal
	prevLog    *slog.Logger
}

// New creates a new terminal backend on the process terminal
func New() *Backend {
	return &Backend{}
}

// NewWithScreen creates a terminal backend drawing on screen, e.g. a tcell simulation screen.
func NewWithScreen(screen tcell.Screen) *Backend {
	return &Backend{screen: screen}
}

// Init initializes the terminal backend
func (t *Backend) Init(config backend.BackendConfig) error {
	t.config = config
	t.target = keyfillrender.NewSoftware(config.Workers)

	if t.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to initialize terminal: %w", err)
		}
		t.screen = screen
	}
	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	t.running = true

	// Logs go to the log pane while the screen is up
	t.logBuffer = render.NewLogBuffer(logCapacity)
	t.logLevel = new(slog.LevelVar)
	t.prevLog = slog.Default()
	slog.SetDefault(slog.New(render.NewLogBufferHandler(t.logBuffer, slog.LevelDebug)))

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	t.signals = make(chan os.Signal, 1)
	signal.Notify(t.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	slog.Info("Terminal backend initialized")
	return nil
}

func (t *Backend) Target() keyfillrender.Target {
	return t.target
}

// Software exposes the software target, e.g. for snapshots.
func (t *Backend) Software() *keyfillrender.Software {
	return t.target
}

// LogBuffer returns the entries shown in the log pane.
func (t *Backend) LogBuffer() *render.LogBuffer {
	return t.logBuffer
}

// Update polls the terminal for keys and redraws the monitor
func (t *Backend) Update() ([]backend.InputEvent, error) {
	select {
	case <-t.signals:
		t.quit()
	default:
	}

	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			t.processKeyEvent(ev)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}

	events := t.eventQueue
	t.eventQueue = nil
	for _, evt := range events {
		slog.Debug("UI event", "action", evt.Action, "type", evt.Type)
	}

	if !t.running {
		return events, nil
	}

	t.render()
	t.screen.Show()
	return events, nil
}

// Cleanup cleans up terminal resources
func (t *Backend) Cleanup() error {
	if t.signals != nil {
		signal.Stop(t.signals)
	}
	if t.screen != nil {
		slog.Info("Cleaning up terminal backend")
		t.screen.Fini()
		t.screen = nil
	}
	// Logs go back to the previous handler once the screen is gone
	if t.prevLog != nil {
		slog.SetDefault(t.prevLog)
		t.prevLog = nil
	}
	return nil
}

func (t *Backend) quit() {
	if !t.running {
		return
	}
	t.running = false
	t.eventQueue = append(t.eventQueue, backend.InputEvent{Action: action.Quit, Type: event.Press})
}

// tcellKeyNameMap converts tcell keys to key names used in default mappings
var tcellKeyNameMap = map[tcell.Key]string{
	tcell.KeyEscape: "Escape",
	tcell.KeyF1:     "F1",
	tcell.KeyF2:     "F2",
	tcell.KeyF3:     "F3",
	tcell.KeyF12:    "F12",
}

// buildKeyMapping creates the key mapping from default mappings
func buildKeyMapping() map[tcell.Key]action.Action {
	mapping := make(map[tcell.Key]action.Action)
	for key, keyName := range tcellKeyNameMap {
		if act, ok := input.GetDefaultMapping(keyName); ok {
			mapping[key] = act
		}
	}
	mapping[tcell.KeyCtrlC] = action.Quit
	return mapping
}

var keyMapping = buildKeyMapping()

func (t *Backend) processKeyEvent(ev *tcell.EventKey) {
	if ev.Key() == tcell.KeyRune {
		t.processRuneKey(ev.Rune())
		return
	}
	if act, ok := keyMapping[ev.Key()]; ok {
		t.dispatch(act)
	}
}

func (t *Backend) processRuneKey(r rune) {
	switch r {
	case '+', '=':
		t.changeLogLevel(-4)
		return
	case '-', '_':
		t.changeLogLevel(4)
		return
	}
	if act, ok := input.GetDefaultMapping(string(r)); ok {
		t.dispatch(act)
	}
}

func (t *Backend) dispatch(act action.Action) {
	if act == action.Quit {
		t.quit()
		return
	}
	t.eventQueue = append(t.eventQueue, backend.InputEvent{Action: act, Type: event.Press})
}

// changeLogLevel moves the log pane filter by delta, within debug..error.
func (t *Backend) changeLogLevel(delta slog.Level) {
	old := t.logLevel.Level()
	next := min(max(old+delta, slog.LevelDebug), slog.LevelError)
	if next != old {
		t.logLevel.Set(next)
		slog.Info("Log filter changed", "from", old, "to", next)
	}
}

// layout splits the screen: two panes side by side, a status line, then the log pane.
type layout struct {
	paneW, paneH int // in cells
	fillX, keyX  int
	statusY      int
	logsY        int
}

func computeLayout(termW, termH int) layout {
	paneW := (termW - 3) / 2
	paneH := paneW * 9 / 32 // two pixels per cell vertically
	if maxH := termH - logLines - 4; paneH > maxH {
		paneH = max(maxH, 1)
		paneW = paneH * 32 / 9
	}
	return layout{
		paneW:   paneW,
		paneH:   paneH,
		fillX:   1,
		keyX:    paneW + 2,
		statusY: paneH + 2,
		logsY:   paneH + 3,
	}
}

func (t *Backend) render() {
	termW, termH := t.screen.Size()
	t.screen.Clear()
	if termW < minTermWidth || termH < minTermHeight {
		style := tcell.StyleDefault.Foreground(tcell.ColorRed)
		t.drawText(0, termH/2, termW, fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight), style)
		return
	}

	l := computeLayout(termW, termH)
	titleStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	t.drawText(l.fillX, 0, l.paneW, " Fill ", titleStyle)
	t.drawText(l.keyX, 0, l.paneW, " Key ", titleStyle)

	canvas := t.target.Frame()
	t.drawPane(canvas, video.FillPane, l.fillX, 1, l.paneW, l.paneH, true)
	t.drawPane(canvas, video.KeyPane, l.keyX, 1, l.paneW, l.paneH, false)

	status := fmt.Sprintf(" frames=%d", t.target.Frames())
	if t.config.Status != nil {
		status = " " + t.config.Status() + status
	}
	t.drawText(0, l.statusY, termW, status, tcell.StyleDefault.Foreground(tcell.ColorGreen))

	t.drawLogs(l.logsY, termW, termH-l.logsY-1)

	help := fmt.Sprintf(" s=show c=clear b=black p=snapshot q=quit | logs: +/- [%s] ", t.logLevel.Level())
	t.drawText(0, termH-1, termW, help, tcell.StyleDefault.Foreground(tcell.ColorWhite))
}

// drawPane draws one canvas pane with half blocks. The Fill pane is shown flattened over black.
func (t *Backend) drawPane(canvas *video.FrameBuffer, pane image.Rectangle, x0, y0, w, h int, flatten bool) {
	img := render.ScalePane(canvas, pane, w, h*2)
	rgb := func(x, y int) tcell.Color {
		c := img.NRGBAAt(x, y)
		r, g, b := c.R, c.G, c.B
		if flatten {
			r, g, b = render.OverBlack(c)
		}
		return tcell.NewRGBColor(int32(r), int32(g), int32(b))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			style := tcell.StyleDefault.Foreground(rgb(x, 2*y)).Background(rgb(x, 2*y+1))
			t.screen.SetContent(x0+x, y0+y, render.HalfBlock, nil, style)
		}
	}
}

func (t *Backend) drawLogs(startY, width, height int) {
	if height <= 0 {
		return
	}

	debugStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	infoStyle := tcell.StyleDefault.Foreground(tcell.ColorBlue)
	warnStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	errStyle := tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)

	for i, entry := range t.logBuffer.GetRecent(height, t.logLevel.Level()) {
		style := infoStyle
		switch {
		case entry.Level >= slog.LevelError:
			style = errStyle
		case entry.Level >= slog.LevelWarn:
			style = warnStyle
		case entry.Level < slog.LevelInfo:
			style = debugStyle
		}

		text := render.FormatLogEntry(entry)
		if len(text) > width && width > 3 {
			text = text[:width-3] + "..."
		}
		t.drawText(0, startY+i, width, text, style)
	}
}

func (t *Backend) drawText(x, y, width int, text string, style tcell.Style) {
	i := 0
	for _, ch := range text {
		if i >= width {
			break
		}
		t.screen.SetContent(x+i, y, ch, nil, style)
		i++
	}
}
