package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/valerio/go-keyfill/keyfill/display"
)

// FFmpeg decodes any input ffmpeg understands into raw BGRA frames for one layer.
type FFmpeg struct {
	Binary   string  // defaults to "ffmpeg"
	Input    string  // file, URL or device
	Layer    int     // target layer index
	FPS      float64 // output rate, 0 keeps the input rate
	Realtime bool    // read the input at its native rate (-re), for files
	Loop     bool    // loop file inputs forever
}

// Args returns the ffmpeg command line, without the binary.
func (f *FFmpeg) Args() []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if f.Realtime {
		args = append(args, "-re")
	}
	if f.Loop {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args, "-i", f.Input)

	vf := fmt.Sprintf("scale=%d:%d", display.PaneWidth, display.PaneHeight)
	if f.FPS > 0 {
		vf += ",fps=" + strconv.FormatFloat(f.FPS, 'f', -1, 64)
	}
	return append(args,
		"-an",
		"-vf", vf,
		"-f", "rawvideo",
		"-pix_fmt", "bgra",
		"-",
	)
}

// Run starts ffmpeg and streams its output into the layer until the input ends or ctx is cancelled,
// which kills the process. It returns the number of frames delivered.
func (f *FFmpeg) Run(ctx context.Context, w LayerWriter) (int, error) {
	bin := f.Binary
	if bin == "" {
		bin = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, bin, f.Args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("failed to get ffmpeg stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, fmt.Errorf("failed to get ffmpeg stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	slog.Info("FFmpeg started", "input", f.Input, "layer", f.Layer, "pid", cmd.Process.Pid)

	logDone := make(chan struct{})
	go func() {
		defer close(logDone)
		logLines(stderr, f.Input)
	}()

	count, readErr := NewStreamReader(stdout, w, f.Layer).Run(ctx)
	if readErr != nil {
		// stop ffmpeg before waiting, it may be blocked writing to a pipe nobody reads
		_ = cmd.Process.Kill()
	}
	<-logDone
	waitErr := cmd.Wait()

	switch {
	case readErr != nil:
		return count, readErr
	case ctx.Err() != nil:
		return count, nil
	case waitErr != nil:
		return count, fmt.Errorf("ffmpeg exited: %w", waitErr)
	}
	slog.Info("FFmpeg finished", "input", f.Input, "frames", count)
	return count, nil
}

func logLines(r io.Reader, input string) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		slog.Warn("ffmpeg", "input", input, "message", sc.Text())
	}
}
