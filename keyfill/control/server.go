package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/valerio/go-keyfill/keyfill"
	"github.com/valerio/go-keyfill/keyfill/display"
	"github.com/valerio/go-keyfill/keyfill/handoff"
	"github.com/valerio/go-keyfill/keyfill/layer"
)

const shutdownTimeout = 5 * time.Second

// Server exposes an Adapter over HTTP.
//
//	POST /mode/{mode}              show | clear | black
//	POST /layers/{index}/show
//	POST /layers/{index}/hide
//	PUT  /layers/{index}/frame     raw BGRA8888 1920x1080
//	PUT  /layers/{index}/image     PNG, JPEG, GIF, BMP or WebP, scaled to 1920x1080
//	GET  /status
type Server struct {
	adapter   *Adapter
	maxUpload int64
	srv       *http.Server
}

func NewServer(addr string, adapter *Adapter, maxUpload int64) *Server {
	if maxUpload <= 0 {
		maxUpload = display.DefaultMaxUploadBytes
	}
	s := &Server{adapter: adapter, maxUpload: maxUpload}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /mode/{mode}", s.handleMode)
	mux.HandleFunc("POST /layers/{index}/show", s.handleVisibility(s.adapter.ShowLayer))
	mux.HandleFunc("POST /layers/{index}/hide", s.handleVisibility(s.adapter.HideLayer))
	mux.HandleFunc("PUT /layers/{index}/frame", s.handleFrame)
	mux.HandleFunc("PUT /layers/{index}/image", s.handleImage)
	mux.HandleFunc("GET /status", s.handleStatus)
	return mux
}

// Run serves on the configured address until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("control listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	slog.Info("Control server listening", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- s.srv.Serve(ln) }()

	select {
	case err := <-errc:
		return fmt.Errorf("control server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("control shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("Control server stopped")
	return nil
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	mode, err := keyfill.ParseDisplayMode(r.PathValue("mode"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.adapter.SetMode(mode)
	slog.Info("Display mode changed", "mode", mode, "remote", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVisibility(apply func(int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := layerIndex(w, r)
		if !ok {
			return
		}
		apply(index)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	index, ok := layerIndex(w, r)
	if !ok {
		return
	}

	frame, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		s.bodyError(w, fmt.Errorf("read frame: %w", err))
		return
	}
	if len(frame) != display.FrameBytes {
		http.Error(w, fmt.Sprintf("frame must be exactly %d bytes, got %d", display.FrameBytes, len(frame)), http.StatusBadRequest)
		return
	}

	s.write(w, index, func() error { return s.adapter.WriteLayer(index, frame, display.FramePitch) })
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	index, ok := layerIndex(w, r)
	if !ok {
		return
	}

	img, format, err := image.Decode(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		s.bodyError(w, fmt.Errorf("decode image: %w", err))
		return
	}
	slog.Debug("Image upload decoded", "layer", index, "format", format, "size", img.Bounds().Size())

	s.write(w, index, func() error { return s.adapter.WriteImage(index, img) })
}

func (s *Server) write(w http.ResponseWriter, index int, fn func() error) {
	switch err := fn(); {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, layer.ErrIndexOutOfRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, handoff.ErrClosed):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		slog.Warn("Layer write failed", "layer", index, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) bodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.adapter.Status()); err != nil {
		slog.Warn("Failed to encode status", "error", err)
	}
}

func layerIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		http.Error(w, fmt.Sprintf("invalid layer index %q", r.PathValue("index")), http.StatusBadRequest)
		return 0, false
	}
	return index, true
}
