// Package recorder captures a browser frame after every session step and
// turns the run into an animated GIF walkthrough, plus PNG thumbnails of
// failures.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"go.uber.org/zap"

	"github.com/v0xg/facilityqa/internal/page"
)

// FrameSource captures the current viewport. *browser.Browser implements it.
type FrameSource interface {
	Frame(ctx context.Context) (image.Image, error)
}

// Options configures a Recorder
type Options struct {
	// Dir receives GIFs and thumbnails. Defaults to the working directory.
	Dir string
	// RunID prefixes every artifact. Defaults to a random UUID.
	RunID string
	GIF   GIFOptions
	// MaxFrames caps the recording; later steps are dropped.
	MaxFrames int
}

// Frame is one captured step.
type Frame struct {
	Step  string
	Image image.Image
}

// Recorder is safe for concurrent use.
type Recorder struct {
	src  FrameSource
	opts Options
	log  *zap.Logger

	mu      sync.Mutex
	frames  []Frame
	dropped int
}

func New(src FrameSource, opts Options, log *zap.Logger) *Recorder {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = 300
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{src: src, opts: opts, log: log}
}

// RunID returns the identifier prefixing this run's artifacts.
func (r *Recorder) RunID() string { return r.opts.RunID }

// Hook returns a page.StepHook that captures a frame per step. Capture
// failures are logged, never returned to the step.
func (r *Recorder) Hook() page.StepHook {
	return func(ctx context.Context, step string) {
		if err := r.Capture(ctx, step); err != nil {
			r.log.Warn("capture frame", zap.String("step", step), zap.Error(err))
		}
	}
}

// Capture grabs the current viewport as the frame for step.
func (r *Recorder) Capture(ctx context.Context, step string) error {
	r.mu.Lock()
	full := len(r.frames) >= r.opts.MaxFrames
	if full {
		r.dropped++
	}
	r.mu.Unlock()
	if full {
		return nil
	}

	img, err := r.src.Frame(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Concurrent captures may have filled the buffer meanwhile.
	if len(r.frames) >= r.opts.MaxFrames {
		r.dropped++
		return nil
	}
	r.frames = append(r.frames, Frame{Step: step, Image: img})
	return nil
}

// Frames returns the captured frames in order.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Frame(nil), r.frames...)
}

// Dropped returns the number of steps not captured because of MaxFrames.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

func (r *Recorder) path(name, ext string) string {
	return filepath.Join(r.opts.Dir, r.opts.RunID+"-"+sanitize(name)+ext)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitize(name string) string {
	name = strings.Trim(unsafeChars.ReplaceAllString(name, "-"), "-")
	if name == "" {
		return "run"
	}
	return name
}

// WriteGIF encodes every captured frame to <Dir>/<RunID>-<name>.gif and
// returns the path and file size.
func (r *Recorder) WriteGIF(name string) (string, int64, error) {
	frames := r.Frames()
	if len(frames) == 0 {
		return "", 0, errors.New("nothing recorded")
	}
	images := make([]image.Image, len(frames))
	for i, f := range frames {
		images[i] = f.Image
	}

	path := r.path(name, ".gif")
	f, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	if err := EncodeGIF(f, images, r.opts.GIF); err != nil {
		return "", 0, fmt.Errorf("encode %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		return "", 0, err
	}
	r.log.Info("recording written", zap.String("path", path), zap.Int("frames", len(images)))
	return path, info.Size(), nil
}

// Thumbnail captures the viewport now and writes it, scaled to the GIF
// width, to <Dir>/<RunID>-<name>.png.
func (r *Recorder) Thumbnail(ctx context.Context, name string) (string, error) {
	return r.thumbnail(ctx, name, false)
}

// Failure is Thumbnail with a red border around the screenshot.
func (r *Recorder) Failure(ctx context.Context, name string) (string, error) {
	return r.thumbnail(ctx, name, true)
}

func (r *Recorder) thumbnail(ctx context.Context, name string, failed bool) (string, error) {
	img, err := r.src.Frame(ctx)
	if err != nil {
		return "", err
	}
	opts := r.opts.GIF.withDefaults()
	w, h := scaledSize(img.Bounds(), opts.MaxWidth)
	thumb := resize.Resize(w, h, img, resize.Bilinear)
	if failed {
		rgba := toRGBA(thumb)
		drawBorder(rgba)
		thumb = rgba
	}

	path := r.path(name, ".png")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := png.Encode(f, thumb); err != nil {
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	return path, nil
}
