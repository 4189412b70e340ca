package faces

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ironsheep/face-detect-mcp/internal/bridge"
	"github.com/ironsheep/face-detect-mcp/internal/config"
)

var tracer = otel.Tracer("github.com/ironsheep/face-detect-mcp/internal/faces")

// Options tune a Service.
type Options struct {
	// Backend names the engine, for results and traces only.
	Backend string

	// MaxDimension downscales larger images before detection. 0 disables.
	MaxDimension int

	// MinConfidence drops faces scoring below it.
	MinConfidence float32
}

// Service runs a detector over decoded images.
//
// A Service holds no per-call state; it is safe for concurrent use when its
// detector is.
type Service struct {
	det  bridge.Detector
	opts Options
}

// NewService creates a Service around det.
func NewService(det bridge.Detector, opts Options) *Service {
	return &Service{det: det, opts: opts}
}

// Options returns the options s was created with.
func (s *Service) Options() Options {
	return s.opts
}

// WithOptions returns a Service sharing s's detector with different options.
func (s *Service) WithOptions(opts Options) *Service {
	return &Service{det: s.det, opts: opts}
}

// Backend returns the configured backend name.
func (s *Service) Backend() string {
	return s.opts.Backend
}

// Result is the outcome of detection on one image.
type Result struct {
	// Width and Height are the dimensions of the source image.
	Width  int `json:"width"`
	Height int `json:"height"`

	// DetectionWidth and DetectionHeight are the dimensions the detector
	// saw after any downscaling.
	DetectionWidth  int `json:"detection_width"`
	DetectionHeight int `json:"detection_height"`

	Faces     []Face `json:"faces"`
	Discarded int    `json:"discarded"`
	Backend   string `json:"backend"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// Scale returns the factor mapping detection pixels back to source pixels.
func (r *Result) Scale() float64 {
	if r.DetectionWidth == 0 {
		return 1
	}
	return float64(r.Width) / float64(r.DetectionWidth)
}

// Detect finds faces in img.
//
// Parameters:
//   - ctx: Carries the trace span. Detection itself is not interruptible.
//   - img: The upright source image. It is downscaled first when
//     MaxDimension is set.
//
// Returns:
//   - *Result: Faces in detection pixels plus the sizes needed to map them
//     back to img. Faces with unrepresentable geometry are counted in
//     Discarded; faces below MinConfidence are dropped silently.
//   - error: Non-nil if the detector fails.
//
// # Errors
//
//   - Returns a wrapped bridge.ErrContractViolation if the converted pixel
//     buffer is inconsistent
//   - Returns the backend's error, wrapped, if detection fails
func (s *Service) Detect(ctx context.Context, img image.Image) (*Result, error) {
	ctx, span := s.start(ctx, "faces.Detect", img)
	defer span.End()

	start := time.Now()
	raw, w, h, err := s.detectRaw(ctx, img)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	b := img.Bounds()
	res := &Result{
		Width:           b.Dx(),
		Height:          b.Dy(),
		DetectionWidth:  w,
		DetectionHeight: h,
		Faces:           make([]Face, 0, len(raw)),
		Backend:         s.opts.Backend,
	}
	for _, bf := range raw {
		f, err := FromBridge(bf, w, h)
		if err != nil {
			config.Debugf("detector reported an invalid face: %+v: %v. Discarding it.", bf, err)
			res.Discarded++
			continue
		}
		if f.Confidence < s.opts.MinConfidence {
			continue
		}
		res.Faces = append(res.Faces, f)
	}
	res.ElapsedMs = time.Since(start).Milliseconds()

	span.SetAttributes(
		attribute.Int("faces.count", len(res.Faces)),
		attribute.Int("faces.discarded", res.Discarded),
	)
	return res, nil
}

// DetectRaw returns the bridge records unfiltered, together with the
// dimensions the detector ran on.
func (s *Service) DetectRaw(ctx context.Context, img image.Image) ([]bridge.Face, int, int, error) {
	ctx, span := s.start(ctx, "faces.DetectRaw", img)
	defer span.End()

	faces, w, h, err := s.detectRaw(ctx, img)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return faces, w, h, err
}

func (s *Service) detectRaw(_ context.Context, img image.Image) ([]bridge.Face, int, int, error) {
	pix, w, h, stride := ToBGR(fitForDetection(img, s.opts.MaxDimension))
	faces, err := bridge.DetectFaces(s.det, pix, w, h, stride)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("face detection failed: %w", err)
	}
	return faces, w, h, nil
}

// DetectFile loads path, honoring EXIF orientation, and runs Detect.
func (s *Service) DetectFile(ctx context.Context, path string) (*Result, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return s.Detect(ctx, img)
}

// Rectangles returns every face box in source image pixels.
func (r *Result) Rectangles() []image.Rectangle {
	rects := make([]image.Rectangle, len(r.Faces))
	for i, f := range r.Faces {
		rects[i] = f.SourceRect(r.Scale())
	}
	return rects
}

func (s *Service) start(ctx context.Context, name string, img image.Image) (context.Context, trace.Span) {
	b := img.Bounds()
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("faces.backend", s.opts.Backend),
		attribute.Int("image.width", b.Dx()),
		attribute.Int("image.height", b.Dy()),
	))
}
