// Package pigo registers the "pigo" backend, a pure Go face detector built
// on the pixel intensity comparison cascades of github.com/esimov/pigo.
//
// The backend needs the "facefinder" cascade in the configured directory.
// When a "puploc" cascade sits next to it, eye positions are refined with
// pupil localization; otherwise they are estimated from the face box, as
// are the nose and mouth corners.
package pigo

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	pigo "github.com/esimov/pigo/core"

	"github.com/ironsheep/face-detect-mcp/internal/backend"
	"github.com/ironsheep/face-detect-mcp/internal/bridge"
	"github.com/ironsheep/face-detect-mcp/internal/config"
)

// Name is the registry name of this backend.
const Name = "pigo"

// Cascade file names looked up in the cascade directory.
const (
	FaceCascade  = "facefinder"
	PupilCascade = "puploc"
)

// qualityHalf is the raw cascade quality that maps to a score of 0.5.
const qualityHalf = 5.0

// Landmark geometry relative to the face center, in units of face size.
const (
	eyeDX   = 0.185
	eyeDY   = -0.085
	noseDY  = 0.08
	mouthDX = 0.15
	mouthDY = 0.25
)

func init() {
	backend.Register(Name, func(cfg config.Backends) (backend.Detector, error) {
		return New(cfg.Pigo)
	})
}

// Detector runs the pigo cascades. Unpacked cascades are read-only, so a
// Detector is safe for concurrent use.
type Detector struct {
	cfg    config.Pigo
	faces  *pigo.Pigo
	pupils *pigo.PuplocCascade
}

// New loads the cascades from cfg.CascadeDir.
func New(cfg config.Pigo) (*Detector, error) {
	data, err := os.ReadFile(filepath.Join(cfg.CascadeDir, FaceCascade))
	if err != nil {
		return nil, fmt.Errorf("failed to read face cascade: %w", err)
	}
	faces, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack face cascade: %w", err)
	}
	d := &Detector{cfg: cfg, faces: faces}

	data, err = os.ReadFile(filepath.Join(cfg.CascadeDir, PupilCascade))
	switch {
	case errors.Is(err, os.ErrNotExist):
		config.Debugf("[PIGO] no %s cascade, eye positions will be estimated", PupilCascade)
	case err != nil:
		return nil, fmt.Errorf("failed to read pupil cascade: %w", err)
	default:
		pl := pigo.NewPuplocCascade()
		if d.pupils, err = pl.UnpackCascade(data); err != nil {
			return nil, fmt.Errorf("failed to unpack pupil cascade: %w", err)
		}
	}
	return d, nil
}

// Detect implements bridge.Detector.
func (d *Detector) Detect(pix []byte, width, height, stride int) ([]bridge.NativeFace, error) {
	img := pigo.ImageParams{
		Pixels: grayscale(pix, width, height, stride),
		Rows:   height,
		Cols:   width,
		Dim:    width,
	}
	params := pigo.CascadeParams{
		MinSize:     d.cfg.MinSize,
		MaxSize:     d.cfg.MaxSize,
		ShiftFactor: d.cfg.ShiftFactor,
		ScaleFactor: d.cfg.ScaleFactor,
		ImageParams: img,
	}

	dets := d.faces.RunCascade(params, 0)
	dets = d.faces.ClusterDetections(dets, d.cfg.IoU)

	faces := make([]bridge.NativeFace, 0, len(dets))
	for _, det := range dets {
		if det.Q < d.cfg.MinQuality {
			continue
		}
		f := faceFromDetection(det)
		if d.pupils != nil {
			d.refineEyes(&f, det, img)
		}
		faces = append(faces, f)
	}
	return faces, nil
}

// Close implements backend.Detector.
func (d *Detector) Close() error { return nil }

// refineEyes replaces the estimated eye positions with localized pupils
// where the pupil cascade finds them.
func (d *Detector) refineEyes(f *bridge.NativeFace, det pigo.Detection, img pigo.ImageParams) {
	scale := float64(det.Scale)
	row := det.Row + int(eyeDY*scale)
	for i, dx := range []float64{-eyeDX, eyeDX} {
		seed := pigo.Puploc{
			Row:      row,
			Col:      det.Col + int(dx*scale),
			Scale:    float32(scale) * 0.4,
			Perturbs: 63,
		}
		eye := d.pupils.RunDetector(seed, img, 0, false)
		if eye != nil && eye.Row > 0 && eye.Col > 0 {
			f.Landmarks[2*i] = int32(eye.Col)
			f.Landmarks[2*i+1] = int32(eye.Row)
		}
	}
}

// faceFromDetection converts a cluster center to a box with estimated
// landmarks. The subject's right eye and mouth corner are on the image left.
func faceFromDetection(det pigo.Detection) bridge.NativeFace {
	s := float64(det.Scale)
	cx, cy := float64(det.Col), float64(det.Row)
	pt := func(dx, dy float64) (int32, int32) {
		return int32(math.Round(cx + dx*s)), int32(math.Round(cy + dy*s))
	}

	f := bridge.NativeFace{
		Score: squash(det.Q),
		X:     int32(det.Col - det.Scale/2),
		Y:     int32(det.Row - det.Scale/2),
		W:     int32(det.Scale),
		H:     int32(det.Scale),
	}
	lm := &f.Landmarks
	lm[0], lm[1] = pt(-eyeDX, eyeDY)
	lm[2], lm[3] = pt(eyeDX, eyeDY)
	lm[4], lm[5] = pt(0, noseDY)
	lm[6], lm[7] = pt(-mouthDX, mouthDY)
	lm[8], lm[9] = pt(mouthDX, mouthDY)
	return f
}

// squash maps an unbounded cascade quality onto [0, 1).
func squash(q float32) float32 {
	if q <= 0 {
		return 0
	}
	return q / (q + qualityHalf)
}

// grayscale computes 8-bit luma from a BGR buffer, dropping row padding.
func grayscale(pix []byte, width, height, stride int) []uint8 {
	gray := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		row := pix[y*stride:]
		for x := 0; x < width; x++ {
			b, g, r := float64(row[x*3]), float64(row[x*3+1]), float64(row[x*3+2])
			gray[y*width+x] = uint8(0.299*r + 0.587*g + 0.114*b + 0.5)
		}
	}
	return gray
}
