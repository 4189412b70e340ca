// Package faces turns raw bridge detections into validated face geometry
// and runs detection on decoded images.
package faces

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/face-detect-mcp/internal/bridge"
)

// ErrInvalidFace is returned when a detection has geometry that cannot be
// represented, such as negative coordinates.
var ErrInvalidFace = errors.New("invalid face geometry")

// Point is a pixel coordinate.
type Point struct {
	X uint16 `json:"x"`
	Y uint16 `json:"y"`
}

// PointF is a coordinate normalized to 0..1 by the detection dimensions.
type PointF struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Landmarks are the five facial keypoints.
//
// Right and left are in the natural face sense: a person's right eye is
// seen on the left side of the image.
type Landmarks struct {
	RightEye   Point `json:"right_eye"`
	LeftEye    Point `json:"left_eye"`
	Nose       Point `json:"nose"`
	MouthRight Point `json:"mouth_right"`
	MouthLeft  Point `json:"mouth_left"`
}

// LandmarksF are Landmarks in normalized coordinates.
type LandmarksF struct {
	RightEye   PointF `json:"right_eye"`
	LeftEye    PointF `json:"left_eye"`
	Nose       PointF `json:"nose"`
	MouthRight PointF `json:"mouth_right"`
	MouthLeft  PointF `json:"mouth_left"`
}

// Rect is a face bounding box in pixels.
type Rect struct {
	Left   uint16 `json:"left"`
	Top    uint16 `json:"top"`
	Width  uint16 `json:"width"`
	Height uint16 `json:"height"`
}

// RectF is a bounding box normalized to 0..1.
type RectF struct {
	Left   float32 `json:"left"`
	Top    float32 `json:"top"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// Face is a validated detection.
type Face struct {
	// Confidence is how sure the detector is (0..1) that Rectangle is a face.
	Confidence float32 `json:"confidence"`

	// Rectangle is the face location in detection pixels.
	Rectangle Rect `json:"rectangle"`

	// DetectionWidth and DetectionHeight are the size of the image the
	// detector actually ran on.
	DetectionWidth  uint16 `json:"detection_width"`
	DetectionHeight uint16 `json:"detection_height"`

	Landmarks Landmarks `json:"landmarks"`
}

// FromBridge validates a bridge record detected on a width x height image.
//
// Parameters:
//   - f: The record as reported by the detector.
//   - width, height: Size of the image the detector ran on.
//
// Returns:
//   - Face: The face with every coordinate narrowed to uint16.
//   - error: Non-nil if any coordinate or the detection size does not fit.
//
// # Errors
//
//   - Returns ErrInvalidFace for negative geometry, which some detectors
//     occasionally report
//   - Returns ErrInvalidFace for a coordinate or dimension above 65535
func FromBridge(f bridge.Face, width, height int) (Face, error) {
	dw, err := toU16("detection width", int64(width))
	if err != nil {
		return Face{}, err
	}
	dh, err := toU16("detection height", int64(height))
	if err != nil {
		return Face{}, err
	}

	var r Rect
	for _, c := range []struct {
		name string
		v    int32
		dst  *uint16
	}{
		{"x", f.X, &r.Left},
		{"y", f.Y, &r.Top},
		{"w", f.W, &r.Width},
		{"h", f.H, &r.Height},
	} {
		if *c.dst, err = toU16(c.name, int64(c.v)); err != nil {
			return Face{}, err
		}
	}

	var pts [bridge.LandmarkCount / 2]Point
	for i := range pts {
		x, err := toU16(fmt.Sprintf("lm[%d]", 2*i), int64(f.Landmarks[2*i]))
		if err != nil {
			return Face{}, err
		}
		y, err := toU16(fmt.Sprintf("lm[%d]", 2*i+1), int64(f.Landmarks[2*i+1]))
		if err != nil {
			return Face{}, err
		}
		pts[i] = Point{X: x, Y: y}
	}

	return Face{
		Confidence:      f.Score,
		Rectangle:       r,
		DetectionWidth:  dw,
		DetectionHeight: dh,
		Landmarks: Landmarks{
			RightEye:   pts[0],
			LeftEye:    pts[1],
			Nose:       pts[2],
			MouthRight: pts[3],
			MouthLeft:  pts[4],
		},
	}, nil
}

func toU16(name string, v int64) (uint16, error) {
	if v < 0 || v > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %s=%d out of range", ErrInvalidFace, name, v)
	}
	return uint16(v), nil
}

// NormalizedRectangle returns the bounding box in 0..1 coordinates.
func (f Face) NormalizedRectangle() RectF {
	w, h := float32(f.DetectionWidth), float32(f.DetectionHeight)
	return RectF{
		Left:   float32(f.Rectangle.Left) / w,
		Top:    float32(f.Rectangle.Top) / h,
		Width:  float32(f.Rectangle.Width) / w,
		Height: float32(f.Rectangle.Height) / h,
	}
}

// NormalizedLandmarks returns the landmarks in 0..1 coordinates.
func (f Face) NormalizedLandmarks() LandmarksF {
	n := func(p Point) PointF {
		return PointF{
			X: float32(p.X) / float32(f.DetectionWidth),
			Y: float32(p.Y) / float32(f.DetectionHeight),
		}
	}
	return LandmarksF{
		RightEye:   n(f.Landmarks.RightEye),
		LeftEye:    n(f.Landmarks.LeftEye),
		Nose:       n(f.Landmarks.Nose),
		MouthRight: n(f.Landmarks.MouthRight),
		MouthLeft:  n(f.Landmarks.MouthLeft),
	}
}

// Points returns the landmarks in detector order.
func (l Landmarks) Points() []Point {
	return []Point{l.RightEye, l.LeftEye, l.Nose, l.MouthRight, l.MouthLeft}
}

// SourceRect returns the bounding box in the pixels of an image that was
// downscaled by 1/scale before detection. See Result.Scale.
func (f Face) SourceRect(scale float64) image.Rectangle {
	left, top := int(f.Rectangle.Left), int(f.Rectangle.Top)
	return image.Rect(
		scaled(left, scale),
		scaled(top, scale),
		scaled(left+int(f.Rectangle.Width), scale),
		scaled(top+int(f.Rectangle.Height), scale),
	)
}

// SourcePoints returns the landmarks, in detector order, in source pixels.
func (f Face) SourcePoints(scale float64) []image.Point {
	pts := f.Landmarks.Points()
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = image.Pt(scaled(int(p.X), scale), scaled(int(p.Y), scale))
	}
	return out
}

func scaled(v int, scale float64) int {
	return int(math.Round(float64(v) * scale))
}
