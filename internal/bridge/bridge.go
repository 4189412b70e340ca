package bridge

import (
	"errors"
	"fmt"
	"math"
)

// LandmarkCount is the number of landmark scalars per detection: five
// (x, y) points.
const LandmarkCount = 10

// BytesPerPixel is the size of one packed BGR pixel.
const BytesPerPixel = 3

var (
	// ErrContractViolation marks a caller or build-configuration error, as
	// opposed to "no faces found".
	ErrContractViolation = errors.New("detection contract violation")

	// ErrShortBuffer is returned when the pixel buffer is smaller than
	// stride*height bytes.
	ErrShortBuffer = fmt.Errorf("%w: pixel buffer too short", ErrContractViolation)

	// ErrStrideTooSmall is returned when a row stride cannot hold width pixels.
	ErrStrideTooSmall = fmt.Errorf("%w: row stride smaller than width", ErrContractViolation)

	// ErrLandmarkCount is returned by detectors whose landmark count is only
	// known at run time and does not equal LandmarkCount.
	ErrLandmarkCount = fmt.Errorf("%w: landmark count mismatch", ErrContractViolation)
)

// Landmarks holds the flat landmark coordinates of one detection:
// [x0, y0, x1, y1, ..., x4, y4].
type Landmarks [LandmarkCount]int32

// NativeFace is a detection record as produced by a Detector. It is only
// valid for the duration of the Detect call that returned it.
type NativeFace struct {
	Score     float32
	X, Y      int32
	W, H      int32
	Landmarks Landmarks
}

// Face is the boundary-safe copy of a NativeFace. It owns all of its data.
type Face struct {
	// Score is the detector confidence, nominally 0.0 to 1.0.
	Score float32 `json:"score"`

	// X and Y are the top-left corner of the bounding box in pixels.
	X int32 `json:"x"`
	Y int32 `json:"y"`

	// W and H are the bounding box size in pixels.
	W int32 `json:"w"`
	H int32 `json:"h"`

	// Landmarks are the facial keypoints in detector order.
	Landmarks Landmarks `json:"lm"`
}

// Detector is an external face detection engine.
//
// Detect receives a read-only BGR buffer that stays valid and unmodified for
// the duration of the call. It must not retain pix after returning.
type Detector interface {
	Detect(pix []byte, width, height, stride int) ([]NativeFace, error)
}

// DetectorFunc adapts an ordinary function to the Detector interface.
type DetectorFunc func(pix []byte, width, height, stride int) ([]NativeFace, error)

// Detect calls f.
func (f DetectorFunc) Detect(pix []byte, width, height, stride int) ([]NativeFace, error) {
	return f(pix, width, height, stride)
}

// DetectFaces runs d over the image and returns its detections as owned
// Face values, in detector order.
//
// Parameters:
//   - d: The detection engine.
//   - pix: Packed BGR pixels, at least stride*height bytes.
//   - width, height: Image size in pixels.
//   - stride: Bytes between the start of consecutive rows.
//
// Returns:
//   - []Face: One entry per native record. Never nil on success.
//   - error: A wrapped ErrContractViolation for an invalid buffer, or the
//     detector's own error, unchanged.
func DetectFaces(d Detector, pix []byte, width, height, stride int) ([]Face, error) {
	if width <= 0 || height <= 0 {
		return []Face{}, nil
	}
	if err := CheckGeometry(pix, width, height, stride); err != nil {
		return nil, err
	}

	native, err := d.Detect(pix, width, height, stride)
	if err != nil {
		return nil, err
	}
	return Convert(native), nil
}

// CheckGeometry validates the buffer preconditions for a non-degenerate
// image; degenerate geometry passes. Sizes are compared without
// multiplying, so geometry whose byte count does not fit in an int is
// rejected rather than wrapped.
func CheckGeometry(pix []byte, width, height, stride int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	if width > math.MaxInt/BytesPerPixel || stride < width*BytesPerPixel {
		return fmt.Errorf("%w: stride %d, width %d", ErrStrideTooSmall, stride, width)
	}
	if stride > len(pix)/height {
		return fmt.Errorf("%w: have %d bytes, need %d rows of %d", ErrShortBuffer, len(pix), height, stride)
	}
	return nil
}
