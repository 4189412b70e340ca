//go:build cgo && gocv

package yunetcv

import (
	"fmt"
	"image"
	"math"
	"os"

	"gocv.io/x/gocv"

	"github.com/ironsheep/face-detect-mcp/internal/backend"
	"github.com/ironsheep/face-detect-mcp/internal/bridge"
	"github.com/ironsheep/face-detect-mcp/internal/config"
)

// Name is the registry name of this backend.
const Name = "yunet-opencv"

// Column layout of one FaceDetectorYN result row.
const (
	colBox       = 0
	colLandmarks = 4
	colScore     = colLandmarks + bridge.LandmarkCount
	rowWidth     = colScore + 1
)

func init() {
	backend.Register(Name, func(cfg config.Backends) (backend.Detector, error) {
		d, err := New(cfg.YuNet)
		if err != nil {
			return nil, err
		}
		return backend.Serialize(d), nil
	})
}

// Detector runs YuNet through OpenCV's FaceDetectorYN.
type Detector struct {
	net  gocv.FaceDetectorYN
	size image.Point
}

// New loads the ONNX model named in cfg.
func New(cfg config.YuNet) (*Detector, error) {
	if _, err := os.Stat(cfg.Model); err != nil {
		return nil, fmt.Errorf("failed to find YuNet model: %w", err)
	}

	size := image.Pt(320, 320)
	net := gocv.NewFaceDetectorYN(cfg.Model, "", size)
	net.SetScoreThreshold(cfg.ScoreThreshold)
	net.SetNMSThreshold(cfg.NMSThreshold)
	net.SetTopK(cfg.TopK)
	return &Detector{net: net, size: size}, nil
}

// Detect implements bridge.Detector.
func (d *Detector) Detect(pix []byte, width, height, stride int) ([]bridge.NativeFace, error) {
	img, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, packRows(pix, width, height, stride))
	if err != nil {
		return nil, fmt.Errorf("failed to wrap image: %w", err)
	}
	defer img.Close()

	if sz := image.Pt(width, height); sz != d.size {
		d.net.SetInputSize(sz)
		d.size = sz
	}

	out := gocv.NewMat()
	defer out.Close()
	d.net.Detect(img, &out)

	return fromMat(out)
}

// Close releases the network.
func (d *Detector) Close() error {
	d.net.Close()
	return nil
}

// packRows drops row padding, which Mat construction from bytes does not
// accept.
func packRows(pix []byte, width, height, stride int) []byte {
	row := width * bridge.BytesPerPixel
	if stride == row {
		return pix[:row*height]
	}
	packed := make([]byte, row*height)
	for y := 0; y < height; y++ {
		copy(packed[y*row:(y+1)*row], pix[y*stride:y*stride+row])
	}
	return packed
}

func fromMat(m gocv.Mat) ([]bridge.NativeFace, error) {
	if m.Empty() || m.Rows() == 0 {
		return []bridge.NativeFace{}, nil
	}
	if m.Cols() != rowWidth {
		return nil, fmt.Errorf("%w: result row has %d columns, want %d", bridge.ErrLandmarkCount, m.Cols(), rowWidth)
	}

	faces := make([]bridge.NativeFace, m.Rows())
	for r := range faces {
		f := &faces[r]
		f.X = round(m.GetFloatAt(r, colBox))
		f.Y = round(m.GetFloatAt(r, colBox+1))
		f.W = round(m.GetFloatAt(r, colBox+2))
		f.H = round(m.GetFloatAt(r, colBox+3))
		for i := range f.Landmarks {
			f.Landmarks[i] = round(m.GetFloatAt(r, colLandmarks+i))
		}
		f.Score = m.GetFloatAt(r, colScore)
	}
	return faces, nil
}

func round(v float32) int32 {
	return int32(math.Round(float64(v)))
}
