//go:build cgo && facedetectcnn

package cnn

// #cgo CXXFLAGS: -std=c++11 -O3 -Wall
// #cgo LDFLAGS: -lfacedetection -lstdc++
// #include <stdlib.h>
// #include "shim.h"
import "C"

import (
	"errors"
	"unsafe"

	"github.com/ironsheep/face-detect-mcp/internal/backend"
	"github.com/ironsheep/face-detect-mcp/internal/bridge"
	"github.com/ironsheep/face-detect-mcp/internal/config"
)

// Name is the registry name of this backend.
const Name = "cnn"

// Fails to compile if the native landmark array and bridge.Landmarks differ
// in length.
var _ [bridge.LandmarkCount]C.int = C.fdc_face{}.lm

// ErrDetectorFailed is returned when the native detector raised an exception.
var ErrDetectorFailed = errors.New("cnn detector failed")

func init() {
	backend.Register(Name, func(config.Backends) (backend.Detector, error) {
		return backend.Serialize(&Detector{}), nil
	})
}

// Detector calls libfacedetection. The model is compiled into the library,
// so there is nothing to load or release.
type Detector struct{}

// Detect implements bridge.Detector.
func (d *Detector) Detect(pix []byte, width, height, stride int) ([]bridge.NativeFace, error) {
	if len(pix) == 0 {
		return []bridge.NativeFace{}, nil
	}

	var out *C.fdc_face
	n := C.fdc_detect((*C.uchar)(unsafe.Pointer(&pix[0])), C.int(width), C.int(height), C.int(stride), &out)
	if n < 0 {
		return nil, ErrDetectorFailed
	}
	defer C.fdc_free(out)

	faces := make([]bridge.NativeFace, int(n))
	if n == 0 {
		return faces, nil
	}
	for i, r := range unsafe.Slice(out, int(n)) {
		f := &faces[i]
		f.Score = float32(r.score)
		f.X, f.Y = int32(r.x), int32(r.y)
		f.W, f.H = int32(r.w), int32(r.h)
		for j := range f.Landmarks {
			f.Landmarks[j] = int32(r.lm[j])
		}
	}
	return faces, nil
}

// Close implements backend.Detector.
func (d *Detector) Close() error { return nil }
