package bridge

import "sync"

// Convert copies native records into a newly allocated slice of Face.
//
// Parameters:
//   - native: Records in the engine's layout. Not retained.
//
// Returns:
//   - []Face: One owned Face per record, in the same order. Never nil, so an
//     empty input yields an empty slice.
func Convert(native []NativeFace) []Face {
	faces := make([]Face, len(native))
	for i := range native {
		faces[i] = fromNative(&native[i])
	}
	return faces
}

func fromNative(n *NativeFace) Face {
	f := Face{
		Score: n.Score,
		X:     n.X,
		Y:     n.Y,
		W:     n.W,
		H:     n.H,
	}
	for i := range n.Landmarks {
		f.Landmarks[i] = n.Landmarks[i]
	}
	return f
}

// Serialize returns a Detector that allows one Detect call at a time on d.
// Use it for engines that are not reentrant.
func Serialize(d Detector) Detector {
	return &serialDetector{d: d}
}

type serialDetector struct {
	mu sync.Mutex
	d  Detector
}

func (s *serialDetector) Detect(pix []byte, width, height, stride int) ([]NativeFace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.Detect(pix, width, height, stride)
}
