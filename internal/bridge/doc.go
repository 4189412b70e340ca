// Package bridge converts the output of a native face detector into owned,
// boundary-safe Go values.
//
// The detector itself is an external collaborator modelled by the Detector
// interface: it receives a packed BGR pixel buffer plus its geometry and
// returns one NativeFace per detection. DetectFaces invokes it and copies
// every record into a freshly allocated []Face. Nothing returned by this
// package aliases memory owned by the detector.
//
// # Conversion Contract
//
// For N native records DetectFaces returns exactly N faces in the same order.
// Score, X, Y, W and H are copied verbatim. The landmark array is copied
// element by element; its length is the compile-time constant LandmarkCount
// on both sides, so a detector built with a different landmark count fails
// to compile instead of being truncated or padded at run time.
//
// # Input Contract
//
// Pixels are 8-bit BGR, three bytes per pixel, rows stride bytes apart:
//
//	len(pix) >= stride*height
//	stride   >= width*BytesPerPixel
//
// Violations are reported with errors wrapping ErrContractViolation before
// the detector is called. A zero or negative width or height is degenerate
// input, not an error: the result is an empty slice.
//
// # Error Handling
//
// Errors returned by the detector are passed to the caller unchanged. No
// detection is an empty, non-nil slice.
//
// # Thread Safety
//
// DetectFaces holds no state between calls. Whether concurrent calls are
// safe depends on the Detector; wrap a non-reentrant detector with Serialize.
package bridge
