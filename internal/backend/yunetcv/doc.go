// Package yunetcv registers the "yunet-opencv" backend: the YuNet ONNX face
// detector run through OpenCV's FaceDetectorYN via gocv.
//
// Build with cgo and the gocv tag; OpenCV 4.8 or newer must be installed.
// Box and landmark coordinates come back as floats and are rounded to the
// nearest pixel.
package yunetcv
