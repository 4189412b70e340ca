// Package cnn registers the "cnn" backend, which runs the libfacedetection
// convolutional face detector in-process through cgo.
//
// The backend is only built with cgo enabled and the facedetectcnn build tag:
//
//	go build -tags facedetectcnn ./...
//
// libfacedetection must be installed so that <facedetection/facedetectcnn.h>
// and -lfacedetection resolve. Its detection function is not known to be
// reentrant, so calls are serialized.
package cnn
