// Command facedetect runs face detection from the command line: one-off
// detection, benchmarking, annotation, redaction and an MQTT worker.
package main

import (
	_ "github.com/ironsheep/face-detect-mcp/internal/backend/cnn"
	_ "github.com/ironsheep/face-detect-mcp/internal/backend/pigo"
	_ "github.com/ironsheep/face-detect-mcp/internal/backend/remote"
	_ "github.com/ironsheep/face-detect-mcp/internal/backend/yunetcv"
)

func main() {
	Execute()
}
