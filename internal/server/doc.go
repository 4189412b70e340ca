// Package server implements the MCP (Model Context Protocol) server for face
// detection.
//
// The server speaks JSON-RPC 2.0 over stdio, one request per line on stdin
// and one response per line on stdout. Supported methods are initialize,
// notifications/initialized, tools/list, tools/call and ping.
//
// # Tools
//
// Image information:
//   - image_load: dimensions, format and file size
//   - image_dimensions: width and height
//
// Face detection:
//   - face_detect: validated faces in source and normalized coordinates
//   - face_detect_raw: detector records as produced, in detection pixels
//   - face_annotate: PNG with boxes, landmarks and confidence labels
//   - face_crop: one face cropped to a PNG
//   - face_redact: PNG with every face blurred
//
// Every detecting tool accepts max_dimension and min_confidence to override
// the server defaults for that call.
//
// # Coordinates
//
// Detection may run on a downscaled copy of the image. Boxes and landmarks
// under "box" and "landmarks" are mapped back to source pixels; "detection"
// keeps the values at detection resolution. Landmarks are named in the
// subject's sense, so the right eye usually has the smaller x.
//
// # Error Handling
//
// Malformed parameters and arguments that fail validation return code
// -32602. Any other tool failure returns -32000 with the Go error string in
// data. Unknown methods return -32601.
//
// # Usage
//
//	svc := faces.NewService(detector, faces.Options{Backend: "pigo"})
//	if err := server.New(svc).Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
