// Package imaging provides the image operations around face detection:
// loading with a shared cache, cropping faces, drawing detections and
// blurring faces out.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner.
// Regions are half-open: (x1,y1) is inclusive, (x2,y2) is exclusive, which
// matches image.Rectangle.
//
// Images are loaded with their EXIF orientation applied. Every coordinate
// in this package, and every detection made on a loaded image, refers to
// the upright image rather than the stored pixel order.
//
// # Output
//
// Operations that produce an image for a client return an ImageResult
// holding a base64 PNG. Annotate and Redact return the image itself so that
// command line tools can write it straight to disk with Save.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The remaining functions never
// modify their input and can run concurrently.
package imaging
