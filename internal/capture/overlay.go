package capture

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	// StatusColor is used for regular status text.
	StatusColor = color.RGBA{R: 0, G: 0, B: 0, A: 0}
	// AlertColor is used when the frame carried too little landmark data.
	AlertColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// statusOrigin is the baseline position of the status text.
var statusOrigin = image.Point{X: 20, Y: 50}

// DrawStatus renders text onto frame in place.
func DrawStatus(frame *gocv.Mat, text string, alert bool) {
	if frame == nil || frame.Empty() || text == "" {
		return
	}

	c := StatusColor
	if alert {
		c = AlertColor
	}
	gocv.PutTextWithParams(frame, text, statusOrigin, gocv.FontHersheySimplex, 1.2, c, 3, gocv.LineAA, false)
}

// EncodeJPEG encodes frame to a standalone JPEG byte slice.
func EncodeJPEG(frame *gocv.Mat) ([]byte, error) {
	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
