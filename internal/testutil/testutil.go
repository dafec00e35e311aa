// Package testutil provides shared test utilities and fixtures.
package testutil

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/banshee-data/lane.driver/internal/vision"
)

// Yellow is a lane colour well inside the default hue band (hue 30).
var Yellow = color.NRGBA{R: 255, G: 255, B: 0, A: 255}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// NewPostRequest creates a test POST request with a text body.
func NewPostRequest(path, body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
}

// LaneImage returns a black width x height image with Yellow painted in the
// given columns over rows [rowStart, rowEnd).
func LaneImage(width, height, rowStart, rowEnd int, cols ...int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	for y := rowStart; y < rowEnd; y++ {
		for _, x := range cols {
			img.SetNRGBA(x, y, Yellow)
		}
	}
	return img
}

// LaneFrame is LaneImage converted to a BGR frame.
func LaneFrame(width, height, rowStart, rowEnd int, cols ...int) *vision.Frame {
	return vision.FrameFromImage(LaneImage(width, height, rowStart, rowEnd, cols...))
}

// EncodePNG encodes img as PNG, failing the test on error.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

// DataURL encodes img the way a browser canvas toDataURL("image/png") does.
func DataURL(t *testing.T, img image.Image) string {
	t.Helper()
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(EncodePNG(t, img))
}
