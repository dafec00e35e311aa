package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/jpeg"
	"strings"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/banshee-data/lane.driver/internal/testutil"
)

func TestDecodeFrame_Formats(t *testing.T) {
	img := testutil.LaneImage(320, 240, 68, 72, 30, 290)

	var bmpBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, img); err != nil {
		t.Fatalf("bmp encode: %v", err)
	}
	var jpgBuf bytes.Buffer
	if err := jpeg.Encode(&jpgBuf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}

	tests := []struct {
		name string
		body string
	}{
		{"data url png", testutil.DataURL(t, img)},
		{"bare png", base64.StdEncoding.EncodeToString(testutil.EncodePNG(t, img))},
		{"png with newline", base64.StdEncoding.EncodeToString(testutil.EncodePNG(t, img)) + "\n"},
		{"comma prefix without scheme", ";base64," + base64.StdEncoding.EncodeToString(testutil.EncodePNG(t, img))},
		{"wrapped lines", wrap(base64.StdEncoding.EncodeToString(testutil.EncodePNG(t, img)), 76)},
		{"bmp", base64.StdEncoding.EncodeToString(bmpBuf.Bytes())},
		{"jpeg", base64.StdEncoding.EncodeToString(jpgBuf.Bytes())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeFrame([]byte(tt.body))
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if f.Width != 320 || f.Height != 240 || f.Channels != 3 {
				t.Errorf("frame = %dx%dx%d, want 320x240x3", f.Width, f.Height, f.Channels)
			}
		})
	}
}

func TestDecodeFrame_LosslessPixels(t *testing.T) {
	img := testutil.LaneImage(8, 8, 2, 4, 5)
	f, err := DecodeFrame([]byte(testutil.DataURL(t, img)))
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	if b, g, r := f.BGR(5, 3); b != 0 || g != 255 || r != 255 {
		t.Errorf("BGR(5,3) = (%d,%d,%d), want yellow", b, g, r)
	}
	if b, g, r := f.BGR(0, 0); b != 0 || g != 0 || r != 0 {
		t.Errorf("BGR(0,0) = (%d,%d,%d), want black", b, g, r)
	}
}

func TestDecodeFrame_Errors(t *testing.T) {
	for _, body := range []string{"", "   ", "data:,", ";base64,", "%%%", base64.StdEncoding.EncodeToString([]byte("GIF89a"))} {
		if _, err := DecodeFrame([]byte(body)); !errors.Is(err, ErrDecode) {
			t.Errorf("DecodeFrame(%q) error = %v, want ErrDecode", body, err)
		}
	}
}

func wrap(s string, n int) string {
	var b strings.Builder
	for len(s) > n {
		b.WriteString(s[:n])
		b.WriteString("\r\n")
		s = s[n:]
	}
	b.WriteString(s)
	return b.String()
}
