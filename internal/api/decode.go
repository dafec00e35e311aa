package api

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/banshee-data/lane.driver/internal/vision"
)

// ErrDecode is returned when a request payload cannot be turned into a frame.
var ErrDecode = errors.New("cannot decode frame")

// DecodeFrame turns a drive request body into a frame. The body is a base64
// encoded PNG, JPEG, BMP or WebP image. Anything up to and including the
// first comma is a header and is dropped, so data URLs and the bare
// ";base64,"-prefixed bodies some clients send both decode. Bytes outside
// the base64 alphabet are ignored.
func DecodeFrame(body []byte) (*vision.Frame, error) {
	payload := body
	if i := bytes.IndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}
	payload = base64Alphabet(payload)
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	raw := make([]byte, base64.StdEncoding.DecodedLen(len(payload)))
	n, err := base64.StdEncoding.Decode(raw, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrDecode, err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw[:n]))
	if err != nil {
		return nil, fmt.Errorf("%w: image: %v", ErrDecode, err)
	}
	return vision.FrameFromImage(img), nil
}

// base64Alphabet returns the bytes of p that belong to the standard base64
// alphabet, padding included.
func base64Alphabet(p []byte) []byte {
	out := make([]byte, 0, len(p))
	for _, c := range p {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '+', c == '/', c == '=':
			out = append(out, c)
		}
	}
	return out
}
