package credential

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strings"

	_ "golang.org/x/image/webp"
)

// MaxImagePixels caps Width*Height of a handle before its pixels are
// decoded. Decoders allocate the whole buffer from the header alone.
const MaxImagePixels = 4096 * 4096

// decodeImage turns a data-URI image handle into an image. Both base64 and
// percent-encoded payloads are accepted.
func decodeImage(handle string) (image.Image, error) {
	payload, err := dataURIPayload(handle)
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image config: %v", ErrInvalidHandle, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, fmt.Errorf("%w: image dimensions %dx%d out of range", ErrInvalidHandle, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %v", ErrInvalidHandle, err)
	}
	return img, nil
}

func dataURIPayload(handle string) ([]byte, error) {
	rest, ok := strings.CutPrefix(handle, "data:")
	if !ok {
		return nil, fmt.Errorf("%w: missing data: scheme", ErrInvalidHandle)
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload separator", ErrInvalidHandle)
	}
	if strings.HasSuffix(meta, ";base64") {
		b, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("%w: base64: %v", ErrInvalidHandle, err)
		}
		return b, nil
	}
	s, err := url.PathUnescape(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandle, err)
	}
	return []byte(s), nil
}
