package credential

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// gradientHandle renders a horizontal gradient as a PNG data URI. With
// rising=true brightness increases left to right.
func gradientHandle(t *testing.T, rising bool) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 90, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 90; x++ {
			v := uint8(x * 255 / 89)
			if !rising {
				v = 255 - v
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestPerceptualMatcher(t *testing.T) {
	rising := gradientHandle(t, true)
	falling := gradientHandle(t, false)
	m := PerceptualMatcher{Threshold: 10}

	ok, err := m.Match(rising, rising)
	if err != nil || !ok {
		t.Fatalf("expected identical images to match: ok=%v err=%v", ok, err)
	}

	ok, err = m.Match(rising, falling)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if ok {
		t.Fatal("expected mirrored gradient to differ")
	}
}

func TestPerceptualMatcherInvalidHandle(t *testing.T) {
	m := PerceptualMatcher{Threshold: 10}
	_, err := m.Match(gradientHandle(t, true), "data:image/png;base64,not base64!")
	if !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("expected ErrInvalidHandle, got %v", err)
	}
	_, err = m.Match(gradientHandle(t, true), "blob:1234")
	if !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("expected ErrInvalidHandle for non data URI, got %v", err)
	}
}

func TestDifferenceHashGradients(t *testing.T) {
	rising, _ := decodeImage(gradientHandle(t, true))
	falling, _ := decodeImage(gradientHandle(t, false))

	if h := DifferenceHash(rising); h != 0 {
		t.Fatalf("rising gradient should hash to 0, got %016x", h)
	}
	if d := HammingDistance(DifferenceHash(rising), DifferenceHash(falling)); d != 64 {
		t.Fatalf("expected distance 64, got %d", d)
	}
}

func TestNewMatcherModes(t *testing.T) {
	if _, ok := NewMatcher(ModePresence, 0).(PresenceMatcher); !ok {
		t.Fatal("presence mode")
	}
	if _, ok := NewMatcher(ModeExact, 0).(ExactMatcher); !ok {
		t.Fatal("exact mode")
	}
	if m, ok := NewMatcher(ModePerceptual, 7).(PerceptualMatcher); !ok || m.Threshold != 7 {
		t.Fatal("perceptual mode")
	}
	if _, ok := NewMatcher("unknown", 0).(PresenceMatcher); !ok {
		t.Fatal("unknown mode should fall back to presence")
	}
}

// oversizedPNGHandle is a PNG whose header claims 12000x12000 RGBA pixels
// followed by a truncated image data chunk.
func oversizedPNGHandle() string {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(kind string, data []byte) {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(data)))
		buf.Write(n[:])
		buf.WriteString(kind)
		buf.Write(data)
		crc := crc32.NewIEEE()
		crc.Write([]byte(kind))
		crc.Write(data)
		binary.BigEndian.PutUint32(n[:], crc.Sum32())
		buf.Write(n[:])
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], 12000)
	binary.BigEndian.PutUint32(ihdr[4:8], 12000)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA
	chunk("IHDR", ihdr)
	chunk("IDAT", []byte{0x78, 0x9c, 0x00})
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestPerceptualMatcherRejectsOversizedImage(t *testing.T) {
	huge := oversizedPNGHandle()
	m := PerceptualMatcher{Threshold: 10}

	if _, err := m.Match(gradientHandle(t, true), huge); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("expected ErrInvalidHandle for submitted image, got %v", err)
	}
	if _, err := m.Match(huge, gradientHandle(t, true)); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("expected ErrInvalidHandle for stored image, got %v", err)
	}
}
