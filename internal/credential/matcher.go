package credential

import (
	"crypto/subtle"
	"fmt"
	"image"
	"math/bits"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/image/draw"
)

const (
	ModePresence   = "presence"
	ModeExact      = "exact"
	ModePerceptual = "perceptual"
)

// Matcher decides whether a submitted handle matches the stored one. It is
// only consulted once a credential exists.
type Matcher interface {
	Match(stored, submitted string) (bool, error)
}

// NewMatcher returns the matcher for mode. Unknown modes fall back to
// presence, which accepts any handle.
func NewMatcher(mode string, threshold int) Matcher {
	switch mode {
	case ModeExact:
		return ExactMatcher{}
	case ModePerceptual:
		return PerceptualMatcher{Threshold: threshold}
	default:
		return PresenceMatcher{}
	}
}

// PresenceMatcher accepts any handle: a registered credential alone
// authenticates. This is the default.
type PresenceMatcher struct{}

func (PresenceMatcher) Match(string, string) (bool, error) { return true, nil }

// ExactMatcher accepts only a byte-identical handle.
type ExactMatcher struct{}

func (ExactMatcher) Match(stored, submitted string) (bool, error) {
	a := blake2b.Sum256([]byte(stored))
	b := blake2b.Sum256([]byte(submitted))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1, nil
}

// PerceptualMatcher decodes both images and compares 64-bit difference
// hashes. Handles within Threshold differing bits match.
type PerceptualMatcher struct {
	Threshold int
}

func (m PerceptualMatcher) Match(stored, submitted string) (bool, error) {
	a, err := decodeImage(stored)
	if err != nil {
		return false, fmt.Errorf("stored credential: %w", err)
	}
	b, err := decodeImage(submitted)
	if err != nil {
		return false, err
	}
	return HammingDistance(DifferenceHash(a), DifferenceHash(b)) <= m.Threshold, nil
}

// DifferenceHash computes a dHash: the image is scaled to 9x8 grayscale
// and each bit records whether a pixel is brighter than its right
// neighbour.
func DifferenceHash(img image.Image) uint64 {
	gray := image.NewGray(image.Rect(0, 0, 9, 8))
	draw.BiLinear.Scale(gray, gray.Bounds(), img, img.Bounds(), draw.Src, nil)

	var hash uint64
	bit := 63
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if gray.GrayAt(x, y).Y > gray.GrayAt(x+1, y).Y {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

// HammingDistance counts differing bits.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
