package scraper

import (
	"bytes"
	"fmt"
	"image"

	// Decoders for the formats badges are published in.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Badge geometry. Sizes within Tolerance pixels of 88x31 are accepted.
const (
	BadgeWidth  = 88
	BadgeHeight = 31
	Tolerance   = 2
)

// IsBadgeSize reports whether width x height is close enough to 88x31.
func IsBadgeSize(width, height int) bool {
	return abs(width-BadgeWidth) <= Tolerance && abs(height-BadgeHeight) <= Tolerance
}

// CheckBadge decodes only the image header and returns ErrNotBadge when
// the dimensions are wrong.
func CheckBadge(data []byte) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotBadge, err)
	}
	if !IsBadgeSize(cfg.Width, cfg.Height) {
		return fmt.Errorf("%w: %s is %dx%d", ErrNotBadge, format, cfg.Width, cfg.Height)
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
