// Package color provides perceptual color math (LCh coordinates and CIEDE2000
// difference) used throughout the bundle assembly engine. All color
// comparison in the engine happens in LCh; nothing compares raw RGB.
package color

import (
	"fmt"
	"math"
)

// LCh is a color expressed in CIE Lightness-Chroma-hue coordinates.
type LCh struct {
	L float64 // Lightness, 0..100
	C float64 // Chroma, 0..~150
	H float64 // Hue angle in degrees, 0..360 (exclusive)
}

// Neutral chroma threshold below which a color is treated as having no
// meaningful hue (grays, near-black, near-white). Not fixed by the source
// material; C_neutral=10 is this engine's chosen default.
const DefaultNeutralChroma = 10.0

// Validate checks that the coordinates are within their documented bounds.
func (c LCh) Validate() error {
	if c.L < 0 || c.L > 100 {
		return fmt.Errorf("color: L out of bounds: %g", c.L)
	}
	if c.C < 0 {
		return fmt.Errorf("color: C out of bounds: %g", c.C)
	}
	if c.H < 0 || c.H >= 360 {
		return fmt.Errorf("color: h out of bounds: %g", c.H)
	}
	return nil
}

// IsNeutral reports whether c has so little chroma, or such extreme
// lightness, that it reads as a neutral (gray/black/white) rather than a
// hued color. neutralChroma is the ruleset-configured threshold; pass
// DefaultNeutralChroma when the ruleset does not override it.
func (c LCh) IsNeutral(neutralChroma float64) bool {
	if neutralChroma <= 0 {
		neutralChroma = DefaultNeutralChroma
	}
	if c.C < neutralChroma {
		return true
	}
	return c.L <= 2 || c.L >= 98
}

// toLab converts LCh to Lab, the coordinate system CIEDE2000 is defined over.
func (c LCh) toLab() (l, a, b float64) {
	rad := c.H * math.Pi / 180
	return c.L, c.C * math.Cos(rad), c.C * math.Sin(rad)
}
