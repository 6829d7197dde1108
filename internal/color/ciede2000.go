package color

import "math"

// DeltaE2000 computes the CIEDE2000 perceptual color difference between a
// and b, per Sharma, Wu & Dalal (2005), "The CIEDE2000 Color-Difference
// Formula: Implementation Notes, Supplementary Test Data, and Mathematical
// Observations". The reference test pairs from that paper are exercised in
// ciede2000_test.go.
func DeltaE2000(a, b LCh) float64 {
	l1, a1, b1 := a.toLab()
	l2, a2, b2 := b.toLab()

	const kl, kc, kh = 1.0, 1.0, 1.0

	c1 := math.Hypot(a1, b1)
	c2 := math.Hypot(a2, b2)
	cBar := (c1 + c2) / 2

	c7 := math.Pow(cBar, 7)
	g := 0.5 * (1 - math.Sqrt(c7/(c7+pow25to7)))

	a1p := a1 * (1 + g)
	a2p := a2 * (1 + g)

	c1p := math.Hypot(a1p, b1)
	c2p := math.Hypot(a2p, b2)

	h1p := hueAngle(a1p, b1)
	h2p := hueAngle(a2p, b2)

	deltaLp := l2 - l1
	deltaCp := c2p - c1p

	var deltahp float64
	switch {
	case c1p*c2p == 0:
		deltahp = 0
	case math.Abs(h2p-h1p) <= 180:
		deltahp = h2p - h1p
	case h2p-h1p > 180:
		deltahp = h2p - h1p - 360
	default:
		deltahp = h2p - h1p + 360
	}
	deltaHp := 2 * math.Sqrt(c1p*c2p) * math.Sin(radians(deltahp)/2)

	lBarp := (l1 + l2) / 2
	cBarp := (c1p + c2p) / 2

	var hBarp float64
	switch {
	case c1p*c2p == 0:
		hBarp = h1p + h2p
	case math.Abs(h1p-h2p) <= 180:
		hBarp = (h1p + h2p) / 2
	case h1p+h2p < 360:
		hBarp = (h1p+h2p+360)/2
	default:
		hBarp = (h1p+h2p-360)/2
	}

	t := 1 - 0.17*math.Cos(radians(hBarp-30)) +
		0.24*math.Cos(radians(2*hBarp)) +
		0.32*math.Cos(radians(3*hBarp+6)) -
		0.20*math.Cos(radians(4*hBarp-63))

	deltaTheta := 30 * math.Exp(-math.Pow((hBarp-275)/25, 2))

	cBarp7 := math.Pow(cBarp, 7)
	rc := 2 * math.Sqrt(cBarp7/(cBarp7+pow25to7))

	sl := 1 + (0.015*math.Pow(lBarp-50, 2))/math.Sqrt(20+math.Pow(lBarp-50, 2))
	sc := 1 + 0.045*cBarp
	sh := 1 + 0.015*cBarp*t

	rt := -math.Sin(radians(2*deltaTheta)) * rc

	lTerm := deltaLp / (kl * sl)
	cTerm := deltaCp / (kc * sc)
	hTerm := deltaHp / (kh * sh)

	return math.Sqrt(lTerm*lTerm + cTerm*cTerm + hTerm*hTerm + rt*cTerm*hTerm)
}

const pow25to7 = 6103515625 // 25^7, used by the CIEDE2000 G and R_C terms.

func hueAngle(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 0
	}
	h := math.Atan2(b, a) * 180 / math.Pi
	if h < 0 {
		h += 360
	}
	return h
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// HueDelta returns the shortest angular distance between two hues, in
// [0,180]. Mirrors the HueDistance helper the teacher used for accent
// sorting, generalized to operate on LCh hue directly.
func HueDelta(a, b LCh) float64 {
	diff := math.Abs(a.H - b.H)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

// Relation classifies the hue relationship between two colors.
type Relation string

const (
	RelationSame          Relation = "same"
	RelationAnalogous     Relation = "analogous"
	RelationTriadic       Relation = "triadic"
	RelationComplementary Relation = "complementary"
	RelationUnrelated     Relation = "unrelated"
)

// RelationOf classifies a and b per §4.1: same (~0°), analogous (≤30°),
// triadic (110–130°), complementary (≥150°), else unrelated. Neutrals have
// no meaningful hue relation and are handled separately by callers via
// LCh.IsNeutral.
func RelationOf(a, b LCh) Relation {
	d := HueDelta(a, b)
	switch {
	case d < 1:
		return RelationSame
	case d <= 30:
		return RelationAnalogous
	case d >= 110 && d <= 130:
		return RelationTriadic
	case d >= 150:
		return RelationComplementary
	default:
		return RelationUnrelated
	}
}

// CircularHueStdDev returns the circular standard deviation (in degrees) of
// a set of hues, used by PaletteHarmony to scale its base score by hue
// spread. Returns 0 for fewer than 2 hues.
func CircularHueStdDev(hues []float64) float64 {
	if len(hues) < 2 {
		return 0
	}
	var sumSin, sumCos float64
	for _, h := range hues {
		r := radians(h)
		sumSin += math.Sin(r)
		sumCos += math.Cos(r)
	}
	n := float64(len(hues))
	meanSin := sumSin / n
	meanCos := sumCos / n
	r := math.Hypot(meanSin, meanCos)
	if r > 1 {
		r = 1
	}
	// Circular standard deviation per Mardia & Jupp, in degrees.
	return math.Sqrt(-2*math.Log(r)) * 180 / math.Pi
}
