// Package fixture writes the actuator's brightness to physical light outputs.
// Every output here satisfies logic.Output: writes are best effort, failures
// are logged once per streak and never retried or returned.
package fixture

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/fogleman/ease"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ggtrigg/touch-switch/internal/logic"
)

// Curve maps logical brightness onto emitted intensity.
type Curve string

const (
	CurveLinear Curve = "linear"
	CurveQuad   Curve = "quad"
	CurveCubic  Curve = "cubic"
)

// ParseCurve validates a curve name. Empty selects linear.
func ParseCurve(s string) (Curve, error) {
	switch c := Curve(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CurveLinear, nil
	case CurveLinear, CurveQuad, CurveCubic:
		return c, nil
	}
	return "", fmt.Errorf("unknown curve %q: expected linear, quad or cubic", s)
}

func (c Curve) fn() func(float64) float64 {
	switch c {
	case CurveQuad:
		return ease.InQuad
	case CurveCubic:
		return ease.InCubic
	}
	return ease.Linear
}

// Level applies the curve to brightness. 0 and 255 are fixed points.
func (c Curve) Level(brightness uint8) uint8 {
	t := c.fn()(float64(brightness) / 255)
	return uint8(math.Round(math.Max(0, math.Min(1, t)) * 255))
}

// Color returns the greyscale colour (r = g = b) for brightness.
func Color(brightness uint8, c Curve) colorful.Color {
	v := float64(c.Level(brightness)) / 255
	return colorful.Color{R: v, G: v, B: v}
}

// Multi fans a brightness write out to several outputs in order.
type Multi []logic.Output

// Write forwards brightness to every output.
func (m Multi) Write(brightness uint8) {
	for _, o := range m {
		o.Write(brightness)
	}
}

// failureLog reports the first failure of a streak and the recovery.
type failureLog struct {
	name    string
	failing bool
}

func (f *failureLog) observe(err error) {
	switch {
	case err != nil && !f.failing:
		log.Printf("fixture: %s write failed: %v", f.name, err)
		f.failing = true
	case err == nil && f.failing:
		log.Printf("fixture: %s write recovered", f.name)
		f.failing = false
	}
}
