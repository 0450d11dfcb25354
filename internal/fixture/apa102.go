package fixture

import (
	"fmt"
	"io"

	"github.com/ggtrigg/touch-switch/internal/serialport"
)

// apa102GlobalMax is the 5-bit global brightness field at full scale.
const apa102GlobalMax = 0x1f

// APA102 drives a single APA102 LED through a byte stream, typically a
// USB-serial SPI bridge. All three colour channels carry the same level.
type APA102 struct {
	w     io.Writer
	curve Curve
	frame [12]byte
	fails failureLog
}

// NewAPA102 creates an APA102 output writing frames to w.
func NewAPA102(w io.Writer, curve Curve) *APA102 {
	return &APA102{w: w, curve: curve, fails: failureLog{name: "apa102"}}
}

// OpenAPA102 opens the serial bridge at path.
func OpenAPA102(path string, opts serialport.PortOptions, curve Curve) (*APA102, io.Closer, error) {
	port, err := serialport.Open(path, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("open apa102: %w", err)
	}
	return NewAPA102(port, curve), port, nil
}

// EncodeAPA102 builds the frame for one LED: a zero start frame, the LED frame
// (0xE0 | global brightness, blue, green, red) and a zero end frame.
func EncodeAPA102(dst *[12]byte, r, g, b uint8) {
	*dst = [12]byte{}
	dst[4] = 0xe0 | apa102GlobalMax
	dst[5] = b
	dst[6] = g
	dst[7] = r
}

// Write sends brightness as a greyscale frame.
func (a *APA102) Write(brightness uint8) {
	r, g, b := Color(brightness, a.curve).Clamped().RGB255()
	EncodeAPA102(&a.frame, r, g, b)
	_, err := a.w.Write(a.frame[:])
	a.fails.observe(err)
}
