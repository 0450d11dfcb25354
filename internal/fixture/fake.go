package fixture

// Fake records brightness writes for test assertions.
type Fake struct {
	Writes []uint8
}

// NewFake creates a Fake output.
func NewFake() *Fake {
	return &Fake{}
}

// Write records brightness.
func (f *Fake) Write(brightness uint8) {
	f.Writes = append(f.Writes, brightness)
}

// Last returns the most recent write.
func (f *Fake) Last() (uint8, bool) {
	if len(f.Writes) == 0 {
		return 0, false
	}
	return f.Writes[len(f.Writes)-1], true
}
