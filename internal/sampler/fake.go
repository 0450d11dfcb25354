package sampler

// FakeSampler is a test double that returns scripted raw samples.
type FakeSampler struct {
	// Samples contains scripted readings. Each call to Poll() consumes the
	// next one.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool
}

// Sample is one scripted Poll result.
type Sample struct {
	Raw     uint32
	Missing bool // true = no sample ready this tick
}

// NewFakeSampler creates a FakeSampler with the given samples.
func NewFakeSampler(samples []Sample) *FakeSampler {
	return &FakeSampler{Samples: samples}
}

// Poll returns the next scripted sample.
// Once samples are exhausted, no further samples are reported.
func (f *FakeSampler) Poll() (uint32, bool) {
	if f.index >= len(f.Samples) {
		return 0, false
	}

	s := f.Samples[f.index]
	f.index++
	if s.Missing {
		return 0, false
	}
	return s.Raw, true
}

// Remaining returns the number of scripted samples not yet consumed.
func (f *FakeSampler) Remaining() int {
	return len(f.Samples) - f.index
}

// Close marks the sampler as closed.
func (f *FakeSampler) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the sampler to the beginning of samples.
func (f *FakeSampler) Reset() {
	f.index = 0
	f.Closed = false
}

// Repeat returns n copies of raw.
func Repeat(raw uint32, n int) []Sample {
	out := make([]Sample, n)
	for i := range out {
		out[i] = Sample{Raw: raw}
	}
	return out
}

// Gap returns n ticks without a sample.
func Gap(n int) []Sample {
	out := make([]Sample, n)
	for i := range out {
		out[i] = Sample{Missing: true}
	}
	return out
}
