package gpio

import "errors"

// FakeReader is a test double that returns scripted input levels.
type FakeReader struct {
	// Samples contains scripted levels to return.
	// Each call to Read() consumes the next sample.
	Samples []Levels

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Levels) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (Levels, error) {
	if f.ReadError != nil {
		return Levels{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return Levels{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeWriter records every output write.
type FakeWriter struct {
	// Writes contains every successfully applied Outputs, in order.
	Writes []Outputs

	// Order contains the individual line writes in the order a real
	// driver would perform them.
	Order []string

	// WriteError, if set, will be returned by Write()
	WriteError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeWriter creates an empty FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// Write records the outputs.
func (f *FakeWriter) Write(o Outputs) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	for _, ol := range writeOrder(o) {
		state := "off"
		if ol.on {
			state = "on"
		}
		f.Order = append(f.Order, ol.out.String()+" "+state)
	}
	f.Writes = append(f.Writes, o)
	return nil
}

// Last returns the most recent write, or all-off if nothing was written.
func (f *FakeWriter) Last() Outputs {
	if len(f.Writes) == 0 {
		return Outputs{}
	}
	return f.Writes[len(f.Writes)-1]
}

// Close records an all-off write and marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.Writes = append(f.Writes, Outputs{})
	f.Closed = true
	return nil
}
