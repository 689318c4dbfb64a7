// Package frame holds the sensor frame types routed through the mapping
// pipelines. Frames double as reusable device buffers: the orchestrator
// sizes them lazily on first use and overwrites them in place afterwards,
// so returned references stay valid only until the next call that writes
// the same buffer.
package frame

import "github.com/pkg/errors"

// Depth is a dense depth frame. Values are meters along the optical axis;
// zero or negative means no return.
type Depth struct {
	width  int
	height int
	data   []float32
}

// NewDepth returns an allocated depth frame.
func NewDepth(width, height int) *Depth {
	d := &Depth{}
	d.EnsureSize(width, height)
	return d
}

// EnsureSize resizes the frame, reusing the backing storage when it is
// already large enough.
func (d *Depth) EnsureSize(width, height int) {
	d.width = width
	d.height = height
	if cap(d.data) < width*height {
		d.data = make([]float32, width*height)
		return
	}
	d.data = d.data[:width*height]
}

// HasData reports whether the frame has been sized.
func (d *Depth) HasData() bool { return d.width > 0 && d.data != nil }

// Width returns the frame width in pixels.
func (d *Depth) Width() int { return d.width }

// Height returns the frame height in pixels.
func (d *Depth) Height() int { return d.height }

// At returns the depth at a pixel.
func (d *Depth) At(x, y int) float32 { return d.data[y*d.width+x] }

// Set writes the depth at a pixel.
func (d *Depth) Set(x, y int, v float32) { d.data[y*d.width+x] = v }

// Fill sets every pixel to v.
func (d *Depth) Fill(v float32) {
	for i := range d.data {
		d.data[i] = v
	}
}

// RGB is a packed color sample.
type RGB struct {
	R, G, B uint8
}

// Color is a dense color frame.
type Color struct {
	width  int
	height int
	data   []RGB
}

// NewColor returns an allocated color frame.
func NewColor(width, height int) *Color {
	c := &Color{}
	c.EnsureSize(width, height)
	return c
}

// EnsureSize resizes the frame, reusing the backing storage when it is
// already large enough.
func (c *Color) EnsureSize(width, height int) {
	c.width = width
	c.height = height
	if cap(c.data) < width*height {
		c.data = make([]RGB, width*height)
		return
	}
	c.data = c.data[:width*height]
}

// HasData reports whether the frame has been sized.
func (c *Color) HasData() bool { return c.width > 0 && c.data != nil }

// Width returns the frame width in pixels.
func (c *Color) Width() int { return c.width }

// Height returns the frame height in pixels.
func (c *Color) Height() int { return c.height }

// At returns the color at a pixel.
func (c *Color) At(x, y int) RGB { return c.data[y*c.width+x] }

// Set writes the color at a pixel.
func (c *Color) Set(x, y int, v RGB) { c.data[y*c.width+x] = v }

// Fill sets every pixel to v.
func (c *Color) Fill(v RGB) {
	for i := range c.data {
		c.data[i] = v
	}
}

// Mono is a single-channel frame used for masks. Zero means unmasked,
// anything greater means masked.
type Mono struct {
	width  int
	height int
	data   []uint8
}

// NewMono returns an allocated mono frame.
func NewMono(width, height int) *Mono {
	m := &Mono{}
	m.EnsureSize(width, height)
	return m
}

// EnsureSize resizes the frame, reusing the backing storage when it is
// already large enough.
func (m *Mono) EnsureSize(width, height int) {
	m.width = width
	m.height = height
	if cap(m.data) < width*height {
		m.data = make([]uint8, width*height)
		return
	}
	m.data = m.data[:width*height]
}

// HasData reports whether the frame has been sized.
func (m *Mono) HasData() bool { return m.width > 0 && m.data != nil }

// Width returns the frame width in pixels.
func (m *Mono) Width() int { return m.width }

// Height returns the frame height in pixels.
func (m *Mono) Height() int { return m.height }

// At returns the value at a pixel.
func (m *Mono) At(x, y int) uint8 { return m.data[y*m.width+x] }

// Set writes the value at a pixel.
func (m *Mono) Set(x, y int, v uint8) { m.data[y*m.width+x] = v }

// Fill sets every pixel to v.
func (m *Mono) Fill(v uint8) {
	for i := range m.data {
		m.data[i] = v
	}
}

// CheckSameSize errors when two frame dimension pairs differ. Used at the
// masking boundary, where a mismatch means the caller wired up the wrong
// mask for a frame.
func CheckSameSize(aw, ah, bw, bh int) error {
	if aw != bw || ah != bh {
		return errors.Errorf("frame dimensions don't match: (%d,%d) != (%d,%d)", aw, ah, bw, bh)
	}
	return nil
}
