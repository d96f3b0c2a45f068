package models

import "fmt"

// Plane is a single 2D 16-bit image in row-major order
type Plane struct {
	// Width and Height are the dimensions in pixels
	Width  int
	Height int

	// Pix holds Width*Height intensities, row by row
	Pix []uint16
}

// NewPlane allocates a zeroed plane
func NewPlane(width, height int) *Plane {
	return &Plane{
		Width:  width,
		Height: height,
		Pix:    make([]uint16, width*height),
	}
}

// At returns the intensity at (x, y)
func (p *Plane) At(x, y int) uint16 {
	return p.Pix[y*p.Width+x]
}

// Set writes the intensity at (x, y)
func (p *Plane) Set(x, y int, v uint16) {
	p.Pix[y*p.Width+x] = v
}

// SameShape reports whether both planes have identical extents
func (p *Plane) SameShape(o *Plane) bool {
	return p.Width == o.Width && p.Height == o.Height
}

// Clone returns a deep copy of the plane
func (p *Plane) Clone() *Plane {
	out := &Plane{Width: p.Width, Height: p.Height, Pix: make([]uint16, len(p.Pix))}
	copy(out.Pix, p.Pix)
	return out
}

// Min returns the smallest intensity in the plane
func (p *Plane) Min() uint16 {
	if len(p.Pix) == 0 {
		return 0
	}
	m := p.Pix[0]
	for _, v := range p.Pix[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest intensity in the plane
func (p *Plane) Max() uint16 {
	var m uint16
	for _, v := range p.Pix {
		if v > m {
			m = v
		}
	}
	return m
}

// Stack is a channel-major pixel array with axes (c, [z,] y, x).
type Stack struct {
	Channels int
	Depth    int
	Height   int
	Width    int

	// HasZ marks a (c, z, y, x) array. Depth is 1 when it is false.
	HasZ bool

	Pix []uint16
}

// NewStack allocates a zeroed stack. depth is ignored unless hasZ is set.
func NewStack(channels, depth, height, width int, hasZ bool) *Stack {
	if !hasZ {
		depth = 1
	}
	return &Stack{
		Channels: channels,
		Depth:    depth,
		Height:   height,
		Width:    width,
		HasZ:     hasZ,
		Pix:      make([]uint16, channels*depth*height*width),
	}
}

// Shape returns the array shape, (C, Y, X) or (C, Z, Y, X)
func (s *Stack) Shape() []int {
	if s.HasZ {
		return []int{s.Channels, s.Depth, s.Height, s.Width}
	}
	return []int{s.Channels, s.Height, s.Width}
}

// PixelType names the element type of the array
func (s *Stack) PixelType() string {
	return "uint16"
}

// Plane returns a view onto one (channel, z) plane. The returned plane
// shares memory with the stack.
func (s *Stack) Plane(c, z int) *Plane {
	n := s.Height * s.Width
	off := (c*s.Depth + z) * n
	return &Plane{Width: s.Width, Height: s.Height, Pix: s.Pix[off : off+n : off+n]}
}

// Channel returns all pixels of one channel across every z-plane
func (s *Stack) Channel(c int) []uint16 {
	n := s.Depth * s.Height * s.Width
	return s.Pix[c*n : (c+1)*n : (c+1)*n]
}

// SetPlane copies p into the (channel, z) position
func (s *Stack) SetPlane(c, z int, p *Plane) error {
	if p.Width != s.Width || p.Height != s.Height {
		return fmt.Errorf("%w: plane %dx%d does not fit stack %dx%d",
			ErrShapeMismatch, p.Width, p.Height, s.Width, s.Height)
	}
	copy(s.Plane(c, z).Pix, p.Pix)
	return nil
}
