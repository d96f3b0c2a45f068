// Package projection reduces a z-stack of planes to a single plane.
package projection

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"hcswell/internal/models"
)

// Method is a z-projection method
type Method int

const (
	// Maximum takes the element-wise maximum across the stack
	Maximum Method = iota + 1

	// BestFocus selects the single sharpest plane of the stack
	BestFocus
)

var methodNames = map[Method]string{
	Maximum:   "Maximum",
	BestFocus: "Best Focus",
}

type projector func(planes []*models.Plane) *models.Plane

var projectors = map[Method]projector{
	Maximum:   maximum,
	BestFocus: bestFocus,
}

// String returns the name recorded in channel metadata
func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod looks up a method by its recorded name
func ParseMethod(name string) (Method, error) {
	for m, n := range methodNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: projection %q", models.ErrUnknownMethod, name)
}

// Methods returns every supported method
func Methods() []Method {
	return []Method{Maximum, BestFocus}
}

// Project reduces planes, ordered by z-index, to one plane of the same shape
func Project(m Method, planes []*models.Plane) (*models.Plane, error) {
	p, ok := projectors[m]
	if !ok {
		return nil, fmt.Errorf("%w: projection %v", models.ErrUnknownMethod, m)
	}
	if len(planes) == 0 {
		return nil, fmt.Errorf("%w: empty z-stack", models.ErrEmptyInput)
	}
	for i, plane := range planes[1:] {
		if !plane.SameShape(planes[0]) {
			return nil, fmt.Errorf("%w: plane %d is %dx%d, expected %dx%d", models.ErrShapeMismatch,
				i+1, plane.Width, plane.Height, planes[0].Width, planes[0].Height)
		}
	}
	return p(planes), nil
}

func maximum(planes []*models.Plane) *models.Plane {
	out := planes[0].Clone()
	for _, plane := range planes[1:] {
		for i, v := range plane.Pix {
			if v > out.Pix[i] {
				out.Pix[i] = v
			}
		}
	}
	return out
}

// bestFocus returns a copy of the whole plane with the highest sharpness.
// Ties go to the lowest z.
func bestFocus(planes []*models.Plane) *models.Plane {
	return planes[Sharpest(planes)].Clone()
}

// Sharpest returns the index of the plane with the highest sharpness score
func Sharpest(planes []*models.Plane) int {
	best, bestScore := 0, Sharpness(planes[0])
	for i, plane := range planes[1:] {
		if s := Sharpness(plane); s > bestScore {
			best, bestScore = i+1, s
		}
	}
	return best
}

// Sharpness scores a plane by the variance of its 4-neighbour Laplacian.
// Planes too small to have an interior score 0.
func Sharpness(p *models.Plane) float64 {
	if p.Width < 3 || p.Height < 3 {
		return 0
	}
	lap := make([]float64, 0, (p.Width-2)*(p.Height-2))
	for y := 1; y < p.Height-1; y++ {
		for x := 1; x < p.Width-1; x++ {
			c := 4 * float64(p.At(x, y))
			n := float64(p.At(x-1, y)) + float64(p.At(x+1, y)) +
				float64(p.At(x, y-1)) + float64(p.At(x, y+1))
			lap = append(lap, n-c)
		}
	}
	if len(lap) < 2 {
		return 0
	}
	return stat.Variance(lap, nil)
}
