// Package histogram counts pixel intensities over the full 16-bit range.
package histogram

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Bins is the number of bins, one per uint16 intensity
const Bins = math.MaxUint16 + 1

// Histogram holds one count per intensity value. Counts[v] is the number of
// pixels with intensity v.
type Histogram struct {
	Counts []uint64
}

// New counts the intensities of pix
func New(pix []uint16) *Histogram {
	h := &Histogram{Counts: make([]uint64, Bins)}
	h.Add(pix)
	return h
}

// Add counts more pixels into the histogram
func (h *Histogram) Add(pix []uint16) {
	for _, v := range pix {
		h.Counts[v]++
	}
}

// Combine adds the counts of other into h
func (h *Histogram) Combine(other *Histogram) {
	for i, c := range other.Counts {
		h.Counts[i] += c
	}
}

// Count returns the number of pixels counted
func (h *Histogram) Count() uint64 {
	var n uint64
	for _, c := range h.Counts {
		n += c
	}
	return n
}

// Min returns the smallest intensity present, or 0 for an empty histogram
func (h *Histogram) Min() uint16 {
	for i, c := range h.Counts {
		if c > 0 {
			return uint16(i)
		}
	}
	return 0
}

// Max returns the largest intensity present, or 0 for an empty histogram
func (h *Histogram) Max() uint16 {
	for i := len(h.Counts) - 1; i >= 0; i-- {
		if h.Counts[i] > 0 {
			return uint16(i)
		}
	}
	return 0
}

// weighted returns the occupied intensities with their counts as weights
func (h *Histogram) weighted() (values, weights []float64) {
	for i, c := range h.Counts {
		if c > 0 {
			values = append(values, float64(i))
			weights = append(weights, float64(c))
		}
	}
	return values, weights
}

// Mean returns the mean intensity, or NaN for an empty histogram
func (h *Histogram) Mean() float64 {
	values, weights := h.weighted()
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, weights)
}

// StdDev returns the standard deviation of the intensities
func (h *Histogram) StdDev() float64 {
	values, weights := h.weighted()
	if len(values) == 0 {
		return math.NaN()
	}
	if len(values) == 1 {
		return 0
	}
	return stat.StdDev(values, weights)
}

// Quantile returns the empirical p-quantile of the intensities
func (h *Histogram) Quantile(p float64) float64 {
	values, weights := h.weighted()
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Quantile(p, stat.Empirical, values, weights)
}

// Sparse is a compact form of the histogram: Bins[i] counts intensity Offset+i
type Sparse struct {
	Offset int      `yaml:"offset"`
	Bins   []uint64 `yaml:"bins"`
}

// Sparse trims the empty bins below Min and above Max
func (h *Histogram) Sparse() Sparse {
	if h.Count() == 0 {
		return Sparse{}
	}
	lo, hi := int(h.Min()), int(h.Max())
	bins := make([]uint64, hi-lo+1)
	copy(bins, h.Counts[lo:hi+1])
	return Sparse{Offset: lo, Bins: bins}
}
