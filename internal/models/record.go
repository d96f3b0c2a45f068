package models

import (
	"sort"
	"strconv"
	"strings"
)

// ImageRecord represents a single source image as produced by file discovery
type ImageRecord struct {
	// Well is the plate position, e.g. "E07"
	Well string `yaml:"well"`

	// Field is the site label within the well, e.g. "Site 2"
	Field string `yaml:"field"`

	// Channel is the channel id, e.g. "w1"
	Channel string `yaml:"channel"`

	// Z is the z-index of the plane; nil for a 2D acquisition
	Z *int `yaml:"z,omitempty"`

	// Path is an opaque handle to the pixel data
	Path string `yaml:"path"`

	// RawMetadata is the metadata dictionary reported by the decoder
	RawMetadata RawMetadata `yaml:"metadata,omitempty"`
}

// Is3D reports whether the record is a plane of a z-stack
func (r ImageRecord) Is3D() bool {
	return r.Z != nil
}

// ZIndex returns the z-index, or 0 for a 2D record
func (r ImageRecord) ZIndex() int {
	if r.Z == nil {
		return 0
	}
	return *r.Z
}

// IntPtr is a convenience for building records with a z-index
func IntPtr(v int) *int {
	return &v
}

// RawMetadata is a string-keyed metadata dictionary from the image decoder.
type RawMetadata map[string]any

// String returns the value under key as a string.
func (m RawMetadata) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

// Float returns the value under key as a float64. Numeric strings are parsed.
func (m RawMetadata) Float(key string) (float64, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Bool returns the value under key as a bool. MetaSeries writes "On"/"Off".
func (m RawMetadata) Bool(key string) (bool, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "on", "true", "yes", "1":
			return true, true
		case "off", "false", "no", "0":
			return false, true
		}
	}
	return false, false
}

// Merge returns a new dictionary with the entries of other laid over m
func (m RawMetadata) Merge(other RawMetadata) RawMetadata {
	out := make(RawMetadata, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// FilterChannels keeps records whose channel is one of channels, preserving order
func FilterChannels(records []ImageRecord, channels []string) []ImageRecord {
	keep := make(map[string]bool, len(channels))
	for _, ch := range channels {
		keep[ch] = true
	}
	var out []ImageRecord
	for _, r := range records {
		if keep[r.Channel] {
			out = append(out, r)
		}
	}
	return out
}

// Only2D keeps records without a z-index
func Only2D(records []ImageRecord) []ImageRecord {
	var out []ImageRecord
	for _, r := range records {
		if !r.Is3D() {
			out = append(out, r)
		}
	}
	return out
}

// Only3D keeps records with a z-index
func Only3D(records []ImageRecord) []ImageRecord {
	var out []ImageRecord
	for _, r := range records {
		if r.Is3D() {
			out = append(out, r)
		}
	}
	return out
}

// GroupByWell partitions records by well, preserving record order inside each group
func GroupByWell(records []ImageRecord) map[string][]ImageRecord {
	groups := make(map[string][]ImageRecord)
	for _, r := range records {
		groups[r.Well] = append(groups[r.Well], r)
	}
	return groups
}

// Wells returns the distinct wells in natural order
func Wells(records []ImageRecord) []string {
	seen := make(map[string]bool)
	var wells []string
	for _, r := range records {
		if !seen[r.Well] {
			seen[r.Well] = true
			wells = append(wells, r.Well)
		}
	}
	sort.SliceStable(wells, func(i, j int) bool {
		return NaturalLess(wells[i], wells[j])
	})
	return wells
}

// NaturalLess orders labels by their text and numeric runs, so that
// "Site 2" sorts before "Site 10". Labels that differ only in how a number
// is written ("Site 01", "Site 1") fall back to byte order.
func NaturalLess(a, b string) bool {
	if c := naturalCompare(a, b); c != 0 {
		return c < 0
	}
	return a < b
}

func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		ca, cb := a[0], b[0]
		if isDigit(ca) && isDigit(cb) {
			na, restA := leadingNumber(a)
			nb, restB := leadingNumber(b)
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
			a, b = restA, restB
			continue
		}
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		a, b = a[1:], b[1:]
	}
	return len(a) - len(b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// leadingNumber splits off the run of digits at the start of s
func leadingNumber(s string) (uint64, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	n, err := strconv.ParseUint(s[:i], 10, 64)
	if err != nil {
		// Overlong runs still order consistently by length
		n = ^uint64(0)
	}
	return n, s[i:]
}
