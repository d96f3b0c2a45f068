package well

import (
	"fmt"
	"math"

	"hcswell/internal/models"
	"hcswell/pkg/metadata"
)

// defaultZStep is used for single-plane stacks that record no step
const defaultZStep = 1.0

// zStep returns the physical distance between consecutive z-indices. A
// recorded z-step wins; otherwise it is derived from the focus positions of
// the channel's first field.
func zStep(w *loadedWell, channel string) (float64, error) {
	imgs := w.byChannel[channel]
	for _, img := range imgs {
		if step, ok := metadata.ZStep(img.rec.RawMetadata); ok {
			return step, nil
		}
	}

	zs := w.placement.Layout.ZIndices
	if len(zs) < 2 {
		return defaultZStep, nil
	}

	field := imgs[0].field
	lo, hi := math.MaxInt, math.MinInt
	var loPos, hiPos float64
	for _, img := range imgs {
		if img.field != field {
			continue
		}
		pos, ok := metadata.ZPosition(img.rec.RawMetadata)
		if !ok {
			return 0, fmt.Errorf("%w: %s for field %q", models.ErrMissingMetadata, metadata.KeyZPosition, field)
		}
		z := img.rec.ZIndex()
		if z < lo {
			lo, loPos = z, pos
		}
		if z > hi {
			hi, hiPos = z, pos
		}
	}
	if hi <= lo {
		return defaultZStep, nil
	}
	return math.Abs(hiPos-loPos) / float64(hi-lo), nil
}
