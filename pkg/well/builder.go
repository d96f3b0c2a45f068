// Package well builds stitched multi-channel well images together with their
// histograms, metadata and ROI tables.
//
// A build is a single pass over the records of one well: load the planes,
// resolve the field layout once, optionally project z-stacks, assemble every
// channel onto the shared canvas, then derive metadata, histograms and ROI
// tables from the result.
package well

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"hcswell/internal/models"
	"hcswell/pkg/assembly"
	"hcswell/pkg/histogram"
	"hcswell/pkg/layout"
	"hcswell/pkg/metadata"
	"hcswell/pkg/projection"
	"hcswell/pkg/roi"
)

// Source loads the pixel data and decoded metadata of one record
type Source interface {
	Load(rec models.ImageRecord) (*models.Plane, models.RawMetadata, error)
}

// SourceFunc adapts a function to the Source interface
type SourceFunc func(rec models.ImageRecord) (*models.Plane, models.RawMetadata, error)

// Load calls f(rec)
func (f SourceFunc) Load(rec models.ImageRecord) (*models.Plane, models.RawMetadata, error) {
	return f(rec)
}

// Result is everything derived for one well
type Result struct {
	Well string

	// Image is (C, Y, X) or (C, Z, Y, X), channels in request order
	Image *models.Stack

	// Histograms holds one histogram per channel of the stitched image
	Histograms []*histogram.Histogram

	// ChannelMetadata is in request order
	ChannelMetadata []metadata.ChannelMetadata

	Metadata metadata.WellMetadata

	ROITables *roi.Tables
}

// Builder assembles well images from a Source. A Builder holds no state
// between builds; its Source must be safe for concurrent use when wells are
// built in parallel.
type Builder struct {
	source     Source
	logger     *zap.Logger
	projection projection.Method
}

// Option configures a Builder
type Option func(*Builder)

// WithLogger sets the logger used for build diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithProjection makes BuildCYX take z-stack records and reduce each
// field's stack with the given method before assembly.
func WithProjection(m projection.Method) Option {
	return func(b *Builder) {
		b.projection = m
	}
}

// NewBuilder creates a builder reading planes from source
func NewBuilder(source Source, opts ...Option) *Builder {
	b := &Builder{
		source: source,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// image is a loaded record
type image struct {
	rec   models.ImageRecord
	field string
	plane *models.Plane
}

// loadedWell holds the loaded images of one well, grouped by channel
type loadedWell struct {
	name      string
	records   []models.ImageRecord
	byChannel map[string][]image
	placement *assembly.Placement
}

// BuildCYX assembles a 2D well image with axes (c, y, x).
//
// Without a projection option only records without a z-index qualify. With
// WithProjection, only z-stack records qualify and each field's stack is
// projected first; the method is recorded in the channel metadata.
func (b *Builder) BuildCYX(records []models.ImageRecord, channels []string, strategy assembly.Strategy) (*Result, error) {
	project := b.projection != 0
	if project {
		records = models.Only3D(records)
	} else {
		records = models.Only2D(records)
	}

	w, err := b.prepare(records, channels, strategy)
	if err != nil {
		return nil, err
	}
	p := w.placement

	res := &Result{
		Well:            w.name,
		Image:           models.NewStack(len(channels), 1, p.Height, p.Width, false),
		Histograms:      make([]*histogram.Histogram, len(channels)),
		ChannelMetadata: make([]metadata.ChannelMetadata, len(channels)),
	}

	for ci, ch := range channels {
		imgs := w.byChannel[ch]

		var planes map[string]*models.Plane
		if project {
			planes, err = b.projectFields(imgs)
			if err != nil {
				return nil, fmt.Errorf("well %s channel %s: %w", w.name, ch, err)
			}
		} else {
			planes = b.fieldPlanes(w.name, ch, imgs)
		}

		canvas, err := p.Assemble(planes)
		if err != nil {
			return nil, fmt.Errorf("well %s channel %s: %w", w.name, ch, err)
		}
		if err := res.Image.SetPlane(ci, 0, canvas); err != nil {
			return nil, err
		}

		res.Histograms[ci] = histogram.New(canvas.Pix)
		res.ChannelMetadata[ci] = metadata.Channel(imgs[0].rec.RawMetadata)
		if project {
			res.ChannelMetadata[ci].ZProjectionMethod = b.projection.String()
		}
		res.Metadata.Consolidate(res.Image.PixelType(), channelCalibration(imgs[0], p.Layout))

		b.logger.Debug("assembled channel",
			zap.String("well", w.name),
			zap.String("channel", ch),
			zap.Int("fields", len(planes)),
			zap.Uint16("min", res.Histograms[ci].Min()),
			zap.Uint16("max", res.Histograms[ci].Max()))
	}

	res.ROITables = roi.Build(p, roi.PlaceholderLenZ)
	return res, nil
}

// BuildCZYX assembles a z-stack well image with axes (c, z, y, x). Every
// z-index is assembled with the same placement.
func (b *Builder) BuildCZYX(records []models.ImageRecord, channels []string, strategy assembly.Strategy) (*Result, error) {
	w, err := b.prepare(models.Only3D(records), channels, strategy)
	if err != nil {
		return nil, err
	}
	p := w.placement
	zs := p.Layout.ZIndices

	step, err := zStep(w, channels[0])
	if err != nil {
		return nil, fmt.Errorf("well %s: %w", w.name, err)
	}

	res := &Result{
		Well:            w.name,
		Image:           models.NewStack(len(channels), len(zs), p.Height, p.Width, true),
		Histograms:      make([]*histogram.Histogram, len(channels)),
		ChannelMetadata: make([]metadata.ChannelMetadata, len(channels)),
	}

	for ci, ch := range channels {
		imgs := w.byChannel[ch]
		res.Histograms[ci] = histogram.New(nil)
		for zi, z := range zs {
			canvas, err := p.Assemble(b.fieldPlanes(w.name, ch, planesAtZ(imgs, z)))
			if err != nil {
				return nil, fmt.Errorf("well %s channel %s z %d: %w", w.name, ch, z, err)
			}
			if err := res.Image.SetPlane(ci, zi, canvas); err != nil {
				return nil, err
			}
			res.Histograms[ci].Combine(histogram.New(canvas.Pix))
		}

		res.ChannelMetadata[ci] = metadata.Channel(imgs[0].rec.RawMetadata)
		res.Metadata.Consolidate(res.Image.PixelType(), channelCalibration(imgs[0], p.Layout))

		b.logger.Debug("assembled channel stack",
			zap.String("well", w.name),
			zap.String("channel", ch),
			zap.Int("planes", len(zs)))
	}
	res.Metadata.SetZScaling(step)

	lenZ := step * float64(zs[len(zs)-1]-zs[0])
	res.ROITables = roi.Build(p, lenZ)
	return res, nil
}

// prepare loads the qualifying images of one well and computes the shared
// placement before any channel is assembled.
func (b *Builder) prepare(records []models.ImageRecord, channels []string, strategy assembly.Strategy) (*loadedWell, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: no channels requested", models.ErrEmptyInput)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: channels %v", models.ErrEmptyInput, channels)
	}

	w := &loadedWell{
		name:      records[0].Well,
		byChannel: make(map[string][]image),
	}

	present := make(map[string]bool)
	for _, rec := range records {
		if rec.Well != w.name {
			return nil, fmt.Errorf("records span wells %s and %s", w.name, rec.Well)
		}
		present[rec.Channel] = true
	}
	for _, ch := range channels {
		if !present[ch] {
			return nil, fmt.Errorf("%w: %s in well %s", models.ErrMissingChannel, ch, w.name)
		}
	}

	for _, rec := range models.FilterChannels(records, channels) {
		plane, raw, err := b.source.Load(rec)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", rec.Path, err)
		}
		rec.RawMetadata = rec.RawMetadata.Merge(raw)
		img := image{rec: rec, field: layout.FieldLabel(rec), plane: plane}
		w.byChannel[rec.Channel] = append(w.byChannel[rec.Channel], img)
	}

	for _, ch := range channels {
		imgs := w.byChannel[ch]
		// Input order must not matter: the first image of a channel is the
		// first field at its lowest z; duplicates fall back to path order.
		sort.SliceStable(imgs, func(i, j int) bool {
			if imgs[i].field != imgs[j].field {
				return models.NaturalLess(imgs[i].field, imgs[j].field)
			}
			if zi, zj := imgs[i].rec.ZIndex(), imgs[j].rec.ZIndex(); zi != zj {
				return zi < zj
			}
			return imgs[i].rec.Path < imgs[j].rec.Path
		})
		for _, img := range imgs {
			w.records = append(w.records, img.rec)
		}
	}

	extents := make(map[string]layout.Extent)
	for _, ch := range channels {
		for _, img := range w.byChannel[ch] {
			if _, ok := extents[img.field]; !ok {
				extents[img.field] = layout.Extent{Width: img.plane.Width, Height: img.plane.Height}
			}
		}
	}

	l, err := layout.Resolve(strategy.Mode, w.records, extents)
	if err != nil {
		return nil, fmt.Errorf("well %s: %w", w.name, err)
	}
	w.placement, err = strategy.Place(l)
	if err != nil {
		return nil, fmt.Errorf("well %s: %w", w.name, err)
	}

	b.logger.Debug("resolved layout",
		zap.String("well", w.name),
		zap.String("strategy", strategy.Name),
		zap.Int("fields", len(l.Fields)),
		zap.Int("z_planes", len(l.ZIndices)),
		zap.Int("width", w.placement.Width),
		zap.Int("height", w.placement.Height))
	return w, nil
}

// fieldPlanes keys planes by field, keeping the first plane of each field
func (b *Builder) fieldPlanes(well, channel string, imgs []image) map[string]*models.Plane {
	planes := make(map[string]*models.Plane, len(imgs))
	for _, img := range imgs {
		if _, ok := planes[img.field]; ok {
			b.logger.Warn("duplicate plane ignored",
				zap.String("well", well),
				zap.String("channel", channel),
				zap.String("field", img.field),
				zap.String("path", img.rec.Path))
			continue
		}
		planes[img.field] = img.plane
	}
	return planes
}

// projectFields reduces each field's z-stack to a single plane
func (b *Builder) projectFields(imgs []image) (map[string]*models.Plane, error) {
	stacks := make(map[string][]*models.Plane)
	var order []string
	for _, img := range imgs {
		if _, ok := stacks[img.field]; !ok {
			order = append(order, img.field)
		}
		stacks[img.field] = append(stacks[img.field], img.plane)
	}

	planes := make(map[string]*models.Plane, len(stacks))
	for _, field := range order {
		p, err := projection.Project(b.projection, stacks[field])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		planes[field] = p
	}
	return planes, nil
}

func planesAtZ(imgs []image, z int) []image {
	var out []image
	for _, img := range imgs {
		if img.rec.ZIndex() == z {
			out = append(out, img)
		}
	}
	return out
}

// channelCalibration reads a channel's calibration, falling back to the
// layout's when the channel does not record one.
func channelCalibration(img image, l *layout.Layout) metadata.Calibration {
	cal, err := metadata.SpatialCalibration(img.rec.RawMetadata)
	if err != nil {
		return l.Calibration
	}
	return cal
}
