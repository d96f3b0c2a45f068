package well

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hcswell/internal/models"
	"hcswell/pkg/assembly"
)

// PlateOptions selects what BuildPlate builds for every well
type PlateOptions struct {
	// Channels to assemble, in output order
	Channels []string

	// Strategy places the fields of each well
	Strategy assembly.Strategy

	// ZStack selects BuildCZYX instead of BuildCYX
	ZStack bool

	// NumCores bounds how many wells are built at once; 0 uses all CPUs
	NumCores int
}

// BuildPlate builds every well found in records. Wells are independent and
// are built concurrently; results are returned in natural well order. The
// first failing well cancels the remaining ones.
func BuildPlate(ctx context.Context, b *Builder, records []models.ImageRecord, opts PlateOptions) ([]*Result, error) {
	wells := models.Wells(records)
	if len(wells) == 0 {
		return nil, fmt.Errorf("%w: no wells", models.ErrEmptyInput)
	}
	groups := models.GroupByWell(records)

	limit := opts.NumCores
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	results := make([]*Result, len(wells))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, name := range wells {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			var res *Result
			var err error
			if opts.ZStack {
				res, err = b.BuildCZYX(groups[name], opts.Channels, opts.Strategy)
			} else {
				res, err = b.BuildCYX(groups[name], opts.Channels, opts.Strategy)
			}
			if err != nil {
				return fmt.Errorf("well %s: %w", name, err)
			}

			b.logger.Info("built well",
				zap.String("well", name),
				zap.Ints("shape", res.Image.Shape()))
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
