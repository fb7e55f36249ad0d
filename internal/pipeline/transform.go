package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geocode-etl/internal/etlerr"
	"github.com/sells-group/geocode-etl/pkg/geocode"
)

// Transformer geocodes the street address of each row.
type Transformer struct {
	geocoder    geocode.Client
	concurrency int
}

// NewTransformer creates a Transformer issuing at most concurrency geocoding
// requests at a time. Values below 1 mean one at a time.
func NewTransformer(gc geocode.Client, concurrency int) *Transformer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Transformer{geocoder: gc, concurrency: concurrency}
}

// Transform projects STREET_ADDRESS from every row and attaches its EWKT
// point. Output order matches input order. The first failure cancels the
// remaining requests and no rows are returned.
func (t *Transformer) Transform(ctx context.Context, rows []Row) ([]AugmentedRow, error) {
	if len(rows) == 0 {
		return []AugmentedRow{}, nil
	}

	addresses := make([]string, len(rows))
	for i, row := range rows {
		v, ok := row.Get(SourceAddressColumn)
		if !ok {
			return nil, etlerr.Errorf(etlerr.ErrQuery, "pipeline: row %d has no %s column", i, SourceAddressColumn)
		}
		addresses[i] = toText(v)
	}

	log := zap.L().With(zap.String("component", "pipeline.transform"))
	out := make([]AugmentedRow, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency)
	for i, addr := range addresses {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			coord, err := t.geocoder.Geocode(gctx, addr)
			if err != nil {
				log.Error("geocoding failed",
					zap.Int("row", i),
					zap.String("address", addr),
					zap.String("kind", etlerr.Label(err)),
					zap.Error(err),
				)
				return err
			}
			out[i] = AugmentedRow{
				StreetAddress: addr,
				Geo:           geocode.FormatEWKT(coord),
				Coordinate:    coord,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info("geocoded rows", zap.Int("rows", len(out)), zap.Int("concurrency", t.concurrency))
	return out, nil
}
