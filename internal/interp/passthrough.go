package interp

import (
	"context"
	"log"
	"math"

	"github.com/i474232898/grid-point-interpolation/internal/grid"
	"github.com/i474232898/grid-point-interpolation/internal/weather"
)

// Passthrough is the onecell method: the sample retrieved at the query
// coordinate, returned as is.
type Passthrough struct {
	retriever weather.Retriever
}

// NewPassthrough creates a Passthrough interpolator.
func NewPassthrough(retriever weather.Retriever) *Passthrough {
	return &Passthrough{retriever: retriever}
}

// Interpolate implements Interpolator.
func (p *Passthrough) Interpolate(ctx context.Context, g *grid.Grid, req Request) (weather.Series, error) {
	nearest, err := grid.FindNearestCell(req.Point, g)
	if err != nil {
		return weather.Series{}, err
	}
	if math.IsNaN(nearest.Elevation) {
		log.Printf("interp[%s]: nearest cell (%d,%d) has no data", req.CallID, nearest.Row, nearest.Col)
		return weather.EmptySeries(), nil
	}

	s, err := p.retriever.Retrieve(ctx, req.Point.Easting, req.Point.Northing, req.Label)
	if err == nil {
		err = s.Validate()
	}
	if err != nil {
		if ctx.Err() != nil {
			return weather.Series{}, ctx.Err()
		}
		log.Printf("interp[%s]: retrieval failed at query point: %v", req.CallID, err)
		return weather.EmptySeries(), nil
	}
	return weather.SeriesFromSample(s), nil
}
