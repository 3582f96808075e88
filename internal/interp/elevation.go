package interp

import (
	"context"
	"log"
	"math"

	"github.com/i474232898/grid-point-interpolation/internal/grid"
	"github.com/i474232898/grid-point-interpolation/internal/weather"
)

// ElevationAdjusted is the EA method: the nearest cell's sample with its
// temperature moved from the sample elevation to the query elevation using
// StationLapseRate. The query elevation is the point's elevation or, when
// absent, the request's ZMax.
type ElevationAdjusted struct {
	cfg       Config
	retriever weather.Retriever
}

// NewElevationAdjusted creates an ElevationAdjusted interpolator.
func NewElevationAdjusted(cfg Config, retriever weather.Retriever) *ElevationAdjusted {
	return &ElevationAdjusted{cfg: cfg, retriever: retriever}
}

// Interpolate implements Interpolator.
func (e *ElevationAdjusted) Interpolate(ctx context.Context, g *grid.Grid, req Request) (weather.Series, error) {
	nearest, err := grid.FindNearestCell(req.Point, g)
	if err != nil {
		return weather.Series{}, err
	}
	if math.IsNaN(nearest.Elevation) {
		log.Printf("interp[%s]: nearest cell (%d,%d) has no data", req.CallID, nearest.Row, nearest.Col)
		return weather.EmptySeries(), nil
	}

	res := fetch(ctx, e.retriever, candidate{Cell: nearest}, req.Label)
	if res.err != nil {
		if ctx.Err() != nil {
			return weather.Series{}, ctx.Err()
		}
		log.Printf("interp[%s]: retrieval failed for cell (%d,%d): %v", req.CallID, nearest.Row, nearest.Col, res.err)
		return weather.EmptySeries(), nil
	}

	zq := req.ZMax
	if req.Point.Elevation != nil {
		zq = *req.Point.Elevation
	}

	var acc accumulator
	if err := acc.add(res.sample, 1, e.cfg.StationLapseRate*(zq-res.sample.Elevation)); err != nil {
		return weather.Series{}, err
	}
	return acc.series(), nil
}
