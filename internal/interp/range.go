package interp

import (
	"context"
	"log"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/i474232898/grid-point-interpolation/internal/grid"
	"github.com/i474232898/grid-point-interpolation/internal/weather"
)

// Range is the PG method. It keeps the neighborhood rows and columns lying
// within RangeWindow of the query point, weights them with a cutoff Gaussian
// and retrieves each weighted cell once. Failed cells are left out.
type Range struct {
	cfg       Config
	retriever weather.Retriever
}

// NewRange creates a Range interpolator.
func NewRange(cfg Config, retriever weather.Retriever) *Range {
	return &Range{cfg: cfg, retriever: retriever}
}

// Interpolate implements Interpolator.
func (r *Range) Interpolate(ctx context.Context, g *grid.Grid, req Request) (weather.Series, error) {
	nearest, err := grid.FindNearestCell(req.Point, g)
	if err != nil {
		return weather.Series{}, err
	}
	nb, err := grid.Neighborhood(req.Point, 3, g, r.cfg.CellSize)
	if err != nil {
		return weather.Series{}, err
	}

	subset := r.inRange(nb, req.Point)
	if len(subset) == 0 {
		return weather.EmptySeries(), nil
	}

	weights := make([]float64, len(subset))
	for i, c := range subset {
		weights[i] = r.weight(c)
	}
	if floats.Sum(weights) == 0 {
		log.Printf("interp[%s]: no weighted cells in range", req.CallID)
		return weather.EmptySeries(), nil
	}
	normalize(weights)

	zq := nearest.Elevation
	if req.Point.Elevation != nil {
		zq = *req.Point.Elevation
	}

	var acc accumulator
	for i, c := range subset {
		if weights[i] == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return weather.Series{}, err
		}
		res := fetch(ctx, r.retriever, c, req.Label)
		if res.err != nil {
			log.Printf("interp[%s]: retrieval failed for cell (%d,%d), dropping it: %v",
				req.CallID, c.Row, c.Col, res.err)
			continue
		}
		offset := r.cfg.LapseRate * (zq - res.sample.Elevation)
		if err := acc.add(res.sample, weights[i], offset); err != nil {
			return weather.Series{}, err
		}
	}
	return acc.series(), nil
}

// inRange returns the distinct neighborhood cells whose row northing and
// column easting both lie within RangeWindow of p.
func (r *Range) inRange(nb [][]grid.Cell, p grid.Point) []candidate {
	var rows, cols []int
	seenRow := make(map[int]bool)
	seenCol := make(map[int]bool)
	for i := range nb {
		c := nb[i][0]
		if math.Abs(c.Northing-p.Northing) <= r.cfg.RangeWindow && !seenRow[c.Row] {
			seenRow[c.Row] = true
			rows = append(rows, i)
		}
	}
	for j := range nb[0] {
		c := nb[0][j]
		if math.Abs(c.Easting-p.Easting) <= r.cfg.RangeWindow && !seenCol[c.Col] {
			seenCol[c.Col] = true
			cols = append(cols, j)
		}
	}

	out := make([]candidate, 0, len(rows)*len(cols))
	for _, i := range rows {
		for _, j := range cols {
			c := nb[i][j]
			out = append(out, candidate{Cell: c, Distance: c.PlanarDistance(p)})
		}
	}
	return out
}

// weight is the cutoff Gaussian max(exp(-α(d/Rp)²) - exp(-α), 0). Cells with
// zero or missing elevation are treated as missing and get no weight.
func (r *Range) weight(c candidate) float64 {
	if c.Elevation == 0 || math.IsNaN(c.Elevation) {
		return 0
	}
	x := c.Distance / r.cfg.RangeRadius
	return math.Max(math.Exp(-r.cfg.RangeAlpha*x*x)-math.Exp(-r.cfg.RangeAlpha), 0)
}
