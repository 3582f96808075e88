package interp

import (
	"context"
	"log"
	"math"

	"github.com/i474232898/grid-point-interpolation/internal/grid"
	"github.com/i474232898/grid-point-interpolation/internal/weather"
)

// InverseDistance is the IDW method: every usable neighborhood cell weighted
// by 1/d². No elevation correction is applied.
type InverseDistance struct {
	cfg       Config
	retriever weather.Retriever
}

// NewInverseDistance creates an InverseDistance interpolator.
func NewInverseDistance(cfg Config, retriever weather.Retriever) *InverseDistance {
	return &InverseDistance{cfg: cfg, retriever: retriever}
}

// Interpolate implements Interpolator.
func (d *InverseDistance) Interpolate(ctx context.Context, g *grid.Grid, req Request) (weather.Series, error) {
	nb, err := grid.Neighborhood(req.Point, 3, g, d.cfg.CellSize)
	if err != nil {
		return weather.Series{}, err
	}

	var hits []retrieval
	for _, c := range uniqueCells(nb) {
		if c.Elevation == 0 || math.IsNaN(c.Elevation) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return weather.Series{}, err
		}
		res := fetch(ctx, d.retriever, candidate{Cell: c, Distance: c.PlanarDistance(req.Point)}, req.Label)
		if res.err != nil {
			log.Printf("interp[%s]: retrieval failed for cell (%d,%d), dropping it: %v",
				req.CallID, c.Row, c.Col, res.err)
			continue
		}
		hits = append(hits, res)
	}
	if len(hits) == 0 {
		return weather.EmptySeries(), nil
	}

	var acc accumulator
	for i, w := range inverseDistanceWeights(hits) {
		if w == 0 {
			continue
		}
		if err := acc.add(hits[i].sample, w, 0); err != nil {
			return weather.Series{}, err
		}
	}
	return acc.series(), nil
}

// inverseDistanceWeights returns normalized 1/d² weights. A cell coinciding
// with the query point takes the whole weight.
func inverseDistanceWeights(hits []retrieval) []float64 {
	w := make([]float64, len(hits))
	for i, h := range hits {
		if h.cand.Distance == 0 {
			clear(w)
			w[i] = 1
			return w
		}
		w[i] = 1 / (h.cand.Distance * h.cand.Distance)
	}
	normalize(w)
	return w
}
