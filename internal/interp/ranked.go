package interp

import (
	"context"
	"log"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/i474232898/grid-point-interpolation/internal/grid"
	"github.com/i474232898/grid-point-interpolation/internal/weather"
)

// Ranked is the SGl method. It ranks the 3×3 neighborhood by elevation
// relative to the request's ZMax and retrieves cells in that order until the
// quota of successful retrievals is met, replacing failed cells with the next
// ranked one. Results are combined with Gaussian distance weights and a
// lapse-rate temperature correction.
type Ranked struct {
	cfg       Config
	retriever weather.Retriever
}

// NewRanked creates a Ranked interpolator.
func NewRanked(cfg Config, retriever weather.Retriever) *Ranked {
	return &Ranked{cfg: cfg, retriever: retriever}
}

// Interpolate implements Interpolator.
func (r *Ranked) Interpolate(ctx context.Context, g *grid.Grid, req Request) (weather.Series, error) {
	nearest, err := grid.FindNearestCell(req.Point, g)
	if err != nil {
		return weather.Series{}, err
	}
	nb, err := grid.Neighborhood(req.Point, 3, g, r.cfg.CellSize)
	if err != nil {
		return weather.Series{}, err
	}

	var cands []candidate
	for _, c := range uniqueCells(nb) {
		diff := c.Elevation - req.ZMax
		if math.IsNaN(diff) {
			continue
		}
		cands = append(cands, candidate{Cell: c, Distance: c.PlanarDistance(req.Point), Diff: diff})
	}
	if len(cands) == 0 {
		log.Printf("interp[%s]: no valid candidates near cell (%d,%d)", req.CallID, nearest.Row, nearest.Col)
		return weather.EmptySeries(), nil
	}

	quota := req.Quota
	if quota <= 0 {
		quota = r.cfg.DefaultQuota
	}

	hits, err := r.collect(ctx, rankCandidates(cands), quota, req)
	if err != nil {
		return weather.Series{}, err
	}
	if len(hits) == 0 {
		log.Printf("interp[%s]: no candidate returned data", req.CallID)
		return weather.EmptySeries(), nil
	}

	weights := make([]float64, len(hits))
	for i, h := range hits {
		x := h.cand.Distance / r.cfg.RankedRadius
		weights[i] = math.Exp(-0.5 * x * x)
	}
	if floats.Sum(weights) == 0 {
		log.Printf("interp[%s]: every retrieved cell is too far from the query to carry weight", req.CallID)
		return weather.EmptySeries(), nil
	}
	normalize(weights)

	var acc accumulator
	for i, h := range hits {
		offset := r.cfg.LapseRate * (h.cand.Elevation - h.sample.Elevation)
		if err := acc.add(h.sample, weights[i], offset); err != nil {
			return weather.Series{}, err
		}
	}
	return acc.series(), nil
}

// collect walks ranked in order and returns up to quota successful
// retrievals. Cells with elevation exactly zero are treated as no-data cells
// and skipped. Failed retrievals are logged and do not count.
func (r *Ranked) collect(ctx context.Context, ranked []candidate, quota int, req Request) ([]retrieval, error) {
	var hits []retrieval
	for _, c := range ranked {
		if len(hits) >= quota {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.Elevation == 0 {
			continue
		}

		res := fetch(ctx, r.retriever, c, req.Label)
		if res.err != nil {
			log.Printf("interp[%s]: retrieval failed for cell (%d,%d) elev=%.1f: %v",
				req.CallID, c.Row, c.Col, c.Elevation, res.err)
			continue
		}
		hits = append(hits, res)
	}
	return hits, nil
}

// rankCandidates orders cands by preference: cells at or above the target
// elevation first, closest first, then cells below it from the least to the
// most negative difference.
func rankCandidates(cands []candidate) []candidate {
	sorted := append([]candidate(nil), cands...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Diff < sorted[j].Diff })

	ix := sort.Search(len(sorted), func(i int) bool { return sorted[i].Diff >= 0 })

	out := make([]candidate, 0, len(sorted))
	out = append(out, sorted[ix:]...)
	for i := ix - 1; i >= 0; i-- {
		out = append(out, sorted[i])
	}
	return out
}
