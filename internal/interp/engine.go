// Package interp estimates point weather series from gridded samples.
package interp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/i474232898/grid-point-interpolation/internal/grid"
	"github.com/i474232898/grid-point-interpolation/internal/weather"
)

var (
	// ErrInvalidMethod is returned for an unknown method tag.
	ErrInvalidMethod = errors.New("invalid interpolation method")

	// ErrTimeAxisMismatch is returned when combined samples do not share a time axis.
	ErrTimeAxisMismatch = errors.New("samples have different time axes")
)

// Method selects an interpolator.
type Method string

const (
	MethodRanked          Method = "SGl"
	MethodRange           Method = "PG"
	MethodPassthrough     Method = "onecell"
	MethodInverseDistance Method = "IDW"
	MethodElevation       Method = "EA"
)

// Methods lists the supported method tags.
var Methods = []Method{MethodRanked, MethodRange, MethodPassthrough, MethodInverseDistance, MethodElevation}

// ParseMethod validates a method tag.
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if !slices.Contains(Methods, m) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMethod, s)
	}
	return m, nil
}

// Request describes one interpolation call.
type Request struct {
	Point  grid.Point
	ZMax   float64
	Label  string
	Method Method
	Quota  int

	// CallID identifies the call in log output.
	CallID string
}

// Interpolator estimates a series at a point of g.
type Interpolator interface {
	Interpolate(ctx context.Context, g *grid.Grid, req Request) (weather.Series, error)
}

// Dispatcher routes requests to the interpolator for their method and masks
// invalid time steps out of the result.
type Dispatcher struct {
	source        grid.Source
	interpolators map[Method]Interpolator
}

// NewDispatcher creates a Dispatcher with every built-in method registered.
func NewDispatcher(source grid.Source, retriever weather.Retriever, cfg Config) *Dispatcher {
	return &Dispatcher{
		source: source,
		interpolators: map[Method]Interpolator{
			MethodRanked:          NewRanked(cfg, retriever),
			MethodRange:           NewRange(cfg, retriever),
			MethodPassthrough:     NewPassthrough(retriever),
			MethodInverseDistance: NewInverseDistance(cfg, retriever),
			MethodElevation:       NewElevationAdjusted(cfg, retriever),
		},
	}
}

// Interpolate runs req through its method and returns the masked series.
func (d *Dispatcher) Interpolate(ctx context.Context, req Request) (weather.Series, error) {
	ip, ok := d.interpolators[req.Method]
	if !ok {
		return weather.Series{}, fmt.Errorf("%w: %q", ErrInvalidMethod, req.Method)
	}
	if req.CallID == "" {
		req.CallID = uuid.New().String()
	}

	g, err := d.source.Load()
	if err != nil {
		if !errors.Is(err, grid.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", grid.ErrUnavailable, err)
		}
		return weather.Series{}, err
	}

	log.Printf("DEBUG: interp[%s]: %s at (%.1f, %.1f) zmax=%.1f label=%q",
		req.CallID, req.Method, req.Point.Easting, req.Point.Northing, req.ZMax, req.Label)

	series, err := ip.Interpolate(ctx, g, req)
	if err != nil {
		return weather.Series{}, err
	}
	return weather.MaskInvalid(series), nil
}

// candidate is a neighborhood cell considered for retrieval.
type candidate struct {
	grid.Cell
	Distance float64
	Diff     float64
}

// retrieval is the outcome of fetching one candidate.
type retrieval struct {
	cand   candidate
	sample weather.Sample
	err    error
}

func fetch(ctx context.Context, r weather.Retriever, c candidate, label string) retrieval {
	s, err := r.Retrieve(ctx, c.Easting, c.Northing, label)
	if err == nil {
		err = s.Validate()
	}
	return retrieval{cand: c, sample: s, err: err}
}

// uniqueCells flattens a neighborhood row-major, dropping repeats of the same
// cell that occur where probes run past the grid edge.
func uniqueCells(nb [][]grid.Cell) []grid.Cell {
	seen := make(map[[2]int]bool)
	var out []grid.Cell
	for _, row := range nb {
		for _, c := range row {
			k := [2]int{c.Row, c.Col}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, c)
		}
	}
	return out
}

// normalize scales w in place to sum to one. A zero total leaves uniform weights.
func normalize(w []float64) {
	if len(w) == 0 {
		return
	}
	sum := floats.Sum(w)
	if sum == 0 || math.IsNaN(sum) {
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
		return
	}
	floats.Scale(1/sum, w)
}

// accumulator holds the running weighted sums of one call.
type accumulator struct {
	time []time.Time
	cols [5][]float64
	n    int
}

// add folds s into the sums with weight w. tempOffset is added to every
// temperature value of s before weighting.
func (a *accumulator) add(s weather.Sample, w, tempOffset float64) error {
	if a.n == 0 {
		a.time = s.Time
		for i := range a.cols {
			a.cols[i] = make([]float64, len(s.Time))
		}
	} else if !sameAxis(a.time, s.Time) {
		return fmt.Errorf("%w: %d steps vs %d", ErrTimeAxisMismatch, len(a.time), len(s.Time))
	}
	a.time = s.Time

	floats.AddScaled(a.cols[0], w, s.Temperature)
	floats.AddConst(w*tempOffset, a.cols[0])
	floats.AddScaled(a.cols[1], w, s.Precipitation)
	floats.AddScaled(a.cols[2], w, s.SnowDepth)
	floats.AddScaled(a.cols[3], w, s.NewSnowWater)
	floats.AddScaled(a.cols[4], w, s.SnowWaterEquivalent)
	a.n++
	return nil
}

func (a *accumulator) series() weather.Series {
	if a.n == 0 {
		return weather.EmptySeries()
	}
	return weather.Series{
		Time:                append([]time.Time(nil), a.time...),
		Temperature:         a.cols[0],
		Precipitation:       a.cols[1],
		SnowDepth:           a.cols[2],
		NewSnowWater:        a.cols[3],
		SnowWaterEquivalent: a.cols[4],
	}
}

func sameAxis(a, b []time.Time) bool {
	return slices.EqualFunc(a, b, func(x, y time.Time) bool { return x.Equal(y) })
}
