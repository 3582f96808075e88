package interp

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/i474232898/grid-point-interpolation/internal/grid"
	"github.com/i474232898/grid-point-interpolation/internal/weather"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// fakeRetriever serves scripted samples keyed by coordinate and records the
// order of calls.
type fakeRetriever struct {
	samples map[[2]float64]weather.Sample
	fail    map[[2]float64]bool
	calls   [][2]float64
}

func newFakeRetriever() *fakeRetriever {
	return &fakeRetriever{
		samples: make(map[[2]float64]weather.Sample),
		fail:    make(map[[2]float64]bool),
	}
}

func (f *fakeRetriever) Name() string { return "fake" }

func (f *fakeRetriever) Retrieve(_ context.Context, e, n float64, _ string) (weather.Sample, error) {
	k := [2]float64{e, n}
	f.calls = append(f.calls, k)
	if f.fail[k] {
		return weather.Sample{}, errors.New("scripted failure")
	}
	s, ok := f.samples[k]
	if !ok {
		return weather.Sample{}, errors.New("no sample")
	}
	return s, nil
}

func sample(elev, temp, precip float64) weather.Sample {
	return weather.Sample{
		Time:                []time.Time{t0, t0.Add(3 * time.Hour)},
		Temperature:         weather.Values{temp, temp},
		Precipitation:       weather.Values{precip, precip},
		SnowDepth:           weather.Values{10, 10},
		NewSnowWater:        weather.Values{0, 0},
		SnowWaterEquivalent: weather.Values{25, 25},
		Elevation:           elev,
	}
}

// testGrid is a 5x5 grid with 1000-unit spacing. Elevation at [r][c] is
// 100*r + 10*c + 1.
func testGrid() *grid.Grid {
	g := &grid.Grid{
		Easting:   []float64{0, 1000, 2000, 3000, 4000},
		Northing:  []float64{0, 1000, 2000, 3000, 4000},
		Elevation: make([][]float64, 5),
	}
	for r := range g.Elevation {
		g.Elevation[r] = make([]float64, 5)
		for c := range g.Elevation[r] {
			g.Elevation[r][c] = float64(100*r + 10*c + 1)
		}
	}
	return g
}

// fillSamples gives every cell of g a sample at its own elevation.
func fillSamples(f *fakeRetriever, g *grid.Grid, temp, precip float64) {
	for r, n := range g.Northing {
		for c, e := range g.Easting {
			f.samples[[2]float64{e, n}] = sample(g.Elevation[r][c], temp, precip)
		}
	}
}

func diffs(cands []candidate) []float64 {
	out := make([]float64, len(cands))
	for i, c := range cands {
		out[i] = c.Diff
	}
	return out
}

func withDiffs(ds ...float64) []candidate {
	out := make([]candidate, len(ds))
	for i, d := range ds {
		out[i] = candidate{Diff: d}
	}
	return out
}

func TestRankCandidatesMixed(t *testing.T) {
	got := rankCandidates(withDiffs(2, -1, 0, -3, 1))
	assert.Equal(t, []float64{0, 1, 2, -1, -3}, diffs(got))
}

func TestRankCandidatesAllNegative(t *testing.T) {
	got := rankCandidates(withDiffs(-3, -1, -5))
	assert.Equal(t, []float64{-1, -3, -5}, diffs(got))
}

func TestRankCandidatesAllNonNegative(t *testing.T) {
	got := rankCandidates(withDiffs(5, 0, 3))
	assert.Equal(t, []float64{0, 3, 5}, diffs(got))
}

func TestCollectStopsAtQuota(t *testing.T) {
	f := newFakeRetriever()
	var ranked []candidate
	for i := 1; i <= 5; i++ {
		c := candidate{Cell: grid.Cell{Easting: float64(i), Elevation: 100}}
		ranked = append(ranked, c)
		f.samples[[2]float64{float64(i), 0}] = sample(100, 0, 0)
	}
	f.fail[[2]float64{1, 0}] = true
	f.fail[[2]float64{3, 0}] = true

	r := NewRanked(DefaultConfig(), f)
	hits, err := r.collect(context.Background(), ranked, 2, Request{CallID: "test"})
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, 2.0, hits[0].cand.Easting)
	assert.Equal(t, 4.0, hits[1].cand.Easting)
	assert.Equal(t, [][2]float64{{1, 0}, {2, 0}, {3, 0}, {4, 0}}, f.calls)
}

func TestCollectSkipsZeroElevation(t *testing.T) {
	f := newFakeRetriever()
	ranked := []candidate{
		{Cell: grid.Cell{Easting: 1, Elevation: 0}},
		{Cell: grid.Cell{Easting: 2, Elevation: 50}},
	}
	f.samples[[2]float64{1, 0}] = sample(0, 0, 0)
	f.samples[[2]float64{2, 0}] = sample(50, 0, 0)

	hits, err := NewRanked(DefaultConfig(), f).collect(context.Background(), ranked, 1, Request{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 2.0, hits[0].cand.Easting)
	assert.Len(t, f.calls, 1)
}

func TestRankedPrefersCellAtTargetElevation(t *testing.T) {
	g := testGrid()
	f := newFakeRetriever()
	fillSamples(f, g, 0, 1)

	// Neighborhood is rows 1..3, cols 1..3; cell (2,2) has elevation 221.
	req := Request{Point: grid.Point{Easting: 2200, Northing: 2300}, ZMax: 221, Quota: 1}
	_, err := NewRanked(DefaultConfig(), f).Interpolate(context.Background(), g, req)
	require.NoError(t, err)
	require.NotEmpty(t, f.calls)
	assert.Equal(t, [2]float64{2000, 2000}, f.calls[0])
}

func TestRankedLapseCorrection(t *testing.T) {
	g := testGrid()
	f := newFakeRetriever()
	// Sample source elevation 21 for the cell at elevation 221: 200 units lower.
	f.samples[[2]float64{2000, 2000}] = sample(21, 5, 1)

	req := Request{Point: grid.Point{Easting: 2200, Northing: 2300}, ZMax: 221, Quota: 1}
	got, err := NewRanked(DefaultConfig(), f).Interpolate(context.Background(), g, req)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())

	// 5 + (-0.005 * (221 - 21)) = 4
	assert.InDelta(t, 4.0, got.Temperature[0], 1e-9)
	assert.InDelta(t, 1.0, got.Precipitation[0], 1e-9)
	assert.InDelta(t, 25.0, got.SnowWaterEquivalent[1], 1e-9)
}

func TestRankedWeightsSumToOne(t *testing.T) {
	g := testGrid()
	f := newFakeRetriever()
	fillSamples(f, g, 0, 1)

	req := Request{Point: grid.Point{Easting: 2200, Northing: 2300}, ZMax: 0, Quota: 9}
	got, err := NewRanked(DefaultConfig(), f).Interpolate(context.Background(), g, req)
	require.NoError(t, err)

	// Every sample carries precipitation 1 so the combination equals the weight sum.
	assert.InDelta(t, 1.0, got.Precipitation[0], 1e-9)
	assert.InDelta(t, 10.0, got.SnowDepth[0], 1e-9)
	assert.Len(t, f.calls, 9)
}

func TestRankedTimeAxisMismatch(t *testing.T) {
	g := testGrid()
	f := newFakeRetriever()
	fillSamples(f, g, 0, 1)
	shifted := sample(231, 0, 1)
	shifted.Time = []time.Time{t0.Add(time.Hour), t0.Add(4 * time.Hour)}
	f.samples[[2]float64{3000, 2000}] = shifted

	req := Request{Point: grid.Point{Easting: 2200, Northing: 2300}, ZMax: 221, Quota: 2}
	_, err := NewRanked(DefaultConfig(), f).Interpolate(context.Background(), g, req)
	assert.ErrorIs(t, err, ErrTimeAxisMismatch)
}

func TestRankedAllRetrievalsFail(t *testing.T) {
	g := testGrid()
	f := newFakeRetriever()

	req := Request{Point: grid.Point{Easting: 2200, Northing: 2300}, ZMax: 221, Quota: 3}
	got, err := NewRanked(DefaultConfig(), f).Interpolate(context.Background(), g, req)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Len(t, f.calls, 9)
}

func TestNormalize(t *testing.T) {
	w := []float64{0.2, 0.7, 3.1}
	normalize(w)
	assert.InDelta(t, 1.0, floats.Sum(w), 1e-12)

	zero := []float64{0, 0}
	normalize(zero)
	assert.Equal(t, []float64{0.5, 0.5}, zero)
}

func TestRangeWeightZeroElevation(t *testing.T) {
	r := NewRange(DefaultConfig(), nil)

	for _, d := range []float64{0, 10, 500} {
		assert.Equal(t, 0.0, r.weight(candidate{Cell: grid.Cell{Elevation: 0}, Distance: d}))
	}
	assert.Equal(t, 0.0, r.weight(candidate{Cell: grid.Cell{Elevation: math.NaN()}}))
	assert.InDelta(t, 1-math.Exp(-3), r.weight(candidate{Cell: grid.Cell{Elevation: 10}}), 1e-12)
	assert.Equal(t, 0.0, r.weight(candidate{Cell: grid.Cell{Elevation: 10}, Distance: 1000}))
}

func TestRangeSubsetIsTwoByTwo(t *testing.T) {
	g := testGrid()
	cfg := DefaultConfig()
	p := grid.Point{Easting: 2200, Northing: 2300}
	nb, err := grid.Neighborhood(p, 3, g, cfg.CellSize)
	require.NoError(t, err)

	subset := NewRange(cfg, nil).inRange(nb, p)
	require.Len(t, subset, 4)
	for _, c := range subset {
		assert.Contains(t, []int{2, 3}, c.Row)
		assert.Contains(t, []int{2, 3}, c.Col)
	}
}

func TestRangeWindowIsInclusive(t *testing.T) {
	g := testGrid()
	cfg := DefaultConfig()
	// Rows and columns 1 and 3 sit exactly one window away from the query.
	p := grid.Point{Easting: 2000, Northing: 2000}
	nb, err := grid.Neighborhood(p, 3, g, cfg.CellSize)
	require.NoError(t, err)

	assert.Len(t, NewRange(cfg, nil).inRange(nb, p), 9)

	cfg.RangeWindow = 999
	assert.Len(t, NewRange(cfg, nil).inRange(nb, p), 1)
}

func TestRangeUsesQueryElevation(t *testing.T) {
	g := testGrid()
	f := newFakeRetriever()
	for _, n := range g.Northing {
		for _, e := range g.Easting {
			f.samples[[2]float64{e, n}] = sample(300, 0, 1)
		}
	}

	z := 500.0
	req := Request{Point: grid.Point{Easting: 2200, Northing: 2300, Elevation: &z}}
	got, err := NewRange(DefaultConfig(), f).Interpolate(context.Background(), g, req)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())

	assert.InDelta(t, -1.0, got.Temperature[0], 1e-9)
	assert.InDelta(t, 1.0, got.Precipitation[0], 1e-9)
	// The far corner (3,3) lies beyond the cutoff radius and is never fetched.
	assert.Len(t, f.calls, 3)
}

func TestRangeDropsFailedCell(t *testing.T) {
	g := testGrid()
	f := newFakeRetriever()
	fillSamples(f, g, 0, 1)
	f.fail[[2]float64{2000, 2000}] = true

	req := Request{Point: grid.Point{Easting: 2200, Northing: 2300}}
	got, err := NewRange(DefaultConfig(), f).Interpolate(context.Background(), g, req)
	require.NoError(t, err)

	// The failed cell's share is not redistributed.
	assert.Less(t, got.Precipitation[0], 1.0)
	assert.Greater(t, got.Precipitation[0], 0.0)
	assert.Len(t, f.calls, 3)
}

func TestPassthroughReturnsSampleUnmodified(t *testing.T) {
	g := testGrid()
	f := newFakeRetriever()
	f.samples[[2]float64{2200, 2300}] = sample(0, 7, 2)

	req := Request{Point: grid.Point{Easting: 2200, Northing: 2300}, ZMax: 900}
	got, err := NewPassthrough(f).Interpolate(context.Background(), g, req)
	require.NoError(t, err)
	assert.Equal(t, weather.Values{7, 7}, got.Temperature)
	assert.Equal(t, weather.Values{2, 2}, got.Precipitation)
}

func TestElevationAdjustedCorrectsToQueryElevation(t *testing.T) {
	g := testGrid()
	f := newFakeRetriever()
	// Nearest cell to the query is (2,2) at (2000, 2000).
	f.samples[[2]float64{2000, 2000}] = sample(21, 5, 2)

	z := 1021.0
	req := Request{Point: grid.Point{Easting: 2200, Northing: 2300, Elevation: &z}, ZMax: 221}
	got, err := NewElevationAdjusted(DefaultConfig(), f).Interpolate(context.Background(), g, req)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())

	// 5 + (-0.0065 * (1021 - 21)) = -1.5
	assert.InDelta(t, -1.5, got.Temperature[0], 1e-9)
	assert.Equal(t, weather.Values{2, 2}, got.Precipitation)
	assert.Equal(t, [][2]float64{{2000, 2000}}, f.calls)

	// Without a point elevation the target elevation is used.
	req.Point.Elevation = nil
	got, err = NewElevationAdjusted(DefaultConfig(), f).Interpolate(context.Background(), g, req)
	require.NoError(t, err)
	assert.InDelta(t, 3.7, got.Temperature[1], 1e-9)
}

func TestElevationAdjustedRetrievalFailure(t *testing.T) {
	g := testGrid()
	f := newFakeRetriever()
	f.fail[[2]float64{2000, 2000}] = true

	req := Request{Point: grid.Point{Easting: 2200, Northing: 2300}, ZMax: 221}
	got, err := NewElevationAdjusted(DefaultConfig(), f).Interpolate(context.Background(), g, req)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.Len(t, f.calls, 1)
}

func TestRankedFarQueryHasNoWeight(t *testing.T) {
	g := testGrid()
	f := newFakeRetriever()
	fillSamples(f, g, 10, 1)

	// Every probe clamps to the corner cell, about 79 km away.
	req := Request{Point: grid.Point{Easting: 60000, Northing: 60000}, ZMax: 0, Quota: 1}
	got, err := NewRanked(DefaultConfig(), f).Interpolate(context.Background(), g, req)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
	assert.NotNil(t, got.Temperature)
}

func TestInverseDistanceWeights(t *testing.T) {
	hits := []retrieval{
		{cand: candidate{Distance: 1}},
		{cand: candidate{Distance: 2}},
	}
	w := inverseDistanceWeights(hits)
	assert.InDelta(t, 1.0, floats.Sum(w), 1e-12)
	assert.InDelta(t, 0.8, w[0], 1e-12)

	hits = append(hits, retrieval{cand: candidate{Distance: 0}})
	assert.Equal(t, []float64{0, 0, 1}, inverseDistanceWeights(hits))
}

func TestInverseDistanceInterpolate(t *testing.T) {
	g := testGrid()
	f := newFakeRetriever()
	fillSamples(f, g, 3, 1)

	req := Request{Point: grid.Point{Easting: 2200, Northing: 2300}}
	got, err := NewInverseDistance(DefaultConfig(), f).Interpolate(context.Background(), g, req)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, got.Temperature[0], 1e-9)
	assert.InDelta(t, 1.0, got.Precipitation[1], 1e-9)
	assert.Len(t, f.calls, 9)
}

func TestDispatcherInvalidMethod(t *testing.T) {
	d := NewDispatcher(grid.Static{Grid: testGrid()}, newFakeRetriever(), DefaultConfig())

	_, err := d.Interpolate(context.Background(), Request{Method: "kriging"})
	assert.ErrorIs(t, err, ErrInvalidMethod)

	_, err = ParseMethod("kriging")
	assert.ErrorIs(t, err, ErrInvalidMethod)

	m, err := ParseMethod("onecell")
	require.NoError(t, err)
	assert.Equal(t, MethodPassthrough, m)

	m, err = ParseMethod("EA")
	require.NoError(t, err)
	assert.Equal(t, MethodElevation, m)
}

func TestDispatcherRegistersEveryMethod(t *testing.T) {
	d := NewDispatcher(grid.Static{Grid: testGrid()}, newFakeRetriever(), DefaultConfig())
	for _, m := range Methods {
		assert.Contains(t, d.interpolators, m)
	}
}

func TestDispatcherGridUnavailable(t *testing.T) {
	d := NewDispatcher(grid.Static{}, newFakeRetriever(), DefaultConfig())

	_, err := d.Interpolate(context.Background(), Request{Method: MethodRanked})
	assert.ErrorIs(t, err, grid.ErrUnavailable)
}

func TestDispatcherMasksInvalidSteps(t *testing.T) {
	g := testGrid()
	f := newFakeRetriever()
	s := sample(0, 1, 1)
	s.Precipitation[1] = math.NaN()
	f.samples[[2]float64{2200, 2300}] = s

	d := NewDispatcher(grid.Static{Grid: g}, f, DefaultConfig())
	got, err := d.Interpolate(context.Background(), Request{
		Point:  grid.Point{Easting: 2200, Northing: 2300},
		Method: MethodPassthrough,
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{t0}, got.Time)
}

func TestNoValidCandidatesYieldsEmptyForEveryMethod(t *testing.T) {
	g := testGrid()
	for r := range g.Elevation {
		for c := range g.Elevation[r] {
			g.Elevation[r][c] = math.NaN()
		}
	}
	f := newFakeRetriever()
	fillSamples(f, g, 0, 1)
	f.samples[[2]float64{2200, 2300}] = sample(0, 0, 1)

	d := NewDispatcher(grid.Static{Grid: g}, f, DefaultConfig())
	for _, m := range []Method{MethodRanked, MethodRange, MethodPassthrough, MethodElevation} {
		got, err := d.Interpolate(context.Background(), Request{
			Point:  grid.Point{Easting: 2200, Northing: 2300},
			Method: m,
			Quota:  3,
		})
		require.NoError(t, err, m)
		assert.NotNil(t, got.Time, m)
		assert.Equal(t, 0, got.Len(), m)
		assert.Len(t, got.Temperature, 0, m)
		assert.Len(t, got.SnowWaterEquivalent, 0, m)
	}
	assert.Empty(t, f.calls)
}
