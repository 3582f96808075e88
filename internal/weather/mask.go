package weather

import (
	"math"
	"time"
)

// seriesColumns is the number of arrays in a Series, time axis included.
const seriesColumns = 6

// MaskArrays drops every position where any of cols holds NaN. The index
// axis does not take part in the validity check but is filtered with the
// same mask. An empty index yields seriesColumns-1 empty columns.
func MaskArrays(index []time.Time, cols ...[]float64) ([]time.Time, [][]float64) {
	if len(index) == 0 {
		out := make([][]float64, seriesColumns-1)
		for i := range out {
			out[i] = []float64{}
		}
		return []time.Time{}, out
	}

	keep := make([]bool, len(index))
	for i := range keep {
		keep[i] = true
		for _, col := range cols {
			if i >= len(col) || math.IsNaN(col[i]) {
				keep[i] = false
				break
			}
		}
	}

	outIndex := make([]time.Time, 0, len(index))
	for i, t := range index {
		if keep[i] {
			outIndex = append(outIndex, t)
		}
	}
	outCols := make([][]float64, len(cols))
	for c, col := range cols {
		outCols[c] = make([]float64, 0, len(outIndex))
		for i := range index {
			if keep[i] {
				outCols[c] = append(outCols[c], col[i])
			}
		}
	}
	return outIndex, outCols
}

// MaskInvalid removes the time steps at which any variable of s is missing.
func MaskInvalid(s Series) Series {
	if s.Len() == 0 {
		return EmptySeries()
	}
	t, cols := MaskArrays(s.Time,
		s.Temperature,
		s.Precipitation,
		s.SnowDepth,
		s.NewSnowWater,
		s.SnowWaterEquivalent,
	)
	return Series{
		Time:                t,
		Temperature:         cols[0],
		Precipitation:       cols[1],
		SnowDepth:           cols[2],
		NewSnowWater:        cols[3],
		SnowWaterEquivalent: cols[4],
	}
}
