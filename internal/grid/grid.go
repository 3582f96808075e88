package grid

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnavailable is returned when the grid geometry dataset cannot be loaded.
	ErrUnavailable = errors.New("grid geometry source unavailable")

	errEmptyGrid = errors.New("grid has no cells")
)

// Grid is a read-only elevation raster with parallel 1-D coordinate axes.
// Elevation is indexed [row][col]; rows follow Northing and columns follow Easting.
type Grid struct {
	Easting   []float64
	Northing  []float64
	Elevation [][]float64
}

// Validate checks that the elevation raster matches the coordinate axes.
func (g *Grid) Validate() error {
	if g == nil || len(g.Easting) == 0 || len(g.Northing) == 0 {
		return errEmptyGrid
	}
	if len(g.Elevation) != len(g.Northing) {
		return fmt.Errorf("elevation has %d rows, northing axis has %d", len(g.Elevation), len(g.Northing))
	}
	for i, row := range g.Elevation {
		if len(row) != len(g.Easting) {
			return fmt.Errorf("elevation row %d has %d columns, easting axis has %d", i, len(row), len(g.Easting))
		}
	}
	return nil
}

// Point is a query location. Elevation is optional.
type Point struct {
	Easting   float64  `json:"easting"`
	Northing  float64  `json:"northing"`
	Elevation *float64 `json:"elevation,omitempty"`
}

// Cell is a single grid cell together with its coordinates.
type Cell struct {
	Row       int     `json:"row"`
	Col       int     `json:"col"`
	Elevation float64 `json:"elevation"`
	Easting   float64 `json:"easting"`
	Northing  float64 `json:"northing"`
}

// Source provides grid geometry.
type Source interface {
	Load() (*Grid, error)
}

// FindNearestCell returns the cell whose easting and northing are each the
// closest to p along their own axis. Ties go to the lowest index.
func FindNearestCell(p Point, g *Grid) (Cell, error) {
	if err := g.Validate(); err != nil {
		return Cell{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	row := nearestIndex(g.Northing, p.Northing)
	col := nearestIndex(g.Easting, p.Easting)
	return Cell{
		Row:       row,
		Col:       col,
		Elevation: g.Elevation[row][col],
		Easting:   g.Easting[col],
		Northing:  g.Northing[row],
	}, nil
}

// FindOffsetCell probes the grid at ref shifted by (colOff-1, rowOff-1) grid
// steps and returns the nearest cell to the probe. Offsets 0..2 therefore span
// a neighborhood centered on ref.
//
// The northing shift is added, matching the easting shift. Whether increasing
// row offsets should instead move south has not been confirmed for every
// source grid.
func FindOffsetCell(ref Point, rowOff, colOff int, g *Grid, cellSize float64) (Cell, error) {
	probe := Point{
		Easting:  ref.Easting + float64(colOff-1)*cellSize,
		Northing: ref.Northing + float64(rowOff-1)*cellSize,
	}
	return FindNearestCell(probe, g)
}

// Neighborhood returns the size×size block of offset cells around ref,
// indexed [rowOff][colOff].
func Neighborhood(ref Point, size int, g *Grid, cellSize float64) ([][]Cell, error) {
	out := make([][]Cell, size)
	for r := 0; r < size; r++ {
		out[r] = make([]Cell, size)
		for c := 0; c < size; c++ {
			cell, err := FindOffsetCell(ref, r, c, g, cellSize)
			if err != nil {
				return nil, err
			}
			out[r][c] = cell
		}
	}
	return out, nil
}

// PlanarDistance is the horizontal distance between a cell and a point.
func (c Cell) PlanarDistance(p Point) float64 {
	return math.Hypot(c.Easting-p.Easting, c.Northing-p.Northing)
}

func nearestIndex(axis []float64, v float64) int {
	best := 0
	bestDiff := math.Inf(1)
	for i, a := range axis {
		d := math.Abs(a - v)
		if d < bestDiff {
			best = i
			bestDiff = d
		}
	}
	return best
}
