package grid

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
)

// FileSource loads a grid from a JSON document of the form
//
//	{"easting": [...], "northing": [...], "elevation": [[...], ...]}
//
// where null elevations mark missing cells. A successful load is kept for
// the lifetime of the source; failed loads are retried on the next call.
type FileSource struct {
	path string

	mu   sync.Mutex
	grid *Grid
}

// NewFileSource creates a FileSource reading from path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

type gridDocument struct {
	Easting   []float64    `json:"easting"`
	Northing  []float64    `json:"northing"`
	Elevation [][]*float64 `json:"elevation"`
}

// Load implements Source.
func (s *FileSource) Load() (*Grid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.grid != nil {
		return s.grid, nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer f.Close()

	var doc gridDocument
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, s.path, err)
	}

	g := &Grid{
		Easting:   doc.Easting,
		Northing:  doc.Northing,
		Elevation: make([][]float64, len(doc.Elevation)),
	}
	for i, row := range doc.Elevation {
		g.Elevation[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				g.Elevation[i][j] = math.NaN()
			} else {
				g.Elevation[i][j] = *v
			}
		}
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, s.path, err)
	}

	s.grid = g
	return g, nil
}

// Static is a Source over an in-memory grid.
type Static struct {
	Grid *Grid
}

// Load implements Source.
func (s Static) Load() (*Grid, error) {
	if err := s.Grid.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return s.Grid, nil
}
