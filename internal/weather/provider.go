package weather

import (
	"context"
	"time"
)

// Retriever fetches the weather sample for a grid location. Label selects a
// dataset variant and may be empty.
type Retriever interface {
	Name() string
	Retrieve(ctx context.Context, easting, northing float64, label string) (Sample, error)
}

// RetrieverFunc adapts a function to the Retriever interface.
type RetrieverFunc func(ctx context.Context, easting, northing float64, label string) (Sample, error)

// Name implements Retriever.
func (f RetrieverFunc) Name() string {
	return "func"
}

// Retrieve implements Retriever.
func (f RetrieverFunc) Retrieve(ctx context.Context, easting, northing float64, label string) (Sample, error) {
	return f(ctx, easting, northing, label)
}

// Store is the contract the in-memory result store must satisfy.
type Store interface {
	SaveResult(st Station, result Result)
	GetLatest(st Station) (Result, error)
	GetRange(st Station, from, to time.Time) ([]Result, error)
}
