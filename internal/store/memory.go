package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/grid-point-interpolation/internal/weather"
)

var (
	// ErrNotFound is returned when no result is available for a given station.
	ErrNotFound = errors.New("no interpolation result for station")
)

// ResultHistory holds a time-ordered list of interpolation results for a station.
type ResultHistory struct {
	Results []weather.Result
}

// MemoryStore is a concurrency-safe in-memory store of station results.
type MemoryStore struct {
	mu sync.RWMutex

	// key: station key, value: history
	data map[string]*ResultHistory

	// retention configuration
	maxHistory int           // max number of results per station
	maxAge     time.Duration // optional max age for results
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*ResultHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
	}
}

// SaveResult appends a new result for a station and enforces retention.
func (s *MemoryStore) SaveResult(st weather.Station, result weather.Result) {
	key := st.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &ResultHistory{}
		s.data[key] = history
	}

	history.Results = append(history.Results, result)

	if s.maxHistory > 0 && len(history.Results) > s.maxHistory {
		over := len(history.Results) - s.maxHistory
		history.Results = history.Results[over:]
	}

	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Results); i++ {
			if !history.Results[i].Timestamp.Before(cutoff) {
				break
			}
		}
		history.Results = history.Results[i:]
	}
}

// GetLatest returns the most recent result for a station.
func (s *MemoryStore) GetLatest(st weather.Station) (weather.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[st.Key()]
	if !ok || len(history.Results) == 0 {
		return weather.Result{}, ErrNotFound
	}
	return history.Results[len(history.Results)-1], nil
}

// GetRange returns all results for a station stored between from and to (inclusive).
func (s *MemoryStore) GetRange(st weather.Station, from, to time.Time) ([]weather.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[st.Key()]
	if !ok || len(history.Results) == 0 {
		return nil, ErrNotFound
	}

	var out []weather.Result
	for _, r := range history.Results {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			out = append(out, r)
		}
	}

	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}
