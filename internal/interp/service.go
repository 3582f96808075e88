package interp

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/grid-point-interpolation/internal/weather"
)

// Service runs interpolations for ad-hoc requests and configured stations,
// persisting station results.
type Service struct {
	dispatcher    *Dispatcher
	store         weather.Store
	defaultMethod Method
	defaultQuota  int
}

// NewService creates a new Service.
func NewService(dispatcher *Dispatcher, store weather.Store, method Method, quota int) *Service {
	return &Service{
		dispatcher:    dispatcher,
		store:         store,
		defaultMethod: method,
		defaultQuota:  quota,
	}
}

// DefaultMethod returns the method used when a request leaves it empty.
func (s *Service) DefaultMethod() Method {
	return s.defaultMethod
}

// Interpolate fills in defaults and dispatches req.
func (s *Service) Interpolate(ctx context.Context, req Request) (weather.Series, error) {
	if req.Method == "" {
		req.Method = s.defaultMethod
	}
	if req.Quota <= 0 {
		req.Quota = s.defaultQuota
	}
	return s.dispatcher.Interpolate(ctx, req)
}

// InterpolateAndStore interpolates st with the default method and stores the
// result. An empty result is not stored so the last good one is kept.
func (s *Service) InterpolateAndStore(ctx context.Context, st weather.Station) error {
	req := Request{
		Point:  st.Point,
		ZMax:   st.ZMax,
		Label:  st.Label,
		Method: s.defaultMethod,
		Quota:  s.defaultQuota,
		CallID: uuid.New().String(),
	}

	series, err := s.dispatcher.Interpolate(ctx, req)
	if err != nil {
		return fmt.Errorf("station %s: %w", st.Key(), err)
	}
	if series.Len() == 0 {
		log.Printf("interp[%s]: no data for station %s; keeping last good result if any", req.CallID, st.Key())
		return nil
	}

	s.store.SaveResult(st, weather.Result{
		Station:   st,
		Method:    string(req.Method),
		CallID:    req.CallID,
		Timestamp: time.Now().UTC(),
		Series:    series,
	})
	return nil
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(st weather.Station) (weather.Result, error) {
	return s.store.GetLatest(st)
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(st weather.Station, from, to time.Time) ([]weather.Result, error) {
	return s.store.GetRange(st, from, to)
}
