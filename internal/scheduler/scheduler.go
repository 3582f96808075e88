package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/grid-point-interpolation/internal/weather"
)

// StationRunner interpolates and stores a single station.
type StationRunner interface {
	InterpolateAndStore(ctx context.Context, st weather.Station) error
}

// Scheduler periodically interpolates the configured stations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    StationRunner
	stations  []weather.Station
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(stations []weather.Station, interval time.Duration, runner StationRunner) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		stations:  stations,
		interval:  interval,
		timeout:   5 * time.Minute,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.stations) == 0 {
		log.Println("scheduler: no stations configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.effectiveInterval()).Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// effectiveInterval falls back to hourly runs when no positive interval is set.
func (s *Scheduler) effectiveInterval() time.Duration {
	if s.interval <= 0 {
		log.Printf("scheduler: invalid interval %s; running hourly", s.interval)
		return time.Hour
	}
	return s.interval
}

// RunOnce interpolates every station. Stations run concurrently; each
// station's interpolation is itself sequential.
func (s *Scheduler) RunOnce() {
	log.Println("scheduler: running station interpolation job")

	var wg sync.WaitGroup
	for _, st := range s.stations {
		st := st // per-iteration copy (go.mod targets go 1.21 loop semantics)
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			if err := s.runner.InterpolateAndStore(ctx, st); err != nil {
				log.Printf("scheduler: interpolation failed for %s: %v", st.Key(), err)
			}
		}()
	}
	wg.Wait()
	log.Println("scheduler: completed station interpolation job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
