package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-dashboard/internal/store"
)

// maxConcurrentRefreshes bounds parallel upstream calls during one warm run.
const maxConcurrentRefreshes = 4

// HistorySource lists the cities whose forecasts should be kept warm.
type HistorySource interface {
	List() []store.City
}

// Refresher fetches a fresh forecast for a city and caches it.
type Refresher interface {
	Refresh(ctx context.Context, cityName string) error
}

// Scheduler periodically refreshes cached forecasts for the searched cities.
type Scheduler struct {
	scheduler *gocron.Scheduler
	history   HistorySource
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. timeout bounds each city refresh.
func New(history HistorySource, refresher Refresher, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		history:   history,
		refresher: refresher,
		interval:  interval,
		timeout:   timeout,
		logger:    logger.With(slog.String("component", "scheduler")),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// A non-positive interval disables warming.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("cache warming disabled")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 1
	}

	// The first run happens one interval after start; the cache is cold anyway.
	_, err := s.scheduler.Every(minutes).Minutes().WaitForSchedule().Do(func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce refreshes every city currently in history and returns the number
// of successful refreshes.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	cities := s.history.List()
	if len(cities) == 0 {
		s.logger.Debug("no cities in history; nothing to warm")
		return 0
	}

	s.logger.Info("warming forecast cache", slog.Int("cities", len(cities)))

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ok  int
		sem = make(chan struct{}, maxConcurrentRefreshes)
	)
	for _, city := range cities {
		wg.Add(1)
		sem <- struct{}{}
		go func(name string) {
			defer wg.Done()
			defer func() { <-sem }()

			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			if err := s.refresher.Refresh(cctx, name); err != nil {
				s.logger.Warn("refresh failed", slog.String("city", name), slog.Any("error", err))
				return
			}
			mu.Lock()
			ok++
			mu.Unlock()
		}(city.Name)
	}
	wg.Wait()

	s.logger.Info("forecast cache warmed", slog.Int("refreshed", ok), slog.Int("cities", len(cities)))
	return ok
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
