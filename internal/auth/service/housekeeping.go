package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/store"
)

// HousekeepingService periodically cleans up expired database records and
// in-memory caches: lapsed bans, stale counters, dead revocation entries,
// old nonces, expired registry and slider entries.
type HousekeepingService struct {
	Store    store.Store
	Registry *SceneRegistry
	Slider   *SliderService
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(st store.Store, registry *SceneRegistry, slider *SliderService, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Registry: registry,
		Slider:   slider,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking and should be called after the database is ready.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

// run is the main background worker loop.
func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup performs the actual deletion of expired records.
// Each deletion is independent - failures in one won't stop the others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now()
	s.Logger.Info("starting housekeeping cleanup")

	if err := s.Store.Bans().DeleteExpired(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired bans", "error", err)
	}

	// A counter window that started two windows ago cannot influence any
	// decision anymore.
	if err := s.Store.Counters().DeleteStale(ctx, now.Add(-2*CounterWindow)); err != nil {
		s.Logger.Error("failed to delete stale counters", "error", err)
	}

	if err := s.Store.RevokedTokens().DeleteExpired(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired revoked tokens", "error", err)
	}

	if err := s.Store.Nonces().DeleteOld(ctx, now.Add(-NonceRetention)); err != nil {
		s.Logger.Error("failed to delete old login nonces", "error", err)
	}

	s.Registry.Sweep(now)
	s.Slider.Sweep(now)

	s.Logger.Info("housekeeping cleanup completed")
}
