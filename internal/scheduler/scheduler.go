package scheduler

import (
	"context"
	"sync"
	"time"

	"strata/backend/internal/logger"
	"strata/backend/internal/service"
)

// Scheduler runs periodic health checks against every configured
// connection.
type Scheduler struct {
	connections service.ConnectionService
	interval    time.Duration
	stopCh      chan struct{}
	wg          sync.WaitGroup
	cancelFunc  context.CancelFunc // cancels the current check run
	mu          sync.Mutex         // protects cancelFunc
}

func New(connections service.ConnectionService, interval time.Duration) *Scheduler {
	return &Scheduler{
		connections: connections,
		interval:    interval,
		stopCh:      make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
	logger.Info("scheduler started", "module", "scheduler", "action", "check", "resource", "connection", "result", "ok", "interval_ms", s.interval.Milliseconds())
}

func (s *Scheduler) Stop() {
	// Cancel any ongoing check run first
	s.mu.Lock()
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	logger.Info("scheduler stopped", "module", "scheduler", "action", "check", "resource", "connection", "result", "ok")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.check()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.check()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) check() {
	// Use the same timeout as the check interval
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)

	// Store cancel function so Stop() can cancel ongoing checks
	s.mu.Lock()
	s.cancelFunc = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.cancelFunc = nil
		s.mu.Unlock()
	}()

	logger.Info("scheduled health check started", "module", "scheduler", "action", "check", "resource", "connection", "result", "ok")
	if err := s.connections.CheckAll(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Warn("scheduled health check cancelled", "module", "scheduler", "action", "check", "resource", "connection", "result", "cancelled")
			return
		}
		logger.Error("scheduled health check failed", "module", "scheduler", "action", "check", "resource", "connection", "result", "failed", "error", err)
	}
	logger.Info("scheduled health check completed", "module", "scheduler", "action", "check", "resource", "connection", "result", "ok")
}
