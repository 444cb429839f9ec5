package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ArticleEnhancer/internal/ports"
)

// Scheduler wires the interval driver with the enhancement use case.
type Scheduler struct {
	driver   ports.Scheduler
	enhancer *Enhancer
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring enhancement runs.
func NewScheduler(driver ports.Scheduler, enhancer *Enhancer, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, enhancer: enhancer, logger: logger}
}

// Start registers the enhancer with the provided scheduler. Each tick runs to completion
// before the driver fires the next one.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.enhancer == nil {
		return nil
	}

	job := func(trigger time.Time) {
		result, err := s.enhancer.Run(ctx)
		switch {
		case errors.Is(err, ErrNothingToEnhance):
			logInfo(s.logger, "tick: nothing to enhance", "trigger", trigger)
		case err != nil:
			if s.logger != nil {
				s.logger.Error("tick failed", "trigger", trigger, "error", err)
			}
		default:
			logInfo(s.logger, "tick complete", "trigger", trigger,
				"original_id", result.OriginalID, "derivative_id", result.DerivativeID)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
