package sim

import (
	"context"
	"time"

	"uavnet-sim/internal/engine"
	"uavnet-sim/internal/logging"
)

// Run starts every drone and advances virtual time in chunks until the
// configured duration elapses or ctx is done. Rows produced by a chunk are
// written after the lock is released.
func (s *Simulator) Run(ctx context.Context) error {
	log := logging.FromContext(ctx).With("run_id", s.runID)

	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return ErrAlreadyRun
	}
	s.ran = true
	s.net.Start()
	if interval := s.cfg.Simulation.MetricsInterval; interval > 0 {
		s.sched.Every(interval, interval, engine.PhaseReception, -1, func() bool {
			s.sample()
			return true
		})
	}
	s.mu.Unlock()

	end := s.cfg.Simulation.Duration
	chunk := s.cfg.Simulation.Chunk
	if chunk <= 0 {
		chunk = defaultChunk
	}
	log.Info("starting simulator",
		"drones", s.cfg.Simulation.Drones,
		"duration", end,
		"mac", s.cfg.MAC.Protocol,
		"routing", s.cfg.Routing.Protocol,
		"seed", s.cfg.Simulation.Seed)

	wallStart := time.Now()
	for {
		s.mu.Lock()
		now := s.sched.Now()
		if now >= end {
			s.mu.Unlock()
			break
		}
		next := min(now+chunk, end)
		err := s.sched.RunUntil(ctx, next)
		if err == nil && next == end && !s.sampledAt(end) {
			s.sample()
		}
		s.mu.Unlock()
		s.flush()

		if err != nil {
			log.Info("stopping simulator", "t", s.Now(), "reason", err)
			return err
		}
		if s.pace > 0 {
			due := wallStart.Add(time.Duration(float64(next) / s.pace))
			select {
			case <-time.After(time.Until(due)):
			case <-ctx.Done():
				log.Info("stopping simulator", "t", next, "reason", ctx.Err())
				return ctx.Err()
			}
		}
	}

	sum := s.Metrics()
	log.Info("simulation finished",
		"t", end,
		"events", s.sched.Fired(),
		"generated", sum.Generated,
		"delivered", sum.Delivered,
		"pdr", sum.PDR,
		"e2e_delay_ms", sum.E2EDelayMS,
		"collisions", sum.Collisions)
	return nil
}

// sampledAt reports whether the periodic sampler already covered t.
func (s *Simulator) sampledAt(t time.Duration) bool {
	interval := s.cfg.Simulation.MetricsInterval
	return interval > 0 && t%interval == 0
}
