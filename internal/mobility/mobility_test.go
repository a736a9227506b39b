package mobility

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"uavnet-sim/internal/engine"
	"uavnet-sim/internal/geo"
)

type model interface {
	Start()
	Position() geo.Vec3
	Speed() float64
}

func TestModelsStayInsideArea(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Speed = 80
	tests := []struct {
		name string
		make func(*engine.Scheduler) model
	}{
		{"gauss_markov", func(s *engine.Scheduler) model {
			return NewGaussMarkov(s, 0, geo.Vec3{X: 60, Y: 60, Z: 5}, cfg, rand.New(rand.NewSource(7)))
		}},
		{"random_walk", func(s *engine.Scheduler) model {
			return NewRandomWalk(s, 0, geo.Vec3{X: 900, Y: 900, Z: 5}, cfg, rand.New(rand.NewSource(7)))
		}},
		{"random_waypoint", func(s *engine.Scheduler) model {
			return NewRandomWaypoint(s, 0, geo.Vec3{X: 500, Y: 100, Z: 5}, cfg, rand.New(rand.NewSource(7)))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := engine.NewScheduler()
			m := tt.make(s)
			m.Start()
			start := m.Position()
			for i := 0; i < 600; i++ {
				if err := s.RunUntil(context.Background(), time.Duration(i)*cfg.UpdateInterval); err != nil {
					t.Fatalf("RunUntil: %v", err)
				}
				p := m.Position()
				if p.X < cfg.Margin.X || p.X > cfg.Bounds.Length-cfg.Margin.X ||
					p.Y < cfg.Margin.Y || p.Y > cfg.Bounds.Width-cfg.Margin.Y ||
					p.Z < cfg.Margin.Z || p.Z > cfg.Bounds.Height-cfg.Margin.Z {
					t.Fatalf("left the area at step %d: %+v", i, p)
				}
			}
			if m.Position() == start {
				t.Fatalf("drone never moved")
			}
			if m.Speed() < 0 || math.IsNaN(m.Speed()) {
				t.Fatalf("invalid speed %v", m.Speed())
			}
		})
	}
}

func TestGaussMarkovIsReproducible(t *testing.T) {
	run := func() geo.Vec3 {
		s := engine.NewScheduler()
		g := NewGaussMarkov(s, 3, geo.Vec3{X: 500, Y: 500, Z: 5}, DefaultConfig(), rand.New(rand.NewSource(42)))
		g.Start()
		if err := s.RunUntil(context.Background(), 10*time.Second); err != nil {
			t.Fatalf("RunUntil: %v", err)
		}
		return g.Position()
	}
	if a, b := run(), run(); a != b {
		t.Fatalf("same seed gave %v and %v", a, b)
	}
}

func TestStatic(t *testing.T) {
	s := NewStatic(geo.Vec3{X: 1, Y: 2, Z: 3})
	if s.Position() != (geo.Vec3{X: 1, Y: 2, Z: 3}) || s.Velocity() != (geo.Vec3{}) || s.Speed() != 0 {
		t.Fatalf("static model moved")
	}
}

func TestRandomWaypointPausesAtEachWaypoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Speed = 80
	cfg.Pause = time.Second
	s := engine.NewScheduler()
	w := NewRandomWaypoint(s, 0, geo.Vec3{X: 500, Y: 500, Z: 5}, cfg, rand.New(rand.NewSource(3)))
	w.Start()

	target := w.Target()
	for i := 1; i <= 1200 && w.Reached() == 0; i++ {
		if err := s.RunUntil(context.Background(), time.Duration(i)*cfg.UpdateInterval); err != nil {
			t.Fatalf("RunUntil: %v", err)
		}
	}
	if w.Reached() != 1 {
		t.Fatalf("no waypoint reached in two minutes")
	}
	if w.Position() != target {
		t.Fatalf("stopped at %+v, want waypoint %+v", w.Position(), target)
	}
	if w.Speed() != 0 {
		t.Fatalf("speed while paused = %v, want 0", w.Speed())
	}

	arrived := s.Now()
	if err := s.RunUntil(context.Background(), arrived+cfg.Pause-cfg.UpdateInterval); err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	if w.Position() != target {
		t.Fatalf("moved during the pause to %+v", w.Position())
	}
	if err := s.RunUntil(context.Background(), arrived+cfg.Pause+2*cfg.UpdateInterval); err != nil {
		t.Fatalf("RunUntil: %v", err)
	}
	if w.Position() == target {
		t.Fatalf("never left the waypoint after the pause")
	}
	if math.Abs(w.Speed()-cfg.Speed) > 1e-9 {
		t.Fatalf("speed after the pause = %v, want %v", w.Speed(), cfg.Speed)
	}
}
