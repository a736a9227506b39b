package sim

import (
	"fmt"
	"log/slog"
	"math/rand"

	"uavnet-sim/internal/config"
	"uavnet-sim/internal/energy"
	"uavnet-sim/internal/engine"
	"uavnet-sim/internal/geo"
	"uavnet-sim/internal/mac"
	"uavnet-sim/internal/metrics"
	"uavnet-sim/internal/mobility"
	"uavnet-sim/internal/node"
	"uavnet-sim/internal/phy"
	"uavnet-sim/internal/routing"
)

// mobilityModel is what every movement model offers: kinematics for the
// drone and a speed for the propulsion drain.
type mobilityModel interface {
	node.Mobility
	Speed() float64
}

func nodeConfig(c *config.Config) node.Config {
	return node.Config{
		BitRate:             c.Radio.BitRate,
		DataLength:          c.Packet.DataLength,
		PacketLifetime:      c.Packet.Lifetime,
		MaxTTL:              c.Packet.MaxTTL,
		MaxRetransmissions:  c.MAC.MaxRetransmissions,
		SINRThreshold:       c.Radio.SINRThreshold,
		EnergyThreshold:     c.Energy.Threshold,
		PollInterval:        c.Node.PollInterval,
		EnergyCheckInterval: c.Energy.CheckInterval,
		Traffic: node.Traffic{
			Pattern:     c.Traffic.Pattern,
			IntervalMin: c.Traffic.IntervalMin,
			IntervalMax: c.Traffic.IntervalMax,
			Rate:        c.Traffic.Rate,
		},
	}
}

func pathLoss(c *config.Config) phy.PathLoss {
	return phy.PathLoss{
		TxPower:   c.Radio.TxPower,
		Noise:     c.Radio.Noise,
		Frequency: c.Radio.Frequency,
		Exponent:  c.Radio.PathLossExponent,
	}
}

func macConfig(c *config.Config) mac.Config {
	return mac.Config{
		SlotDuration:       c.MAC.Slot,
		SIFS:               c.MAC.SIFS,
		DIFS:               c.MAC.DIFS,
		CWMin:              c.MAC.CWMin,
		CWMax:              c.MAC.CWMax,
		AckTimeout:         c.MAC.AckTimeout,
		MaxRetransmissions: c.MAC.MaxRetransmissions,
	}
}

func routingConfig(c *config.Config) routing.Config {
	rc := routing.DefaultConfig()
	rc.HelloInterval = c.Routing.HelloInterval
	rc.NeighborLifetime = c.Routing.NeighborLifetime
	rc.WaitingCheckInterval = c.Routing.WaitingCheckInterval
	rc.EntryLifetime = c.Routing.EntryLifetime
	rc.RequestBudget = c.Routing.RequestBudget
	rc.LearningRate = c.Routing.LearningRate
	rc.HelloLength = c.Packet.HelloLength
	rc.AckLength = c.Packet.AckLength
	rc.SIFS = c.MAC.SIFS
	return rc
}

func mobilityConfig(c *config.Config) mobility.Config {
	a := c.Simulation.Area
	return mobility.Config{
		Speed:             c.Mobility.Speed,
		UpdateInterval:    c.Mobility.UpdateInterval,
		DirectionInterval: c.Mobility.DirectionInterval,
		Alpha:             c.Mobility.Alpha,
		Bounds:            geo.Bounds{Length: a.Length, Width: a.Width, Height: a.Height},
		Margin:            geo.Vec3{X: c.Mobility.MarginXY, Y: c.Mobility.MarginXY, Z: c.Mobility.MarginZ},
		Pause:             c.Mobility.Pause,
	}
}

func newMobility(model string, sched *engine.Scheduler, owner int, pos geo.Vec3, cfg mobility.Config, rng *rand.Rand) (mobilityModel, error) {
	switch model {
	case mobility.ModelGaussMarkov, "":
		return mobility.NewGaussMarkov(sched, owner, pos, cfg, rng), nil
	case mobility.ModelRandomWalk:
		return mobility.NewRandomWalk(sched, owner, pos, cfg, rng), nil
	case mobility.ModelRandomWaypoint:
		return mobility.NewRandomWaypoint(sched, owner, pos, cfg, rng), nil
	case mobility.ModelStatic:
		return mobility.NewStatic(pos), nil
	default:
		return nil, fmt.Errorf("unknown mobility model %q", model)
	}
}

// randomPosition draws a point inside the area shrunk by the margins.
func randomPosition(rng *rand.Rand, cfg mobility.Config) geo.Vec3 {
	b, m := cfg.Bounds, cfg.Margin
	uniform := func(lo, hi float64) float64 {
		if hi <= lo {
			return (lo + hi) / 2
		}
		return lo + rng.Float64()*(hi-lo)
	}
	return geo.Vec3{
		X: uniform(m.X, b.Length-m.X),
		Y: uniform(m.Y, b.Width-m.Y),
		Z: uniform(m.Z, b.Height-m.Z),
	}
}

// buildNetwork wires every drone of c onto sched. Each drone gets its own
// random stream drawn from the seed so runs are reproducible.
func buildNetwork(c *config.Config, sched *engine.Scheduler, collector *metrics.Collector, log *slog.Logger) (*node.Network, error) {
	net := node.NewNetwork(sched, nodeConfig(c), pathLoss(c), collector, log)
	medium := phy.NewMedium(net, c.Radio.SensingRange)
	mobCfg := mobilityConfig(c)
	macCfg := macConfig(c)
	routeCfg := routingConfig(c)
	master := rand.New(rand.NewSource(c.Simulation.Seed))

	for id := 0; id < c.Simulation.Drones; id++ {
		pos := randomPosition(master, mobCfg)
		mob, err := newMobility(c.Mobility.Model, sched, id, pos, mobCfg, rand.New(rand.NewSource(master.Int63())))
		if err != nil {
			return nil, err
		}
		battery := energy.NewBattery(c.Energy.Initial)
		if c.Energy.Propulsion {
			battery.WithPropulsion(sched, id, energy.DefaultRotor(), mob, c.Energy.PropulsionInterval)
		}

		d := net.AddDrone(mob, battery, rand.New(rand.NewSource(master.Int63())))
		radio := phy.NewRadio(d, medium, c.Radio.TxPower)
		m, err := mac.New(c.MAC.Protocol, d, radio, macCfg)
		if err != nil {
			return nil, err
		}
		r, err := routing.New(c.Routing.Protocol, d, radio, routeCfg)
		if err != nil {
			return nil, err
		}
		d.Install(r, m)
	}
	return net, nil
}
