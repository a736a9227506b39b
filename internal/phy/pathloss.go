package phy

import (
	"math"

	"uavnet-sim/internal/geo"
	"uavnet-sim/internal/node"
)

// LightSpeed in m/s.
const LightSpeed = 3e8

// PathLoss is a free-space style channel: received power falls with distance
// to the power of Exponent. It implements node.Channel.
type PathLoss struct {
	TxPower   float64 // W
	Noise     float64 // W
	Frequency float64 // Hz
	Exponent  float64
}

// DefaultPathLoss returns a 2.4 GHz channel with 0.1 W transmitters.
func DefaultPathLoss() PathLoss {
	return PathLoss{TxPower: 0.1, Noise: 1e-9, Frequency: 2.4e9, Exponent: 2}
}

// ReceivedPower returns the power in W received at distance d metres. The
// gain is capped at one, so a co-located transmitter arrives at full power.
func (m PathLoss) ReceivedPower(d float64) float64 {
	if d <= 0 {
		return m.TxPower
	}
	gain := math.Pow(LightSpeed/(4*math.Pi*m.Frequency*d), m.Exponent)
	if gain > 1 {
		gain = 1
	}
	return m.TxPower * gain
}

// SNR returns the interference-free signal-to-noise ratio in dB at distance d.
func (m PathLoss) SNR(d float64) float64 {
	return toDB(m.ReceivedPower(d) / m.Noise)
}

// SINR computes, for each candidate, the ratio of its received power to the
// noise plus the power of every other overlapping transmitter. A receiver
// that was itself transmitting appears in interferers at distance zero.
func (m PathLoss) SINR(rx int, candidates []node.Signal, interferers []int, position func(int) geo.Vec3) []float64 {
	at := position(rx)
	power := func(tx int) float64 {
		if tx == rx {
			return m.TxPower
		}
		return m.ReceivedPower(geo.Distance(at, position(tx)))
	}
	out := make([]float64, len(candidates))
	for i, c := range candidates {
		signal := power(c.Transmitter)
		interference := 0.0
		for _, tx := range interferers {
			if tx == c.Transmitter {
				continue
			}
			interference += power(tx)
		}
		out[i] = toDB(signal / (m.Noise + interference))
	}
	return out
}

// Overlaps reports whether two windows share any instant. Touching windows do not overlap.
func (PathLoss) Overlaps(a, b node.Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

func toDB(x float64) float64 { return 10 * math.Log10(x) }
