package geo

import "math"

// Vec3 is a point or vector in metres.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

func (v Vec3) Scale(k float64) Vec3 { return Vec3{v.X * k, v.Y * k, v.Z * k} }

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec3) float64 { return a.Sub(b).Norm() }

// Bounds is an axis-aligned box anchored at the origin.
type Bounds struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Clamp keeps v inside b shrunk by the given margins on every face.
func (b Bounds) Clamp(v Vec3, margin Vec3) Vec3 {
	return Vec3{
		X: clamp(v.X, margin.X, b.Length-margin.X),
		Y: clamp(v.Y, margin.Y, b.Width-margin.Y),
		Z: clamp(v.Z, margin.Z, b.Height-margin.Z),
	}
}

func clamp(x, lo, hi float64) float64 {
	if hi < lo {
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(hi, x))
}
