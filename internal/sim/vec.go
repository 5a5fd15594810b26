package sim

import "math"

const (
	// degenerateEps guards zero-length normalizations and axis-parallel rays.
	degenerateEps = 1e-6
	// centerHitEps is the body-space radius inside which an impact counts as
	// a dead-center hit.
	centerHitEps = 1e-3
)

// Vec3 is a right-handed world-space vector. Y is up; entities yaw in the
// X/Z plane only.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Length() float64   { return math.Sqrt(v.Dot(v)) }
func (v Vec3) LengthSq() float64 { return v.Dot(v) }

// Normalized returns the unit vector, or the +Z identity direction when the
// input is degenerate.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l < degenerateEps {
		return Vec3{0, 0, 1}
	}
	return v.Scale(1.0 / l)
}

// RotateYaw rotates v around the Y axis by the given fraction of a full
// revolution (1.0 turn = 360°). Y is unaffected.
func (v Vec3) RotateYaw(turns float64) Vec3 {
	theta := turns * 2 * math.Pi
	sin, cos := math.Sincos(theta)
	return Vec3{
		X: v.X*cos + v.Z*sin,
		Y: v.Y,
		Z: -v.X*sin + v.Z*cos,
	}
}

// Dist returns the distance between two points.
func Dist(a, b Vec3) float64 {
	return a.Sub(b).Length()
}

// WorldToBody transforms a world-space point into the body frame of an
// entity at origin with the given yaw: translate, then inverse-rotate.
func WorldToBody(p, origin Vec3, headingTurns float64) Vec3 {
	return p.Sub(origin).RotateYaw(-headingTurns)
}

// ForwardFromTurns returns the unit facing vector for a heading in turns.
// Heading 0 faces +Z.
func ForwardFromTurns(turns float64) Vec3 {
	theta := turns * 2 * math.Pi
	sin, cos := math.Sincos(theta)
	return Vec3{X: sin, Y: 0, Z: cos}
}

// HeadingTurns returns the heading in [0,1) that faces along dir's X/Z
// components. A degenerate direction maps to heading 0 (+Z).
func HeadingTurns(dir Vec3) float64 {
	if math.Abs(dir.X) < degenerateEps && math.Abs(dir.Z) < degenerateEps {
		return 0
	}
	t := math.Atan2(dir.X, dir.Z) / (2 * math.Pi)
	if t < 0 {
		t += 1
	}
	return t
}

// WrapTurn wraps a turn delta to [-0.5, 0.5) so stepping always takes the
// short way around.
func WrapTurn(t float64) float64 {
	t = math.Mod(t, 1.0)
	if t >= 0.5 {
		t -= 1
	} else if t < -0.5 {
		t += 1
	}
	return t
}

// wrapHeading wraps an absolute heading to [0, 1).
func wrapHeading(t float64) float64 {
	t = math.Mod(t, 1.0)
	if t < 0 {
		t += 1
	}
	return t
}

// StepTurn moves current toward target along the shortest arc by at most
// maxStep turns. It lands exactly on target when within range — it never
// overshoots into a reversal on the next call.
func StepTurn(current, target, maxStep float64) float64 {
	diff := WrapTurn(target - current)
	if math.Abs(diff) <= maxStep {
		return wrapHeading(target)
	}
	if diff > 0 {
		return wrapHeading(current + maxStep)
	}
	return wrapHeading(current - maxStep)
}
