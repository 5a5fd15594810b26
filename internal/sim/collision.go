package sim

import "math"

// CollisionHit is one currently-overlapping enemy reported by
// ProcessEnemyCollisions. IsNew is true only on the first tick of a
// contiguous overlap episode, letting callers fire one-shot events on entry
// while still applying per-tick effects for the whole overlap.
type CollisionHit struct {
	Enemy *Entity
	IsNew bool
}

// CollisionSystem runs exact shape tests between the small fixed set of
// entities — no broad phase. The pairwise ledger records "currently
// overlapping" so new contact can be distinguished from continuation.
type CollisionSystem struct {
	ledger map[EntityID]map[EntityID]bool
}

// NewCollisionSystem creates an empty collision system.
func NewCollisionSystem() *CollisionSystem {
	return &CollisionSystem{ledger: make(map[EntityID]map[EntityID]bool)}
}

// Reset clears the overlap ledger. Must be called when the entity set is
// rebuilt (mission reload) so stale cross-run entries cannot leak.
func (cs *CollisionSystem) Reset() {
	cs.ledger = make(map[EntityID]map[EntityID]bool)
}

// BuildBox returns the world-space AABB for a box of the given half-extents
// centered at pos.
func BuildBox(pos, halfSize Vec3) (min, max Vec3) {
	min = pos.Sub(halfSize)
	max = pos.Add(halfSize)
	return min, max
}

// CheckBoxBox reports whether two AABBs overlap. Strict inequalities:
// touching faces do not collide.
func CheckBoxBox(min1, max1, min2, max2 Vec3) bool {
	return min1.X < max2.X && max1.X > min2.X &&
		min1.Y < max2.Y && max1.Y > min2.Y &&
		min1.Z < max2.Z && max1.Z > min2.Z
}

// CheckBoxSphere reports whether an AABB and a sphere overlap. The sphere
// center is clamped to the box to find the closest point; they collide iff
// that point is strictly inside the radius.
func CheckBoxSphere(min, max, center Vec3, radius float64) bool {
	closest := Vec3{
		X: math.Max(min.X, math.Min(center.X, max.X)),
		Y: math.Max(min.Y, math.Min(center.Y, max.Y)),
		Z: math.Max(min.Z, math.Min(center.Z, max.Z)),
	}
	return closest.Sub(center).LengthSq() < radius*radius
}

// ProcessEnemyCollisions tests self's box against every live enemy box and
// returns one entry per currently-overlapping enemy, every tick, so callers
// can apply repeated per-tick ram damage. Enemies without a box collider are
// skipped silently.
func (cs *CollisionSystem) ProcessEnemyCollisions(selfID EntityID, selfPos Vec3, selfCollider *Collider, enemies []*Entity) []CollisionHit {
	if selfCollider == nil || selfCollider.Kind != ColliderBox {
		return nil
	}
	selfMin, selfMax := BuildBox(selfPos, selfCollider.HalfSize)

	var hits []CollisionHit
	for _, enemy := range enemies {
		if enemy == nil || enemy.Destroyed || enemy.ID == selfID {
			continue
		}
		c := enemy.Collider
		if c == nil || c.Kind != ColliderBox {
			continue
		}
		eMin, eMax := BuildBox(enemy.Pos, c.HalfSize)
		if CheckBoxBox(selfMin, selfMax, eMin, eMax) {
			isNew := !cs.marked(selfID, enemy.ID)
			cs.mark(selfID, enemy.ID)
			hits = append(hits, CollisionHit{Enemy: enemy, IsNew: isNew})
		} else {
			cs.clear(selfID, enemy.ID)
		}
	}
	return hits
}

// CheckPlanetCollision tests an entity's world box against each planet's
// sphere and returns the first colliding planet, or nil.
func (cs *CollisionSystem) CheckPlanetCollision(pos Vec3, collider *Collider, planets []*Entity) *Entity {
	if collider == nil || collider.Kind != ColliderBox {
		return nil
	}
	min, max := BuildBox(pos, collider.HalfSize)
	for _, p := range planets {
		if p == nil || p.Collider == nil || p.Collider.Kind != ColliderSphere {
			continue
		}
		if CheckBoxSphere(min, max, p.Pos, p.Collider.Radius) {
			return p
		}
	}
	return nil
}

func (cs *CollisionSystem) marked(a, b EntityID) bool {
	return cs.ledger[a][b]
}

func (cs *CollisionSystem) mark(a, b EntityID) {
	m, ok := cs.ledger[a]
	if !ok {
		m = make(map[EntityID]bool)
		cs.ledger[a] = m
	}
	m[b] = true
}

func (cs *CollisionSystem) clear(a, b EntityID) {
	if m, ok := cs.ledger[a]; ok {
		delete(m, b)
	}
}
