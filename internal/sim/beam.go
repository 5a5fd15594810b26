package sim

// beamLifetime is how many ticks a beam visual persists.
const beamLifetime = 8

// Beam is a short-lived visual representing one weapon discharge.
type Beam struct {
	From, To Vec3
	Hit      bool
	Age      int // ticks since spawn
}

// Done reports whether the beam should be removed.
func (b *Beam) Done() bool {
	return b.Age >= beamLifetime
}

// EffectManager owns the live beam effects consumed by the viewer.
type EffectManager struct {
	beams []*Beam
}

// NewEffectManager creates an empty effect manager.
func NewEffectManager() *EffectManager {
	return &EffectManager{}
}

// Spawn adds a beam from muzzle to impact point.
func (em *EffectManager) Spawn(from, to Vec3, hit bool) {
	em.beams = append(em.beams, &Beam{From: from, To: to, Hit: hit})
}

// Update ages and prunes beams.
func (em *EffectManager) Update() {
	kept := em.beams[:0]
	for _, b := range em.beams {
		b.Age++
		if !b.Done() {
			kept = append(kept, b)
		}
	}
	em.beams = kept
}

// Active returns the live beam slice for rendering.
func (em *EffectManager) Active() []*Beam {
	return em.beams
}
