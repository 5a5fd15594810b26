package sim

import (
	"math"

	"github.com/rs/zerolog"
)

// Subsystem identifies one of the five fixed ship subsystems.
type Subsystem int

const (
	SubsystemWeapons Subsystem = iota
	SubsystemEngines
	SubsystemShields
	SubsystemSensors
	SubsystemLifeSupport
)

func (s Subsystem) String() string {
	switch s {
	case SubsystemWeapons:
		return "weapons"
	case SubsystemEngines:
		return "engines"
	case SubsystemShields:
		return "shields"
	case SubsystemSensors:
		return "sensors"
	case SubsystemLifeSupport:
		return "life_support"
	default:
		return "unknown"
	}
}

// AllSubsystems lists every subsystem in a stable order.
var AllSubsystems = [...]Subsystem{
	SubsystemWeapons,
	SubsystemEngines,
	SubsystemShields,
	SubsystemSensors,
	SubsystemLifeSupport,
}

// subsystemByName maps config-file names back to the enum.
var subsystemByName = map[string]Subsystem{
	"weapons":      SubsystemWeapons,
	"engines":      SubsystemEngines,
	"shields":      SubsystemShields,
	"sensors":      SubsystemSensors,
	"life_support": SubsystemLifeSupport,
}

// SubsystemState is one subsystem's live health record plus its local-space
// hitbox. Invariant: Health ∈ [0, MaxHealth]; Destroyed ⇔ Health == 0, and
// the flag stays set until a repair raises health above zero.
type SubsystemState struct {
	Health    float64
	MaxHealth float64
	Destroyed bool
	Offset    Vec3 // hitbox center, body space
	HalfSize  Vec3 // hitbox half-extents, body space
}

// DamageResult reports which subsystem a directional hit landed on.
type DamageResult struct {
	Subsystem Subsystem
	Destroyed bool
}

// SubsystemManager owns every entity's subsystem registry and routes
// directional damage into it via body-space ray casting.
type SubsystemManager struct {
	templates map[string]ArchetypeConfig
	states    map[EntityID]map[Subsystem]*SubsystemState
	drainRate float64 // hull damage/s while life support is out
	log       zerolog.Logger

	// damageNotify is the sole coupling between "got shot" and the AI
	// planner; the sim wires it to AISystem.OnEnemyDamaged.
	damageNotify func(id EntityID, attackerPos Vec3)
}

// NewSubsystemManager creates a manager using the archetype templates and
// damage-over-time rate from cfg.
func NewSubsystemManager(cfg *Config, log zerolog.Logger) *SubsystemManager {
	return &SubsystemManager{
		templates: cfg.Archetypes,
		states:    make(map[EntityID]map[Subsystem]*SubsystemState),
		drainRate: cfg.LifeSupportDrainPerSec,
		log:       log,
	}
}

// SetDamageNotify registers the planner callback invoked by OnEntityDamaged.
func (m *SubsystemManager) SetDamageNotify(fn func(id EntityID, attackerPos Vec3)) {
	m.damageNotify = fn
}

// InitEntity instantiates fresh, undamaged subsystem records for id from the
// named archetype template. An unknown archetype is a logged no-op, never
// fatal: the entity simply has no subsystems and behaves inertly.
func (m *SubsystemManager) InitEntity(id EntityID, archetype string) {
	tpl, ok := m.templates[archetype]
	if !ok {
		m.log.Warn().Str("archetype", archetype).Int("entity", int(id)).
			Msg("unknown archetype, no subsystems registered")
		return
	}
	reg := make(map[Subsystem]*SubsystemState, len(tpl.Subsystems))
	for name, t := range tpl.Subsystems {
		sub, ok := subsystemByName[name]
		if !ok {
			m.log.Warn().Str("archetype", archetype).Str("subsystem", name).
				Msg("unknown subsystem name in template, skipped")
			continue
		}
		reg[sub] = &SubsystemState{
			Health:    t.MaxHealth,
			MaxHealth: t.MaxHealth,
			Offset:    t.Offset,
			HalfSize:  t.HalfSize,
		}
	}
	m.states[id] = reg
}

// RemoveEntity drops an entity's registry (confirmed death, mission end).
func (m *SubsystemManager) RemoveEntity(id EntityID) {
	delete(m.states, id)
}

// ApplyDirectionalDamage transforms the impact origin into the entity's body
// frame, casts a ray from the impact point toward the body center, and
// applies damage to the first subsystem hitbox the ray crosses — the shot
// hits whatever faces the attacker first. A dead-center impact skips the ray
// and is attributed to life support. Returns nil when no subsystem
// intersects, in which case the caller applies hull damage instead.
func (m *SubsystemManager) ApplyDirectionalDamage(id EntityID, entityPos Vec3, headingTurns float64, impactOrigin Vec3, damage float64) *DamageResult {
	reg, ok := m.states[id]
	if !ok || len(reg) == 0 {
		return nil
	}

	local := WorldToBody(impactOrigin, entityPos, headingTurns)
	if local.Length() < centerHitEps {
		// Center hits are always critical.
		if st, ok := reg[SubsystemLifeSupport]; ok {
			return m.damageSubsystem(id, SubsystemLifeSupport, st, damage)
		}
		return nil
	}
	dir := local.Scale(-1).Normalized()

	bestDist := math.MaxFloat64
	bestSub := SubsystemWeapons
	var bestState *SubsystemState
	for _, sub := range AllSubsystems {
		st, ok := reg[sub]
		if !ok || st.Destroyed {
			continue
		}
		boxMin := st.Offset.Sub(st.HalfSize)
		boxMax := st.Offset.Add(st.HalfSize)
		dist, hit := rayBoxHit(local, dir, boxMin, boxMax)
		if hit && dist >= 0 && dist < bestDist {
			bestDist = dist
			bestSub = sub
			bestState = st
		}
	}
	if bestState == nil {
		return nil
	}
	return m.damageSubsystem(id, bestSub, bestState, damage)
}

func (m *SubsystemManager) damageSubsystem(id EntityID, sub Subsystem, st *SubsystemState, damage float64) *DamageResult {
	if damage > 0 {
		st.Health -= damage
	}
	if st.Health <= 0 {
		st.Health = 0
		if !st.Destroyed {
			st.Destroyed = true
			m.log.Info().Int("entity", int(id)).Stringer("subsystem", sub).
				Msg("subsystem destroyed")
		}
	}
	return &DamageResult{Subsystem: sub, Destroyed: st.Destroyed}
}

// DamageSubsystem applies damage directly to a named subsystem, bypassing
// directional routing (shield absorption, scripted events). Nil when the
// entity or subsystem is unregistered.
func (m *SubsystemManager) DamageSubsystem(id EntityID, sub Subsystem, damage float64) *DamageResult {
	st, ok := m.state(id, sub)
	if !ok {
		return nil
	}
	return m.damageSubsystem(id, sub, st, damage)
}

// rayBoxHit runs the 3-axis slab test of a ray against an AABB. An
// axis-parallel ray whose origin lies outside that axis's slab cannot hit.
// A valid hit needs tMin ≤ tMax and tMax ≥ 0; the reported distance is tMin
// when positive (entry ahead of the origin), else tMax (origin inside the
// box).
func rayBoxHit(origin, dir, boxMin, boxMax Vec3) (float64, bool) {
	tMin := math.Inf(-1)
	tMax := math.Inf(1)

	origins := [3]float64{origin.X, origin.Y, origin.Z}
	dirs := [3]float64{dir.X, dir.Y, dir.Z}
	mins := [3]float64{boxMin.X, boxMin.Y, boxMin.Z}
	maxs := [3]float64{boxMax.X, boxMax.Y, boxMax.Z}

	for i := 0; i < 3; i++ {
		o, d := origins[i], dirs[i]
		if math.Abs(d) < degenerateEps {
			if o < mins[i] || o > maxs[i] {
				return 0, false
			}
			continue
		}
		t1 := (mins[i] - o) / d
		t2 := (maxs[i] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
	}
	if tMin > tMax || tMax < 0 {
		return 0, false
	}
	if tMin > 0 {
		return tMin, true
	}
	return tMax, true
}

// Repair raises a subsystem's health by amount, clamped at max. The
// destroyed flag clears the instant health is above zero. Returns true when
// the subsystem is back at full health.
func (m *SubsystemManager) Repair(id EntityID, sub Subsystem, amount float64) bool {
	st, ok := m.state(id, sub)
	if !ok {
		return false
	}
	if amount > 0 {
		st.Health = math.Min(st.MaxHealth, st.Health+amount)
	}
	if st.Health > 0 {
		st.Destroyed = false
	}
	return st.Health >= st.MaxHealth
}

// ApplyEffects recomputes the five disablement flags from subsystem health,
// once per tick per live entity, with side effects: dead engines force speed
// to zero, a dead sensor suite drops the player's target lock, and dead life
// support drains hull health continuously.
func (m *SubsystemManager) ApplyEffects(e *Entity, dt float64) {
	reg := m.states[e.ID]

	e.WeaponsDisabled = m.regDestroyed(reg, SubsystemWeapons)
	e.EnginesDisabled = m.regDestroyed(reg, SubsystemEngines)
	e.ShieldsDisabled = m.regDestroyed(reg, SubsystemShields)
	e.SensorsDisabled = m.regDestroyed(reg, SubsystemSensors)
	e.LifeSupportDisabled = m.regDestroyed(reg, SubsystemLifeSupport)

	if e.EnginesDisabled {
		e.Speed = 0
	}
	if e.SensorsDisabled && e.Class == ClassPlayer {
		e.TargetLock = NoEntity
	}
	if e.LifeSupportDisabled && !e.Destroyed {
		e.Health -= m.drainRate * dt
		if e.Health <= 0 {
			e.Health = 0
			e.Destroyed = true
		}
	}
}

func (m *SubsystemManager) regDestroyed(reg map[Subsystem]*SubsystemState, sub Subsystem) bool {
	if reg == nil {
		return false
	}
	st, ok := reg[sub]
	return ok && st.Destroyed
}

// OnEntityDamaged records an incoming hit against an enemy and forces its
// planner to re-plan almost immediately.
func (m *SubsystemManager) OnEntityDamaged(enemy *Entity, attackerPos Vec3) {
	if enemy == nil || m.damageNotify == nil {
		return
	}
	m.damageNotify(enemy.ID, attackerPos)
}

// GetAllStates returns a copy of an entity's subsystem records for
// rendering and UI. Nil when the entity has no registry.
func (m *SubsystemManager) GetAllStates(id EntityID) map[Subsystem]SubsystemState {
	reg, ok := m.states[id]
	if !ok {
		return nil
	}
	out := make(map[Subsystem]SubsystemState, len(reg))
	for sub, st := range reg {
		out[sub] = *st
	}
	return out
}

// GetHealth returns a subsystem's current health; ok is false when the
// entity or subsystem is unregistered.
func (m *SubsystemManager) GetHealth(id EntityID, sub Subsystem) (float64, bool) {
	st, ok := m.state(id, sub)
	if !ok {
		return 0, false
	}
	return st.Health, true
}

// IsDestroyed reports whether a subsystem is destroyed. Unregistered
// entities and subsystems report false.
func (m *SubsystemManager) IsDestroyed(id EntityID, sub Subsystem) bool {
	st, ok := m.state(id, sub)
	return ok && st.Destroyed
}

func (m *SubsystemManager) state(id EntityID, sub Subsystem) (*SubsystemState, bool) {
	reg, ok := m.states[id]
	if !ok {
		return nil, false
	}
	st, ok := reg[sub]
	return st, ok
}
