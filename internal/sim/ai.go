package sim

import (
	"math"
	"math/rand"

	"github.com/rs/zerolog"
)

// AIState is a grabon's current behaviour state. Selection is strict
// priority order, top to bottom, re-evaluated every planning cycle.
type AIState int

const (
	StateIdle AIState = iota // no target detected yet
	StateEvade
	StateReposition
	StateRetreat
	StateCloseDistance
	StateMaintainDistance
	StateAttack
)

func (s AIState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEvade:
		return "evade"
	case StateReposition:
		return "reposition"
	case StateRetreat:
		return "retreat"
	case StateCloseDistance:
		return "close_distance"
	case StateMaintainDistance:
		return "maintain_distance"
	case StateAttack:
		return "attack"
	default:
		return "unknown"
	}
}

// Desired speed as a fraction of configured max, per state.
const (
	speedFracRetreat    = 1.0
	speedFracEvade      = 0.8
	speedFracClose      = 0.7
	speedFracAttack     = 0.7
	speedFracMaintain   = 0.3
	speedFracReposition = 0.5
)

// Mind is one grabon's planning state. Between planning passes the entity
// executes the cached heading/speed decision — a deliberately slow OODA
// loop that still reacts fast to direct threats via forced re-plans.
type Mind struct {
	State          AIState
	DesiredHeading float64 // turns
	DesiredSpeed   float64 // world units/s
	LastPlanTime   float64
	PlanInterval   float64 // re-rolled after each planning pass

	TargetDetected bool
	TargetPos      Vec3 // refreshed every tick once detected

	LastHitFrom Vec3
	LastHitTime float64
	UnderFire   bool

	CollisionDetected bool
	ObstaclePos       Vec3

	lastFireTimes []float64 // per weapon slot
}

// AISystem drives every grabon's decision loop: detection, planning,
// heading/speed control, and per-weapon fire gating. The RNG is injected so
// planning-interval rolls are reproducible under test.
type AISystem struct {
	tuning             AITuning
	shieldAbsorbChance float64
	subsystems         *SubsystemManager
	rng                *rand.Rand
	log                zerolog.Logger

	now   float64
	minds map[EntityID]*Mind

	// spawnBeam is invoked once per shot with the beam endpoints.
	spawnBeam func(from, to Vec3, hit bool)
}

// NewAISystem creates the AI system with grabon tuning from cfg.
func NewAISystem(cfg *Config, subsystems *SubsystemManager, rng *rand.Rand, log zerolog.Logger) *AISystem {
	return &AISystem{
		tuning:             cfg.Grabon,
		shieldAbsorbChance: cfg.ShieldAbsorbChance,
		subsystems:         subsystems,
		rng:                rng,
		log:                log,
		minds:              make(map[EntityID]*Mind),
	}
}

// SetBeamSpawner registers the effect hook called on every shot.
func (ai *AISystem) SetBeamSpawner(fn func(from, to Vec3, hit bool)) {
	ai.spawnBeam = fn
}

// Now returns the accumulated simulation clock in seconds.
func (ai *AISystem) Now() float64 { return ai.now }

// MindOf returns a grabon's planning state, or nil if it has never been
// updated.
func (ai *AISystem) MindOf(id EntityID) *Mind { return ai.minds[id] }

// OnEnemyDamaged records an incoming hit: remembers where it came from,
// marks the grabon under fire, and zeroes the plan clock with a short
// interval so the planner re-evaluates almost immediately.
func (ai *AISystem) OnEnemyDamaged(id EntityID, attackerPos Vec3) {
	m, ok := ai.minds[id]
	if !ok {
		return
	}
	m.LastHitFrom = attackerPos
	m.LastHitTime = ai.now
	m.UnderFire = true
	m.LastPlanTime = 0
	m.PlanInterval = ai.tuning.ForcedPlanInterval
}

// UpdateGrabonAI runs one fixed-timestep tick for every grabon in enemies:
// sticky target detection, cadenced or forced planning, cached-decision
// execution, movement along current facing, and weapon fire. objects are
// additional obstacles (satellites, debris) for the avoidance scan.
func (ai *AISystem) UpdateGrabonAI(dt float64, enemies []*Entity, player *Entity, objects []*Entity) {
	ai.now += dt

	for _, e := range enemies {
		if e == nil || e.Destroyed || e.Class != ClassGrabon {
			continue
		}
		m := ai.ensureMind(e)

		// Detection is sticky: once triggered by range the target is never
		// lost, and its tracked position refreshes every tick.
		if player != nil && !player.Destroyed {
			if !m.TargetDetected && Dist(e.Pos, player.Pos) <= ai.tuning.DetectionRange {
				m.TargetDetected = true
				ai.log.Debug().Int("grabon", int(e.ID)).Msg("target detected")
			}
			if m.TargetDetected {
				m.TargetPos = player.Pos
			}
		}

		// Avoidance conditions force an immediate re-plan; otherwise the
		// randomized cadence applies.
		ai.scanObstacles(e, m, enemies, player, objects)
		tooClose := m.TargetDetected && Dist(e.Pos, m.TargetPos) < ai.tuning.MinSafeDistance
		if m.CollisionDetected || tooClose || ai.now-m.LastPlanTime >= m.PlanInterval {
			ai.plan(e, m)
		}

		ai.execute(e, m, dt)

		if m.TargetDetected && player != nil && !player.Destroyed {
			ai.fireWeapons(e, m, player)
		}
	}
}

func (ai *AISystem) ensureMind(e *Entity) *Mind {
	m, ok := ai.minds[e.ID]
	if !ok {
		// PlanInterval zero so the first update plans immediately.
		m = &Mind{
			State:          StateIdle,
			DesiredHeading: e.HeadingTurns,
			lastFireTimes:  newFireClocks(len(ai.tuning.Weapons)),
		}
		ai.minds[e.ID] = m
	}
	return m
}

func newFireClocks(n int) []float64 {
	clocks := make([]float64, n)
	for i := range clocks {
		clocks[i] = math.Inf(-1) // every weapon ready at mission start
	}
	return clocks
}

// scanObstacles finds the nearest live entity within the proximity
// threshold among the player, the other grabons, and spawned objects.
func (ai *AISystem) scanObstacles(e *Entity, m *Mind, enemies []*Entity, player *Entity, objects []*Entity) {
	m.CollisionDetected = false
	best := ai.tuning.ObstacleRange

	consider := func(o *Entity) {
		if o == nil || o.Destroyed || o.ID == e.ID {
			return
		}
		d := Dist(e.Pos, o.Pos)
		if d < best {
			best = d
			m.CollisionDetected = true
			m.ObstaclePos = o.Pos
		}
	}

	consider(player)
	for _, o := range enemies {
		consider(o)
	}
	for _, o := range objects {
		consider(o)
	}
}

// plan runs one priority-ordered state selection pass and caches the
// heading/speed decision, then re-rolls the next planning interval.
func (ai *AISystem) plan(e *Entity, m *Mind) {
	t := &ai.tuning

	targetDist := math.MaxFloat64
	if m.TargetDetected {
		targetDist = Dist(e.Pos, m.TargetPos)
	}
	tooClose := m.TargetDetected && targetDist < t.MinSafeDistance

	prev := m.State
	switch {
	case !m.TargetDetected:
		m.State = StateIdle
	case m.CollisionDetected || tooClose:
		m.State = StateEvade
	case m.UnderFire && ai.attackerBearingDot(e, m) < t.BlindSpotDot:
		// Attacker in the blind spot: turn to face before anything else.
		m.State = StateReposition
	case e.HealthFrac() < t.RetreatHealthFrac:
		m.State = StateRetreat
	case targetDist > t.AttackRange:
		m.State = StateCloseDistance
	case targetDist < t.AttackRange/2:
		m.State = StateMaintainDistance
	default:
		m.State = StateAttack
	}

	m.DesiredHeading, m.DesiredSpeed = ai.decide(e, m)
	m.LastPlanTime = ai.now
	m.PlanInterval = t.PlanIntervalMin + ai.rng.Float64()*(t.PlanIntervalMax-t.PlanIntervalMin)

	if m.State != prev {
		ai.log.Debug().Int("grabon", int(e.ID)).
			Stringer("from", prev).Stringer("to", m.State).
			Msg("state change")
	}
}

// attackerBearingDot is forward·toAttacker; below the blind-spot threshold
// the attacker sits outside the forward cone and cannot be answered without
// repositioning.
func (ai *AISystem) attackerBearingDot(e *Entity, m *Mind) float64 {
	return e.Forward().Dot(m.LastHitFrom.Sub(e.Pos).Normalized())
}

// decide maps the selected state to a desired heading and speed. The
// default arm always moves toward the target, so a decision always exists.
func (ai *AISystem) decide(e *Entity, m *Mind) (heading, speed float64) {
	t := &ai.tuning
	toTarget := m.TargetPos.Sub(e.Pos)

	switch m.State {
	case StateIdle:
		return e.HeadingTurns, 0
	case StateEvade:
		if m.CollisionDetected {
			// Break perpendicular to the nearest obstacle.
			perp := m.ObstaclePos.Sub(e.Pos).RotateYaw(0.25)
			return HeadingTurns(perp), speedFracEvade * t.MaxSpeed
		}
		return HeadingTurns(toTarget.Scale(-1)), speedFracEvade * t.MaxSpeed
	case StateReposition:
		// Face the last known attacker, overriding target tracking.
		return HeadingTurns(m.LastHitFrom.Sub(e.Pos)), speedFracReposition * t.MaxSpeed
	case StateRetreat:
		return HeadingTurns(toTarget.Scale(-1)), speedFracRetreat * t.MaxSpeed
	case StateMaintainDistance:
		return HeadingTurns(toTarget.Scale(-1)), speedFracMaintain * t.MaxSpeed
	case StateCloseDistance:
		return HeadingTurns(toTarget), speedFracClose * t.MaxSpeed
	case StateAttack:
		return HeadingTurns(toTarget), speedFracAttack * t.MaxSpeed
	}
	return HeadingTurns(toTarget), speedFracAttack * t.MaxSpeed
}

// execute advances heading, speed, and position by one tick from the cached
// decision, independent of the planning cadence.
func (ai *AISystem) execute(e *Entity, m *Mind, dt float64) {
	t := &ai.tuning

	step := t.TurnRate * dt
	if m.State == StateReposition {
		step *= t.RepositionTurnMul
	}
	e.HeadingTurns = StepTurn(e.HeadingTurns, m.DesiredHeading, step)

	// REPOSITION self-exits once roughly aligned with the attacker; clearing
	// under-fire lets the next planning cycle fall through to ATTACK.
	if m.State == StateReposition {
		toAttacker := m.LastHitFrom.Sub(e.Pos).Normalized()
		if e.Forward().Dot(toAttacker) >= t.RepositionExitDot {
			m.UnderFire = false
		}
	}

	if e.EnginesDisabled {
		e.Speed = 0
	} else {
		ease := 1 - math.Exp(-t.SpeedEase*dt)
		e.Speed += (m.DesiredSpeed - e.Speed) * ease
	}

	// No strafing: movement is always along current facing.
	e.Pos = e.Pos.Add(e.Forward().Scale(e.Speed * dt))
}

// fireWeapons runs the per-slot gate every tick: target in this weapon's
// range, inside its firing arc (dot for magnitude, cross sign for side),
// and past its own fire-rate cooldown.
func (ai *AISystem) fireWeapons(e *Entity, m *Mind, target *Entity) {
	if e.WeaponsDisabled {
		return
	}
	if len(m.lastFireTimes) != len(ai.tuning.Weapons) {
		m.lastFireTimes = newFireClocks(len(ai.tuning.Weapons))
	}

	for i := range ai.tuning.Weapons {
		w := &ai.tuning.Weapons[i]
		if !WeaponReady(ai.now, m.lastFireTimes[i], e, target, w) {
			continue
		}
		m.lastFireTimes[i] = ai.now

		muzzle := e.Pos.Add(w.Muzzle.RotateYaw(e.HeadingTurns))
		ai.ResolveShot(e, target, muzzle, w.Damage)
	}
}

// WeaponReady reports whether a weapon slot may fire at target right now:
// target inside this weapon's range, inside its firing arc (forward·toTarget
// dot for angle magnitude, cross sign for left/right), and at least
// FireRate seconds since the slot's own last shot.
func WeaponReady(now, lastFire float64, shooter, target *Entity, w *WeaponConfig) bool {
	toTarget := target.Pos.Sub(shooter.Pos)
	if toTarget.Length() > w.Range {
		return false
	}
	fwd := shooter.Forward()
	dir := toTarget.Normalized()
	if fwd.Dot(dir) < w.ArcDot {
		return false
	}
	if w.Side != SideAny {
		// cross(forward, toTarget).Y > 0 means the target is to starboard.
		side := fwd.Cross(dir).Y
		if w.Side == SideRight && side <= 0 {
			return false
		}
		if w.Side == SideLeft && side >= 0 {
			return false
		}
	}
	return now-lastFire >= w.FireRate
}

// ResolveShot spawns the beam effect and routes one hit's damage: shield
// absorption is attempted first (an absorbed hit burns the shield subsystem
// instead), then directional subsystem routing, then hull damage when no
// subsystem intersects. Death detection and cleanup stay with the caller.
func (ai *AISystem) ResolveShot(shooter, target *Entity, muzzle Vec3, damage float64) *DamageResult {
	if ai.spawnBeam != nil {
		ai.spawnBeam(muzzle, target.Pos, true)
	}

	if !ai.subsystems.IsDestroyed(target.ID, SubsystemShields) {
		if _, registered := ai.subsystems.GetHealth(target.ID, SubsystemShields); registered {
			if ai.rng.Float64() < ai.shieldAbsorbChance {
				return ai.subsystems.DamageSubsystem(target.ID, SubsystemShields, damage)
			}
		}
	}

	res := ai.subsystems.ApplyDirectionalDamage(target.ID, target.Pos, target.HeadingTurns, muzzle, damage)
	if res == nil {
		target.DamageHull(damage)
	}
	return res
}
