package sim

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"
)

// defaultDt is the fixed timestep, seconds per tick.
const defaultDt = 1.0 / 60.0

// CombatSim is the headless simulation context owning every mutable piece
// of combat state: entities, the collision ledger, the subsystem registry,
// and the AI minds. Build one per mission (or per test), run ticks, assert.
type CombatSim struct {
	Cfg    *Config
	SimLog *SimLog
	Tick   int

	Collisions *CollisionSystem
	Subsystems *SubsystemManager
	AI         *AISystem
	Effects    *EffectManager

	player     *Entity
	grabons    []*Entity
	satellites []*Entity
	planets    []*Entity

	dt  float64
	rng *rand.Rand
	log zerolog.Logger

	playerFireClocks []float64
}

// simOptionKind controls the pass in which an option is applied.
type simOptionKind int

const (
	simOptInfra  simOptionKind = iota // config, seed, verbose, dt — applied first
	simOptEntity                      // spawn entities — applied after systems exist
)

// SimOption is a builder function applied to a CombatSim during construction.
type SimOption struct {
	kind simOptionKind
	fn   func(*CombatSim)
}

// WithConfig overrides the default tuning.
func WithConfig(cfg *Config) SimOption {
	return SimOption{simOptInfra, func(s *CombatSim) {
		s.Cfg = cfg
	}}
}

// WithSeed sets the RNG seed for deterministic runs.
func WithSeed(seed int64) SimOption {
	return SimOption{simOptInfra, func(s *CombatSim) {
		s.rng = rand.New(rand.NewSource(seed)) // #nosec G404 -- simulation only
	}}
}

// WithVerbose enables per-tick verbose logging.
func WithVerbose(v bool) SimOption {
	return SimOption{simOptInfra, func(s *CombatSim) {
		s.SimLog = NewSimLog(v)
	}}
}

// WithLogger routes kernel diagnostics to the given logger.
func WithLogger(log zerolog.Logger) SimOption {
	return SimOption{simOptInfra, func(s *CombatSim) {
		s.log = log
	}}
}

// WithTimestep overrides the fixed timestep (seconds per tick).
func WithTimestep(dt float64) SimOption {
	return SimOption{simOptInfra, func(s *CombatSim) {
		if dt > 0 {
			s.dt = dt
		}
	}}
}

// WithPlayer spawns the player ship at (x,y,z) facing +Z. Entity ID 0.
func WithPlayer(x, y, z float64) SimOption {
	return SimOption{simOptEntity, func(s *CombatSim) {
		p := NewPlayer(0, Vec3{x, y, z}, s.Cfg.PlayerMaxHealth)
		s.player = p
		s.Subsystems.InitEntity(p.ID, "player")
	}}
}

// WithGrabon spawns an enemy fighter at (x,y,z) with the given heading.
func WithGrabon(id EntityID, x, y, z, headingTurns float64) SimOption {
	return SimOption{simOptEntity, func(s *CombatSim) {
		g := NewGrabon(id, Vec3{x, y, z}, headingTurns, s.Cfg.GrabonMaxHealth)
		s.grabons = append(s.grabons, g)
		s.Subsystems.InitEntity(g.ID, "grabon")
	}}
}

// WithSatellite spawns a stationary object at (x,y,z).
func WithSatellite(id EntityID, x, y, z float64) SimOption {
	return SimOption{simOptEntity, func(s *CombatSim) {
		sat := NewSatellite(id, Vec3{x, y, z}, s.Cfg.SatelliteMaxHealth)
		s.satellites = append(s.satellites, sat)
		s.Subsystems.InitEntity(sat.ID, "satellite")
	}}
}

// WithPlanet spawns a spherical obstacle at (x,y,z).
func WithPlanet(id EntityID, x, y, z, radius float64) SimOption {
	return SimOption{simOptEntity, func(s *CombatSim) {
		s.planets = append(s.planets, NewPlanet(id, Vec3{x, y, z}, radius))
	}}
}

// NewCombatSim constructs a CombatSim from the given options in two ordered
// passes: infrastructure first (config, seed, verbose, timestep), then
// entity spawns against the built systems.
func NewCombatSim(opts ...SimOption) *CombatSim {
	s := &CombatSim{
		Cfg:    DefaultConfig(),
		SimLog: NewSimLog(false),
		dt:     defaultDt,
		rng:    rand.New(rand.NewSource(1)), // #nosec G404 -- simulation default
		log:    NopLogger(),
	}
	for _, o := range opts {
		if o.kind == simOptInfra {
			o.fn(s)
		}
	}

	s.Collisions = NewCollisionSystem()
	s.Subsystems = NewSubsystemManager(s.Cfg, s.log)
	s.AI = NewAISystem(s.Cfg, s.Subsystems, s.rng, s.log)
	s.Effects = NewEffectManager()
	s.Subsystems.SetDamageNotify(s.AI.OnEnemyDamaged)
	s.AI.SetBeamSpawner(func(from, to Vec3, hit bool) {
		s.Effects.Spawn(from, to, hit)
		s.SimLog.Add(s.Tick, "--", "fire", "beam", fmt.Sprintf("(%.0f,%.0f,%.0f)→(%.0f,%.0f,%.0f)", from.X, from.Y, from.Z, to.X, to.Y, to.Z), 0)
	})
	s.playerFireClocks = newFireClocks(len(s.Cfg.PlayerWeapons))

	for _, o := range opts {
		if o.kind == simOptEntity {
			o.fn(s)
		}
	}
	return s
}

// Player returns the player entity, nil if none was spawned.
func (s *CombatSim) Player() *Entity { return s.player }

// Grabons returns all enemy fighters, including destroyed ones.
func (s *CombatSim) Grabons() []*Entity { return s.grabons }

// Satellites returns all spawned objects.
func (s *CombatSim) Satellites() []*Entity { return s.satellites }

// Planets returns all planetary obstacles.
func (s *CombatSim) Planets() []*Entity { return s.planets }

// Entities returns every entity in the sim.
func (s *CombatSim) Entities() []*Entity {
	out := make([]*Entity, 0, 1+len(s.grabons)+len(s.satellites)+len(s.planets))
	if s.player != nil {
		out = append(out, s.player)
	}
	out = append(out, s.grabons...)
	out = append(out, s.satellites...)
	out = append(out, s.planets...)
	return out
}

// GrabonByID returns the enemy with the given id, or nil.
func (s *CombatSim) GrabonByID(id EntityID) *Entity {
	for _, g := range s.grabons {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// Label returns the SimLog label for an entity.
func Label(e *Entity) string {
	switch e.Class {
	case ClassPlayer:
		return "P"
	case ClassGrabon:
		return fmt.Sprintf("G%d", e.ID)
	case ClassSatellite:
		return fmt.Sprintf("S%d", e.ID)
	case ClassPlanet:
		return fmt.Sprintf("PL%d", e.ID)
	default:
		return "--"
	}
}

// RunTicks advances the simulation n ticks.
func (s *CombatSim) RunTicks(n int) {
	for i := 0; i < n; i++ {
		s.Step()
	}
}

// RunUntil advances the simulation up to maxTicks, stopping early if
// predicate returns true. Returns the tick at which the predicate was
// satisfied, or -1.
func (s *CombatSim) RunUntil(predicate func(*CombatSim) bool, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		s.Step()
		if predicate(s) {
			return s.Tick
		}
	}
	return -1
}

// Step runs one fixed-timestep tick. Ordering is load-bearing: collision
// detection and damage application complete before effect propagation and
// before the AI reads under-fire/health, so hits registered this tick
// influence this tick's decisions deterministically.
func (s *CombatSim) Step() {
	s.Tick++

	prevStates := s.snapshotStates()
	prevDetected := s.snapshotDetection()
	prevDestroyed := s.snapshotDestroyed()

	// 1. Collisions and ram damage.
	s.processCollisions()

	// 2. Subsystem effect propagation.
	for _, e := range s.Entities() {
		if e.Class == ClassPlanet || e.Destroyed {
			continue
		}
		s.Subsystems.ApplyEffects(e, s.dt)
	}

	// 3. Player fire (damage lands before the AI plans).
	s.playerFire()

	// 4. Enemy AI: plan, steer, move, shoot.
	s.AI.UpdateGrabonAI(s.dt, s.grabons, s.player, s.satellites)

	// 5. Effects aging.
	s.Effects.Update()

	// 6. Death cleanup.
	s.reapDestroyed(prevDestroyed)

	s.logTransitions(prevStates, prevDetected)
	if s.player != nil && !s.player.Destroyed {
		s.SimLog.AddVerbose(s.Tick, "P", "move", "position",
			fmt.Sprintf("(%.1f,%.1f,%.1f)", s.player.Pos.X, s.player.Pos.Y, s.player.Pos.Z), 0)
	}
	for _, g := range s.grabons {
		if g.Destroyed {
			continue
		}
		s.SimLog.AddVerbose(s.Tick, Label(g), "move", "position",
			fmt.Sprintf("(%.1f,%.1f,%.1f)", g.Pos.X, g.Pos.Y, g.Pos.Z), g.Speed)
	}
}

func (s *CombatSim) processCollisions() {
	// Player vs enemies: level-triggered ram damage every overlapping tick,
	// edge-triggered log entry on first contact.
	if s.player != nil && !s.player.Destroyed {
		hits := s.Collisions.ProcessEnemyCollisions(s.player.ID, s.player.Pos, s.player.Collider, s.grabons)
		for _, h := range hits {
			kind := "continuing"
			if h.IsNew {
				kind = "new"
			}
			s.SimLog.Add(s.Tick, Label(h.Enemy), "collision", kind, "ram vs player", s.Cfg.CollisionDamagePerTick)

			s.player.DamageHull(s.Cfg.CollisionDamagePerTick)
			h.Enemy.DamageHull(s.Cfg.CollisionDamagePerTick)
			s.Subsystems.OnEntityDamaged(h.Enemy, s.player.Pos)
		}
	}

	// Planet impacts grind hulls down every overlapping tick.
	for _, e := range s.Entities() {
		if e.Destroyed || e.Class == ClassPlanet {
			continue
		}
		if p := s.Collisions.CheckPlanetCollision(e.Pos, e.Collider, s.planets); p != nil {
			s.SimLog.Add(s.Tick, Label(e), "collision", "planet", Label(p), s.Cfg.PlanetCrashDamage)
			e.DamageHull(s.Cfg.PlanetCrashDamage)
		}
	}
}

// playerFire is the harness's stand-in for the player's combat loop: keep a
// sensor lock on the nearest live enemy and fire every ready weapon at it.
func (s *CombatSim) playerFire() {
	p := s.player
	if p == nil || p.Destroyed || p.WeaponsDisabled {
		return
	}

	if p.SensorsDisabled {
		p.TargetLock = NoEntity
		return
	}
	target := s.GrabonByID(p.TargetLock)
	if target == nil || target.Destroyed {
		p.TargetLock = NoEntity
		target = s.nearestGrabon(p.Pos, s.Cfg.PlayerLockRange)
		if target == nil {
			return
		}
		p.TargetLock = target.ID
	}

	now := s.AI.Now()
	for i := range s.Cfg.PlayerWeapons {
		w := &s.Cfg.PlayerWeapons[i]
		if !WeaponReady(now, s.playerFireClocks[i], p, target, w) {
			continue
		}
		s.playerFireClocks[i] = now

		muzzle := p.Pos.Add(w.Muzzle.RotateYaw(p.HeadingTurns))
		res := s.AI.ResolveShot(p, target, muzzle, w.Damage)
		if res != nil {
			s.SimLog.Add(s.Tick, Label(target), "damage", "subsystem", res.Subsystem.String(), w.Damage)
			if res.Destroyed {
				s.SimLog.Add(s.Tick, Label(target), "subsystem", "destroyed", res.Subsystem.String(), 0)
			}
		} else {
			s.SimLog.Add(s.Tick, Label(target), "damage", "hull", "player shot", w.Damage)
		}
		s.Subsystems.OnEntityDamaged(target, muzzle)
	}
}

func (s *CombatSim) nearestGrabon(from Vec3, maxRange float64) *Entity {
	var best *Entity
	bestDist := maxRange
	for _, g := range s.grabons {
		if g.Destroyed {
			continue
		}
		if d := Dist(from, g.Pos); d <= bestDist {
			bestDist = d
			best = g
		}
	}
	return best
}

func (s *CombatSim) reapDestroyed(prevDestroyed map[EntityID]bool) {
	for _, e := range s.Entities() {
		if e.Class == ClassPlanet || !e.Destroyed || prevDestroyed[e.ID] {
			continue
		}
		s.SimLog.Add(s.Tick, Label(e), "entity", "destroyed", e.Class.String(), 0)
		s.log.Info().Str("entity", Label(e)).Msg("entity destroyed")
		s.Subsystems.RemoveEntity(e.ID)
	}
}

func (s *CombatSim) snapshotStates() map[EntityID]AIState {
	out := make(map[EntityID]AIState, len(s.grabons))
	for _, g := range s.grabons {
		if m := s.AI.MindOf(g.ID); m != nil {
			out[g.ID] = m.State
		}
	}
	return out
}

func (s *CombatSim) snapshotDetection() map[EntityID]bool {
	out := make(map[EntityID]bool, len(s.grabons))
	for _, g := range s.grabons {
		if m := s.AI.MindOf(g.ID); m != nil {
			out[g.ID] = m.TargetDetected
		}
	}
	return out
}

func (s *CombatSim) snapshotDestroyed() map[EntityID]bool {
	out := make(map[EntityID]bool)
	for _, e := range s.Entities() {
		out[e.ID] = e.Destroyed
	}
	return out
}

func (s *CombatSim) logTransitions(prevStates map[EntityID]AIState, prevDetected map[EntityID]bool) {
	for _, g := range s.grabons {
		m := s.AI.MindOf(g.ID)
		if m == nil {
			continue
		}
		if prev, ok := prevStates[g.ID]; !ok || prev != m.State {
			from := "none"
			if ok {
				from = prev.String()
			}
			s.SimLog.Add(s.Tick, Label(g), "ai", "state_change",
				fmt.Sprintf("%s → %s", from, m.State), 0)
		}
		if m.TargetDetected && !prevDetected[g.ID] {
			s.SimLog.Add(s.Tick, Label(g), "ai", "detect", "player",
				Dist(g.Pos, m.TargetPos))
		}
	}
}

// Reset discards per-run combat state (collision ledger, beams) while
// keeping the entity set — for mission reloads driven by a front-end.
func (s *CombatSim) Reset() {
	s.Collisions.Reset()
	s.Effects = NewEffectManager()
	s.Tick = 0
}
