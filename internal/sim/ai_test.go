package sim

import (
	"math"
	"math/rand"
	"testing"
)

const testDt = 1.0 / 60.0

func newTestAI(cfg *Config) (*AISystem, *SubsystemManager) {
	sub := NewSubsystemManager(cfg, NopLogger())
	rng := rand.New(rand.NewSource(7))
	return NewAISystem(cfg, sub, rng, NopLogger()), sub
}

// --- Detection and planning ---

func TestUpdateGrabonAI_FirstPlanClosesDistance(t *testing.T) {
	cfg := DefaultConfig()
	ai, _ := newTestAI(cfg)
	g := NewGrabon(1, Vec3{0, 0, 0}, 0, 60)
	player := NewPlayer(0, Vec3{0, 0, 100}, 100)

	ai.UpdateGrabonAI(testDt, []*Entity{g}, player, nil)

	m := ai.MindOf(1)
	if m == nil || !m.TargetDetected {
		t.Fatalf("grabon did not detect player inside detection range: %+v", m)
	}
	if m.State != StateCloseDistance {
		t.Fatalf("first plan state = %v, want close_distance", m.State)
	}
	if !approx(m.DesiredHeading, 0) {
		t.Fatalf("desired heading = %v turns, want 0 (dead ahead)", m.DesiredHeading)
	}
	if want := 0.7 * cfg.Grabon.MaxSpeed; !approx(m.DesiredSpeed, want) {
		t.Fatalf("desired speed = %v, want %v", m.DesiredSpeed, want)
	}
}

func TestUpdateGrabonAI_IdleBeyondDetectionRange(t *testing.T) {
	ai, _ := newTestAI(DefaultConfig())
	g := NewGrabon(1, Vec3{0, 0, 0}, 0, 60)
	player := NewPlayer(0, Vec3{0, 0, 300}, 100)

	ai.UpdateGrabonAI(testDt, []*Entity{g}, player, nil)

	m := ai.MindOf(1)
	if m.TargetDetected {
		t.Fatal("detected player beyond detection range")
	}
	if m.State != StateIdle || m.DesiredSpeed != 0 {
		t.Fatalf("state=%v speed=%v, want idle and stationary", m.State, m.DesiredSpeed)
	}
}

func TestUpdateGrabonAI_DetectionIsSticky(t *testing.T) {
	ai, _ := newTestAI(DefaultConfig())
	g := NewGrabon(1, Vec3{0, 0, 0}, 0, 60)
	player := NewPlayer(0, Vec3{0, 0, 200}, 100)

	ai.UpdateGrabonAI(testDt, []*Entity{g}, player, nil)
	if !ai.MindOf(1).TargetDetected {
		t.Fatal("player at 200 not detected")
	}

	// Target leaves detection range: still tracked, position refreshed.
	player.Pos = Vec3{0, 0, 400}
	ai.UpdateGrabonAI(testDt, []*Entity{g}, player, nil)
	m := ai.MindOf(1)
	if !m.TargetDetected {
		t.Fatal("detection dropped when player left range")
	}
	if m.TargetPos != player.Pos {
		t.Fatalf("tracked position = %v, want refreshed to %v", m.TargetPos, player.Pos)
	}
}

func TestPlan_EvadeBeatsRetreat(t *testing.T) {
	cfg := DefaultConfig()
	ai, _ := newTestAI(cfg)
	g := NewGrabon(1, Vec3{0, 0, 0}, 0, 60)
	g.Health = 5 // well below the retreat threshold
	player := NewPlayer(0, Vec3{0, 0, 50}, 100)
	sat := NewSatellite(2, Vec3{0, 0, 10}, 40)

	ai.UpdateGrabonAI(testDt, []*Entity{g}, player, []*Entity{sat})

	m := ai.MindOf(1)
	if m.State != StateEvade {
		t.Fatalf("state = %v, want evade to win over retreat", m.State)
	}
	// Break heading is perpendicular to the obstacle bearing.
	if !approx(m.DesiredHeading, 0.25) {
		t.Fatalf("evade heading = %v turns, want 0.25", m.DesiredHeading)
	}
}

func TestPlan_RetreatWhenHealthLow(t *testing.T) {
	cfg := DefaultConfig()
	ai, _ := newTestAI(cfg)
	g := NewGrabon(1, Vec3{0, 0, 0}, 0, 60)
	g.Health = 5
	player := NewPlayer(0, Vec3{0, 0, 50}, 100)

	ai.UpdateGrabonAI(testDt, []*Entity{g}, player, nil)

	m := ai.MindOf(1)
	if m.State != StateRetreat {
		t.Fatalf("state = %v, want retreat", m.State)
	}
	if !approx(m.DesiredHeading, 0.5) {
		t.Fatalf("retreat heading = %v turns, want 0.5 (directly away)", m.DesiredHeading)
	}
	if !approx(m.DesiredSpeed, cfg.Grabon.MaxSpeed) {
		t.Fatalf("retreat speed = %v, want full throttle %v", m.DesiredSpeed, cfg.Grabon.MaxSpeed)
	}
}

func TestPlan_BandSelectsAttackOrMaintain(t *testing.T) {
	cases := []struct {
		dist float64
		want AIState
	}{
		{100, StateCloseDistance}, // beyond attack range
		{60, StateAttack},         // inside the band
		{30, StateMaintainDistance},
	}
	for _, c := range cases {
		ai, _ := newTestAI(DefaultConfig())
		g := NewGrabon(1, Vec3{0, 0, 0}, 0, 60)
		player := NewPlayer(0, Vec3{0, 0, c.dist}, 100)
		ai.UpdateGrabonAI(testDt, []*Entity{g}, player, nil)
		if got := ai.MindOf(1).State; got != c.want {
			t.Fatalf("distance %v: state = %v, want %v", c.dist, got, c.want)
		}
	}
}

// --- Under-fire repositioning ---

func TestPlan_RepositionWhenHitFromBehind(t *testing.T) {
	cfg := DefaultConfig()
	ai, _ := newTestAI(cfg)
	g := NewGrabon(1, Vec3{0, 0, 0}, 0, 60)
	player := NewPlayer(0, Vec3{0, 0, 60}, 100)

	ai.UpdateGrabonAI(testDt, []*Entity{g}, player, nil)
	if ai.MindOf(1).State != StateAttack {
		t.Fatalf("setup: state = %v, want attack", ai.MindOf(1).State)
	}

	// Hit from dead astern: the forced short-interval re-plan must arm
	// REPOSITION, and the turn toward the attacker runs at the boosted rate.
	ai.OnEnemyDamaged(1, Vec3{0, 0, -50})

	repositioned := false
	for i := 0; i < 30; i++ {
		before := g.HeadingTurns
		ai.UpdateGrabonAI(testDt, []*Entity{g}, player, nil)
		if ai.MindOf(1).State != StateReposition {
			continue
		}
		repositioned = true
		step := math.Abs(WrapTurn(g.HeadingTurns - before))
		want := cfg.Grabon.TurnRate * cfg.Grabon.RepositionTurnMul * testDt
		if !approx(step, want) {
			t.Fatalf("reposition turn step = %v, want %v", step, want)
		}
		break
	}
	if !repositioned {
		t.Fatalf("never entered reposition; state = %v", ai.MindOf(1).State)
	}
	if !approx(ai.MindOf(1).DesiredHeading, 0.5) {
		t.Fatalf("reposition heading = %v turns, want 0.5 (toward attacker)", ai.MindOf(1).DesiredHeading)
	}
}

func TestPlan_NoRepositionWhenAttackerAhead(t *testing.T) {
	ai, _ := newTestAI(DefaultConfig())
	g := NewGrabon(1, Vec3{0, 0, 0}, 0, 60)
	player := NewPlayer(0, Vec3{0, 0, 60}, 100)

	ai.UpdateGrabonAI(testDt, []*Entity{g}, player, nil)
	ai.OnEnemyDamaged(1, player.Pos) // attacker already in the forward cone

	for i := 0; i < 30; i++ {
		ai.UpdateGrabonAI(testDt, []*Entity{g}, player, nil)
		if ai.MindOf(1).State == StateReposition {
			t.Fatal("repositioned against an attacker dead ahead")
		}
	}
}

func TestExecute_RepositionSelfExits(t *testing.T) {
	ai, _ := newTestAI(DefaultConfig())
	g := NewGrabon(1, Vec3{0, 0, 0}, 0, 60)
	player := NewPlayer(0, Vec3{0, 0, 60}, 100)

	ai.UpdateGrabonAI(testDt, []*Entity{g}, player, nil)
	ai.OnEnemyDamaged(1, Vec3{0, 0, -50})

	// Turning half a revolution at the boosted rate takes well under 200
	// ticks; under-fire must clear once the attacker is back in view.
	for i := 0; i < 200; i++ {
		ai.UpdateGrabonAI(testDt, []*Entity{g}, player, nil)
		if !ai.MindOf(1).UnderFire {
			return
		}
	}
	t.Fatalf("under-fire never cleared; heading=%v state=%v", g.HeadingTurns, ai.MindOf(1).State)
}

func TestOnEnemyDamaged_UnknownMindIgnored(t *testing.T) {
	ai, _ := newTestAI(DefaultConfig())
	ai.OnEnemyDamaged(99, Vec3{1, 2, 3}) // must not panic or allocate a mind
	if ai.MindOf(99) != nil {
		t.Fatal("hit notification created a mind for an unknown entity")
	}
}

// --- Weapons ---

func TestWeaponReady_RangeArcSideCooldown(t *testing.T) {
	shooter := NewGrabon(1, Vec3{0, 0, 0}, 0, 60)
	target := NewPlayer(0, Vec3{50, 0, 0}, 100)

	right := &WeaponConfig{Range: 100, ArcDot: -1, Side: SideRight, FireRate: 1}
	left := &WeaponConfig{Range: 100, ArcDot: -1, Side: SideLeft, FireRate: 1}

	// Target to starboard: only the right mount bears.
	if !WeaponReady(10, 0, shooter, target, right) {
		t.Fatal("right mount did not bear on a starboard target")
	}
	if WeaponReady(10, 0, shooter, target, left) {
		t.Fatal("left mount fired at a starboard target")
	}

	// Mirror to port.
	target.Pos = Vec3{-50, 0, 0}
	if WeaponReady(10, 0, shooter, target, right) {
		t.Fatal("right mount fired at a port target")
	}
	if !WeaponReady(10, 0, shooter, target, left) {
		t.Fatal("left mount did not bear on a port target")
	}

	// Range gate.
	target.Pos = Vec3{0, 0, 150}
	if WeaponReady(10, 0, shooter, target, left) {
		t.Fatal("fired beyond weapon range")
	}

	// Arc gate: target far off the forward cone.
	narrow := &WeaponConfig{Range: 100, ArcDot: 0.7, Side: SideAny, FireRate: 1}
	target.Pos = Vec3{50, 0, 10}
	if WeaponReady(10, 0, shooter, target, narrow) {
		t.Fatal("fired outside the arc-dot cone")
	}

	// Cooldown gate.
	target.Pos = Vec3{0, 0, 50}
	if WeaponReady(10, 9.5, shooter, target, narrow) {
		t.Fatal("fired inside the cooldown window")
	}
	if !WeaponReady(10, 8, shooter, target, narrow) {
		t.Fatal("did not fire after the cooldown elapsed")
	}
}

func TestFireWeapons_CooldownPacesShots(t *testing.T) {
	ai, _ := newTestAI(DefaultConfig())
	g := NewGrabon(1, Vec3{0, 0, 0}, 0, 60)
	player := NewPlayer(0, Vec3{0, 0, 50}, 100)

	beams := 0
	ai.SetBeamSpawner(func(from, to Vec3, hit bool) { beams++ })

	// Only the forward cannon bears on a dead-ahead target; the side mounts
	// see a zero cross product and hold.
	for i := 0; i < 60; i++ {
		ai.UpdateGrabonAI(testDt, []*Entity{g}, player, nil)
	}
	if beams != 1 {
		t.Fatalf("beams after 1s = %d, want exactly 1 (cannon on cooldown)", beams)
	}
	for i := 0; i < 40; i++ {
		ai.UpdateGrabonAI(testDt, []*Entity{g}, player, nil)
	}
	if beams != 2 {
		t.Fatalf("beams after 100 ticks = %d, want 2", beams)
	}
}

func TestFireWeapons_DisabledWeaponsHoldFire(t *testing.T) {
	ai, _ := newTestAI(DefaultConfig())
	g := NewGrabon(1, Vec3{0, 0, 0}, 0, 60)
	g.WeaponsDisabled = true
	player := NewPlayer(0, Vec3{0, 0, 50}, 100)

	beams := 0
	ai.SetBeamSpawner(func(from, to Vec3, hit bool) { beams++ })
	for i := 0; i < 60; i++ {
		ai.UpdateGrabonAI(testDt, []*Entity{g}, player, nil)
	}
	if beams != 0 {
		t.Fatalf("disabled weapons fired %d beams", beams)
	}
}

// --- Shot resolution ---

func TestResolveShot_ShieldAbsorption(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShieldAbsorbChance = 1.0
	ai, sub := newTestAI(cfg)
	shooter := NewPlayer(0, Vec3{0, 0, 50}, 100)
	target := NewGrabon(1, Vec3{0, 0, 0}, 0, 60)
	sub.InitEntity(target.ID, "grabon")

	res := ai.ResolveShot(shooter, target, Vec3{0, 0, 20}, 6)
	if res == nil || res.Subsystem != SubsystemShields {
		t.Fatalf("guaranteed absorption routed to %+v, want shields", res)
	}
	if h, _ := sub.GetHealth(target.ID, SubsystemShields); h != 44 {
		t.Fatalf("shields health = %v, want 44", h)
	}
	if target.Health != 60 {
		t.Fatalf("hull took %v damage through an absorbed hit", 60-target.Health)
	}
}

func TestResolveShot_DirectionalWhenAbsorptionFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShieldAbsorbChance = 0
	ai, sub := newTestAI(cfg)
	shooter := NewPlayer(0, Vec3{0, 0, 50}, 100)
	target := NewGrabon(1, Vec3{0, 0, 0}, 0, 60)
	sub.InitEntity(target.ID, "grabon")

	res := ai.ResolveShot(shooter, target, Vec3{0, 0, 20}, 6)
	if res == nil || res.Subsystem != SubsystemWeapons {
		t.Fatalf("frontal shot routed to %+v, want weapons", res)
	}
}

func TestResolveShot_DeadShieldsCannotAbsorb(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShieldAbsorbChance = 1.0
	ai, sub := newTestAI(cfg)
	shooter := NewPlayer(0, Vec3{0, 0, 50}, 100)
	target := NewGrabon(1, Vec3{0, 0, 0}, 0, 60)
	sub.InitEntity(target.ID, "grabon")
	sub.DamageSubsystem(target.ID, SubsystemShields, 1000)

	res := ai.ResolveShot(shooter, target, Vec3{0, 0, 20}, 6)
	if res == nil || res.Subsystem == SubsystemShields {
		t.Fatalf("dead shields absorbed a hit: %+v", res)
	}
}

func TestResolveShot_HullFallback(t *testing.T) {
	ai, _ := newTestAI(DefaultConfig())
	shooter := NewPlayer(0, Vec3{0, 0, 50}, 100)
	target := NewGrabon(1, Vec3{0, 0, 0}, 0, 60) // no subsystem registry

	res := ai.ResolveShot(shooter, target, Vec3{0, 0, 20}, 6)
	if res != nil {
		t.Fatalf("shot on a registry-less hull returned %+v, want nil", res)
	}
	if target.Health != 54 {
		t.Fatalf("hull health = %v, want 54", target.Health)
	}
}
