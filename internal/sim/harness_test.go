package sim

import "testing"

// --- Full engagements ---

func TestCombatSim_DuelRunsToADestruction(t *testing.T) {
	s := NewCombatSim(
		WithSeed(42),
		WithPlayer(0, 0, 0),
		WithGrabon(1, 0, 0, 60, 0.5),
	)

	end := s.RunUntil(func(s *CombatSim) bool {
		return s.Player().Destroyed || s.GrabonByID(1).Destroyed
	}, 14400)
	if end == -1 {
		t.Fatalf("four simulated minutes without a kill\n%s", s.SimLog.Format())
	}

	if !s.SimLog.HasEntry("ai", "detect", "player") {
		t.Fatal("no detection event logged")
	}
	if s.SimLog.CountCategory("fire", "beam") == 0 {
		t.Fatal("no beams fired during the duel")
	}
	if s.SimLog.CountCategory("damage", "") == 0 {
		t.Fatal("no damage events logged")
	}
	if !s.SimLog.HasEntry("entity", "destroyed", "") {
		t.Fatal("no destruction event logged")
	}
}

func TestCombatSim_DeterministicUnderSameSeed(t *testing.T) {
	run := func() (Vec3, float64) {
		s := NewCombatSim(
			WithSeed(7),
			WithPlayer(0, 0, 0),
			WithGrabon(1, 30, 0, 90, 0.6),
		)
		s.RunTicks(300)
		g := s.GrabonByID(1)
		return g.Pos, g.Health
	}

	pos1, hp1 := run()
	pos2, hp2 := run()
	if pos1 != pos2 || hp1 != hp2 {
		t.Fatalf("same seed diverged: %v/%v vs %v/%v", pos1, hp1, pos2, hp2)
	}
}

// --- Collisions through the harness ---

func TestCombatSim_RamEpisodeLoggedOnceAsNew(t *testing.T) {
	s := NewCombatSim(
		WithSeed(1),
		WithPlayer(0, 0, 0),
		WithGrabon(1, 1, 0, 1, 0),
	)

	s.Step()
	s.Step()
	if got := len(s.SimLog.Filter("collision", "new")); got != 1 {
		t.Fatalf("new-contact entries after overlap start = %d, want 1\n%s", got, s.SimLog.Format())
	}
	if len(s.SimLog.Filter("collision", "continuing")) == 0 {
		t.Fatal("no continuing-contact entry while still overlapping")
	}

	// Separate, then re-touch: a fresh episode logs new again.
	g := s.GrabonByID(1)
	g.Pos = Vec3{200, 0, 200}
	s.Step()
	g.Pos = Vec3{1, 0, 1}
	s.Step()
	if got := len(s.SimLog.Filter("collision", "new")); got != 2 {
		t.Fatalf("new-contact entries after re-touch = %d, want 2", got)
	}
}

func TestCombatSim_RamDamagesBothHulls(t *testing.T) {
	s := NewCombatSim(
		WithSeed(1),
		WithPlayer(0, 0, 0),
		WithGrabon(1, 1, 0, 1, 0),
	)
	s.Step()

	if s.Player().Health >= s.Cfg.PlayerMaxHealth {
		t.Fatalf("player hull untouched by ram: %v", s.Player().Health)
	}
	if g := s.GrabonByID(1); g.Health >= s.Cfg.GrabonMaxHealth {
		t.Fatalf("grabon hull untouched by ram: %v", g.Health)
	}
}

func TestCombatSim_PlanetImpactGrindsHull(t *testing.T) {
	s := NewCombatSim(
		WithSeed(1),
		WithPlayer(0, 0, 0),
		WithPlanet(9, 0, 0, 4, 5),
	)
	s.Step()

	want := s.Cfg.PlayerMaxHealth - s.Cfg.PlanetCrashDamage
	if s.Player().Health != want {
		t.Fatalf("player health after planet impact = %v, want %v", s.Player().Health, want)
	}
	if !s.SimLog.HasEntry("collision", "planet", "") {
		t.Fatal("planet impact not logged")
	}
}

// --- Player systems ---

func TestCombatSim_SensorLossDropsTargetLock(t *testing.T) {
	s := NewCombatSim(
		WithSeed(1),
		WithPlayer(0, 0, 0),
		WithGrabon(1, 0, 0, 50, 0.5),
	)

	s.Step()
	if s.Player().TargetLock != 1 {
		t.Fatalf("player lock = %v, want grabon 1", s.Player().TargetLock)
	}

	s.Subsystems.DamageSubsystem(s.Player().ID, SubsystemSensors, 1000)
	s.Step()
	if s.Player().TargetLock != NoEntity {
		t.Fatalf("lock survived sensor destruction: %v", s.Player().TargetLock)
	}
}

func TestCombatSim_PlayerShotsReachSubsystems(t *testing.T) {
	s := NewCombatSim(
		WithSeed(3),
		WithPlayer(0, 0, 0),
		WithGrabon(1, 0, 0, 50, 0.5),
	)
	s.RunTicks(120)

	if s.SimLog.CountCategory("damage", "subsystem") == 0 {
		t.Fatalf("no subsystem damage from player fire in 2s\n%s", s.SimLog.Format())
	}
}

// --- Harness plumbing ---

func TestRunUntil_ReportsTickOrMinusOne(t *testing.T) {
	s := NewCombatSim(WithSeed(1), WithPlayer(0, 0, 0))
	if got := s.RunUntil(func(s *CombatSim) bool { return s.Tick >= 5 }, 100); got != 5 {
		t.Fatalf("RunUntil = %d, want 5", got)
	}
	if got := s.RunUntil(func(*CombatSim) bool { return false }, 10); got != -1 {
		t.Fatalf("unsatisfied RunUntil = %d, want -1", got)
	}
}

func TestCombatSim_ResetClearsRunState(t *testing.T) {
	s := NewCombatSim(
		WithSeed(1),
		WithPlayer(0, 0, 0),
		WithGrabon(1, 0, 0, 50, 0.5),
	)
	s.RunTicks(30)
	s.Reset()

	if s.Tick != 0 {
		t.Fatalf("tick after reset = %d", s.Tick)
	}
	if n := len(s.Effects.Active()); n != 0 {
		t.Fatalf("%d beams survived reset", n)
	}
}

func TestLabel_PerClass(t *testing.T) {
	cases := []struct {
		e    *Entity
		want string
	}{
		{NewPlayer(0, Vec3{}, 100), "P"},
		{NewGrabon(3, Vec3{}, 0, 60), "G3"},
		{NewSatellite(2, Vec3{}, 40), "S2"},
		{NewPlanet(7, Vec3{}, 10), "PL7"},
	}
	for _, c := range cases {
		if got := Label(c.e); got != c.want {
			t.Fatalf("Label(%v) = %q, want %q", c.e.Class, got, c.want)
		}
	}
}
