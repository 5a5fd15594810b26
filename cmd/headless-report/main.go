package main

import (
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/halcyonica/voidfighter/internal/sim"
)

type runStats struct {
	runIndex int
	seed     int64

	firstDetectTick  int
	firstBeamTick    int
	firstRamTick     int
	firstSubKillTick int
	firstDeathTick   int

	stateChanges   int
	beams          int
	ramNew         int
	ramContinuing  int
	planetImpacts  int
	subsystemHits  int
	hullHits       int
	subsystemKills int

	playerSurvived bool
	grabonsLeft    int
	endTick        int

	killedSubsystems map[string]struct{}
}

func main() {
	var runs int
	var ticks int
	var seedBase int64
	var seedStep int64
	var scenario string
	var configPath string

	flag.IntVar(&runs, "runs", 5, "number of headless simulation runs")
	flag.IntVar(&ticks, "ticks", 7200, "max ticks per run")
	flag.Int64Var(&seedBase, "seed-base", 42, "base RNG seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&scenario, "scenario", "wing-assault", "scenario name")
	flag.StringVar(&configPath, "config", "", "optional combat config YAML")
	flag.Parse()

	if runs <= 0 {
		fmt.Println("error: -runs must be > 0")
		return
	}
	if ticks <= 0 {
		fmt.Println("error: -ticks must be > 0")
		return
	}
	if scenario != "wing-assault" {
		fmt.Printf("error: unsupported scenario %q (supported: wing-assault)\n", scenario)
		return
	}
	cfg, err := sim.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	fmt.Printf("=== Headless Combat Report ===\n")
	fmt.Printf("scenario=%s runs=%d ticks=%d seed_base=%d seed_step=%d\n\n", scenario, runs, ticks, seedBase, seedStep)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		stats := runScenarioWingAssault(i+1, seed, ticks, cfg)
		all = append(all, stats)
		printRun(stats)
	}

	printAggregate(all)
}

// runScenarioWingAssault pits the player against a three-fighter wing near a
// planet and a derelict satellite, then distills the SimLog into runStats.
func runScenarioWingAssault(runIndex int, seed int64, ticks int, cfg *sim.Config) runStats {
	s := sim.NewCombatSim(
		sim.WithConfig(cfg),
		sim.WithSeed(seed),
		sim.WithLogger(sim.NewLogger(cfg.LogLevel)),
		sim.WithPlayer(0, 0, 0),
		sim.WithGrabon(1, 0, 0, 160, 0.5),
		sim.WithGrabon(2, 120, 0, 120, 0.625),
		sim.WithGrabon(3, -120, 0, 120, 0.375),
		sim.WithSatellite(4, 60, 0, 40),
		sim.WithPlanet(5, -200, 0, -150, 60),
	)

	endTick := s.RunUntil(func(s *sim.CombatSim) bool {
		if s.Player().Destroyed {
			return true
		}
		for _, g := range s.Grabons() {
			if !g.Destroyed {
				return false
			}
		}
		return true
	}, ticks)
	if endTick == -1 {
		endTick = s.Tick
	}

	entries := s.SimLog.Entries()
	killed := map[string]struct{}{}
	for _, e := range entries {
		if e.Category == "subsystem" && e.Key == "destroyed" {
			killed[e.Value] = struct{}{}
		}
	}

	grabonsLeft := 0
	for _, g := range s.Grabons() {
		if !g.Destroyed {
			grabonsLeft++
		}
	}

	return runStats{
		runIndex:         runIndex,
		seed:             seed,
		firstDetectTick:  firstTick(entries, "ai", "detect", ""),
		firstBeamTick:    firstTick(entries, "fire", "beam", ""),
		firstRamTick:     firstTick(entries, "collision", "new", ""),
		firstSubKillTick: firstTick(entries, "subsystem", "destroyed", ""),
		firstDeathTick:   firstTick(entries, "entity", "destroyed", ""),
		stateChanges:     s.SimLog.CountCategory("ai", "state_change"),
		beams:            s.SimLog.CountCategory("fire", "beam"),
		ramNew:           s.SimLog.CountCategory("collision", "new"),
		ramContinuing:    s.SimLog.CountCategory("collision", "continuing"),
		planetImpacts:    s.SimLog.CountCategory("collision", "planet"),
		subsystemHits:    s.SimLog.CountCategory("damage", "subsystem"),
		hullHits:         s.SimLog.CountCategory("damage", "hull"),
		subsystemKills:   s.SimLog.CountCategory("subsystem", "destroyed"),
		playerSurvived:   !s.Player().Destroyed,
		grabonsLeft:      grabonsLeft,
		endTick:          endTick,
		killedSubsystems: killed,
	}
}

func firstTick(entries []sim.SimLogEntry, category, key, contains string) int {
	for _, e := range entries {
		if e.Category != category || e.Key != key {
			continue
		}
		if contains == "" || strings.Contains(e.Value, contains) {
			return e.Tick
		}
	}
	return -1
}

func printRun(rs runStats) {
	outcome := "player destroyed"
	if rs.playerSurvived {
		outcome = fmt.Sprintf("wing destroyed, %d grabons left", rs.grabonsLeft)
	}
	fmt.Printf("--- Run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	fmt.Printf("outcome: %s at tick %d\n", outcome, rs.endTick)
	fmt.Printf("phase_markers: detect=%d first_beam=%d first_ram=%d first_subsystem_kill=%d first_death=%d\n",
		rs.firstDetectTick, rs.firstBeamTick, rs.firstRamTick, rs.firstSubKillTick, rs.firstDeathTick)
	fmt.Printf("event_totals: state_change=%d beams=%d ram_new=%d ram_continuing=%d planet_impacts=%d\n",
		rs.stateChanges, rs.beams, rs.ramNew, rs.ramContinuing, rs.planetImpacts)
	fmt.Printf("damage_totals: subsystem_hits=%d hull_hits=%d subsystem_kills=%d\n",
		rs.subsystemHits, rs.hullHits, rs.subsystemKills)
	fmt.Printf("killed_subsystems: %s\n\n", joinSet(rs.killedSubsystems))
}

func printAggregate(all []runStats) {
	totalState := 0
	totalBeams := 0
	totalRamNew := 0
	totalPlanet := 0
	totalSubHits := 0
	totalHullHits := 0
	totalSubKills := 0
	playerWins := 0

	detectTicks := make([]int, 0, len(all))
	beamTicks := make([]int, 0, len(all))
	killTicks := make([]int, 0, len(all))
	deathTicks := make([]int, 0, len(all))
	endTicks := make([]int, 0, len(all))
	killedGlobal := map[string]struct{}{}

	for _, rs := range all {
		totalState += rs.stateChanges
		totalBeams += rs.beams
		totalRamNew += rs.ramNew
		totalPlanet += rs.planetImpacts
		totalSubHits += rs.subsystemHits
		totalHullHits += rs.hullHits
		totalSubKills += rs.subsystemKills
		if rs.playerSurvived {
			playerWins++
		}
		if rs.firstDetectTick >= 0 {
			detectTicks = append(detectTicks, rs.firstDetectTick)
		}
		if rs.firstBeamTick >= 0 {
			beamTicks = append(beamTicks, rs.firstBeamTick)
		}
		if rs.firstSubKillTick >= 0 {
			killTicks = append(killTicks, rs.firstSubKillTick)
		}
		if rs.firstDeathTick >= 0 {
			deathTicks = append(deathTicks, rs.firstDeathTick)
		}
		endTicks = append(endTicks, rs.endTick)
		for label := range rs.killedSubsystems {
			killedGlobal[label] = struct{}{}
		}
	}

	fmt.Println("=== Aggregate ===")
	fmt.Printf("runs=%d player_wins=%d (%.0f%%)\n", len(all), playerWins,
		float64(playerWins)/float64(len(all))*100)
	fmt.Printf("avg_events_per_run: state_change=%.1f beams=%.1f ram_new=%.1f planet_impacts=%.1f\n",
		avg(totalState, len(all)), avg(totalBeams, len(all)), avg(totalRamNew, len(all)), avg(totalPlanet, len(all)))
	fmt.Printf("avg_damage_per_run: subsystem_hits=%.1f hull_hits=%.1f subsystem_kills=%.1f\n",
		avg(totalSubHits, len(all)), avg(totalHullHits, len(all)), avg(totalSubKills, len(all)))
	fmt.Printf("phase_marker_avg_ticks: detect=%s first_beam=%s first_subsystem_kill=%s first_death=%s end=%s\n",
		avgTickString(detectTicks), avgTickString(beamTicks), avgTickString(killTicks), avgTickString(deathTicks), avgTickString(endTicks))
	fmt.Printf("subsystems_killed_anywhere: %s\n", joinSet(killedGlobal))
}

func avg(sum int, n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func avgTickString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}

func joinSet(s map[string]struct{}) string {
	if len(s) == 0 {
		return "none"
	}
	labels := make([]string, 0, len(s))
	for k := range s {
		labels = append(labels, k)
	}
	sort.Strings(labels)
	return strings.Join(labels, ",")
}
