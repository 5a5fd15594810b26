package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/halcyonica/voidfighter/internal/sim"
	"github.com/halcyonica/voidfighter/internal/viewer"
)

func main() {
	var seed int64
	var configPath string
	flag.Int64Var(&seed, "seed", 42, "RNG seed")
	flag.StringVar(&configPath, "config", "", "optional combat config YAML")
	flag.Parse()

	cfg, err := sim.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	build := func() *sim.CombatSim {
		return sim.NewCombatSim(
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
	}

	ebiten.SetWindowTitle("Voidfighter")
	ebiten.SetWindowSize(1280, 800)
	if err := ebiten.RunGame(viewer.New(build)); err != nil {
		log.Fatal(err)
	}
}
