// Package viewer is a top-down debug renderer for the combat sim: ships,
// planets, beams, and subsystem health, with pause/step controls and a
// clipboard combat report.
package viewer

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/halcyonica/voidfighter/internal/sim"
)

const (
	screenW = 1280
	screenH = 800
)

var (
	colBackdrop  = color.RGBA{R: 8, G: 10, B: 18, A: 255}
	colPlayer    = color.RGBA{R: 90, G: 220, B: 120, A: 255}
	colGrabon    = color.RGBA{R: 230, G: 80, B: 70, A: 255}
	colSatellite = color.RGBA{R: 160, G: 160, B: 170, A: 255}
	colPlanet    = color.RGBA{R: 70, G: 110, B: 200, A: 255}
	colBeam      = color.RGBA{R: 255, G: 230, B: 120, A: 220}
	colWreck     = color.RGBA{R: 70, G: 60, B: 60, A: 255}
	colBarBack   = color.RGBA{R: 40, G: 40, B: 48, A: 200}
	colBarFill   = color.RGBA{R: 120, G: 200, B: 255, A: 220}
	colBarDead   = color.RGBA{R: 200, G: 60, B: 60, A: 220}
)

// Viewer implements ebiten.Game on top of a headless CombatSim.
type Viewer struct {
	sim   *sim.CombatSim
	build func() *sim.CombatSim

	paused   bool
	showHUD  bool
	camX     float64 // world-space camera center
	camZ     float64
	zoom     float64
	prevKeys map[ebiten.Key]bool

	noticeText  string
	noticeTicks int
}

// New creates a viewer around a sim factory. The factory runs once up front
// and again on every reset, so a reset replays the same scenario and seed.
func New(build func() *sim.CombatSim) *Viewer {
	return &Viewer{
		sim:      build(),
		build:    build,
		showHUD:  true,
		zoom:     3.0,
		prevKeys: map[ebiten.Key]bool{},
	}
}

func (v *Viewer) Update() error {
	v.handleInput()
	if v.noticeTicks > 0 {
		v.noticeTicks--
	}
	if v.paused {
		return nil
	}
	v.sim.Step()
	return nil
}

// handleInput processes camera movement plus edge-triggered control keys.
func (v *Viewer) handleInput() {
	pressed := func(k ebiten.Key) bool {
		cur := ebiten.IsKeyPressed(k)
		edge := cur && !v.prevKeys[k]
		v.prevKeys[k] = cur
		return edge
	}

	if pressed(ebiten.KeySpace) {
		v.paused = !v.paused
	}
	if pressed(ebiten.KeyN) && v.paused {
		v.sim.Step()
	}
	if pressed(ebiten.KeyR) {
		v.sim = v.build()
		v.notice("scenario reset")
	}
	if pressed(ebiten.KeyH) {
		v.showHUD = !v.showHUD
	}
	if pressed(ebiten.KeyC) {
		if err := clipboard.WriteAll(v.report()); err != nil {
			v.notice("clipboard copy failed: " + err.Error())
		} else {
			v.notice("combat report copied to clipboard")
		}
	}

	panSpeed := 4.0 / v.zoom
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		v.camZ += panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		v.camZ -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		v.camX -= panSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		v.camX += panSpeed
	}

	const zoomMin, zoomMax = 0.5, 12.0
	_, wy := ebiten.Wheel()
	if wy != 0 {
		v.zoom *= math.Pow(1.12, wy)
	}
	if pressed(ebiten.KeyEqual) {
		v.zoom *= 1.25
	}
	if pressed(ebiten.KeyMinus) {
		v.zoom /= 1.25
	}
	if v.zoom < zoomMin {
		v.zoom = zoomMin
	}
	if v.zoom > zoomMax {
		v.zoom = zoomMax
	}
}

func (v *Viewer) notice(text string) {
	v.noticeText = text
	v.noticeTicks = 180
}

// worldToScreen maps the X/Z plane to the screen, +Z up.
func (v *Viewer) worldToScreen(p sim.Vec3) (float32, float32) {
	x := (p.X-v.camX)*v.zoom + screenW/2
	y := -(p.Z-v.camZ)*v.zoom + screenH/2
	return float32(x), float32(y)
}

func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(colBackdrop)

	for _, p := range v.sim.Planets() {
		cx, cy := v.worldToScreen(p.Pos)
		r := float32(p.Collider.Radius * v.zoom)
		vector.DrawFilledCircle(screen, cx, cy, r, colPlanet, true)
	}

	for _, b := range v.sim.Effects.Active() {
		x0, y0 := v.worldToScreen(b.From)
		x1, y1 := v.worldToScreen(b.To)
		vector.StrokeLine(screen, x0, y0, x1, y1, 1.0, colBeam, true)
	}

	for _, e := range v.sim.Entities() {
		if e.Class == sim.ClassPlanet {
			continue
		}
		v.drawShip(screen, e)
	}

	if v.showHUD {
		v.drawHUD(screen)
	}
	if v.noticeTicks > 0 {
		ebitenutil.DebugPrintAt(screen, v.noticeText, 10, screenH-20)
	}
}

func (v *Viewer) drawShip(screen *ebiten.Image, e *sim.Entity) {
	col := colSatellite
	switch e.Class {
	case sim.ClassPlayer:
		col = colPlayer
	case sim.ClassGrabon:
		col = colGrabon
	}
	if e.Destroyed {
		col = colWreck
	}

	cx, cy := v.worldToScreen(e.Pos)
	half := e.Collider.HalfSize
	w := float32(half.X * 2 * v.zoom)
	h := float32(half.Z * 2 * v.zoom)
	vector.StrokeRect(screen, cx-w/2, cy-h/2, w, h, 1.5, col, true)

	if !e.Destroyed {
		fwd := e.Forward()
		tipX := cx + float32(fwd.X*half.Z*1.8*v.zoom)
		tipY := cy - float32(fwd.Z*half.Z*1.8*v.zoom)
		vector.StrokeLine(screen, cx, cy, tipX, tipY, 1.5, col, true)

		v.drawBars(screen, e, cx, cy-h/2-4)
	}
}

// drawBars renders one thin health bar per subsystem above the ship, in the
// stable subsystem order, plus a hull bar underneath.
func (v *Viewer) drawBars(screen *ebiten.Image, e *sim.Entity, cx, top float32) {
	states := v.sim.Subsystems.GetAllStates(e.ID)

	const barW, barH, gap = 24, 3, 1
	y := top - float32(len(states))*(barH+gap)
	x := cx - barW/2

	for _, sub := range sim.AllSubsystems {
		st, ok := states[sub]
		if !ok {
			continue
		}
		vector.DrawFilledRect(screen, x, y, barW, barH, colBarBack, false)
		fill := colBarFill
		if st.Destroyed {
			fill = colBarDead
		}
		frac := float32(0)
		if st.MaxHealth > 0 {
			frac = float32(st.Health / st.MaxHealth)
		}
		if frac > 0 {
			vector.DrawFilledRect(screen, x, y, barW*frac, barH, fill, false)
		}
		y += barH + gap
	}

	vector.DrawFilledRect(screen, x, y, barW, barH, colBarBack, false)
	vector.DrawFilledRect(screen, x, y, barW*float32(e.HealthFrac()), barH, colPlayer, false)
}

func (v *Viewer) drawHUD(screen *ebiten.Image) {
	var b strings.Builder
	fmt.Fprintf(&b, "tick %d", v.sim.Tick)
	if v.paused {
		b.WriteString("  [paused]")
	}
	b.WriteString("\nspace pause | n step | r reset | c copy report | h hud | wasd pan | wheel zoom\n")

	if p := v.sim.Player(); p != nil {
		fmt.Fprintf(&b, "player hull %.0f/%.0f lock=%d\n", p.Health, p.MaxHealth, p.TargetLock)
	}
	for _, g := range v.sim.Grabons() {
		if g.Destroyed {
			fmt.Fprintf(&b, "%s destroyed\n", sim.Label(g))
			continue
		}
		state := "?"
		if m := v.sim.AI.MindOf(g.ID); m != nil {
			state = m.State.String()
		}
		fmt.Fprintf(&b, "%s hull %.0f/%.0f state=%s speed=%.1f\n",
			sim.Label(g), g.Health, g.MaxHealth, state, g.Speed)
	}
	ebitenutil.DebugPrintAt(screen, b.String(), 10, 10)
}

// report builds the plain-text combat report placed on the clipboard: entity
// status, subsystem health, and the tail of the event log.
func (v *Viewer) report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- voidfighter combat report ---\n")
	fmt.Fprintf(&b, "tick=%d\n\n", v.sim.Tick)

	for _, e := range v.sim.Entities() {
		if e.Class == sim.ClassPlanet {
			fmt.Fprintf(&b, "%s planet pos=(%.0f,%.0f,%.0f) r=%.0f\n\n",
				sim.Label(e), e.Pos.X, e.Pos.Y, e.Pos.Z, e.Collider.Radius)
			continue
		}
		fmt.Fprintf(&b, "%s %s pos=(%.1f,%.1f,%.1f) hull=%.0f/%.0f destroyed=%v\n",
			sim.Label(e), e.Class, e.Pos.X, e.Pos.Y, e.Pos.Z, e.Health, e.MaxHealth, e.Destroyed)
		states := v.sim.Subsystems.GetAllStates(e.ID)
		for _, sub := range sim.AllSubsystems {
			st, ok := states[sub]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "  %-12s %.0f/%.0f destroyed=%v\n", sub, st.Health, st.MaxHealth, st.Destroyed)
		}
		b.WriteString("\n")
	}

	entries := v.sim.SimLog.Entries()
	const tail = 40
	from := 0
	if len(entries) > tail {
		from = len(entries) - tail
	}
	fmt.Fprintf(&b, "last %d events:\n", len(entries)-from)
	for _, e := range entries[from:] {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenW, screenH
}
