package sim

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// SubsystemTemplate is the static per-archetype definition of one subsystem:
// max health plus the body-space hitbox used for directional damage routing.
type SubsystemTemplate struct {
	MaxHealth float64 `mapstructure:"max_health"`
	Offset    Vec3    `mapstructure:"offset"`
	HalfSize  Vec3    `mapstructure:"half_size"`
}

// ArchetypeConfig maps subsystem names (weapons, engines, shields, sensors,
// life_support) to their templates.
type ArchetypeConfig struct {
	Subsystems map[string]SubsystemTemplate `mapstructure:"subsystems"`
}

// WeaponSide restricts a weapon mount to one side of the ship.
type WeaponSide int

const (
	SideAny   WeaponSide = 0
	SideRight WeaponSide = 1 // cross(forward, toTarget).Y > 0
	SideLeft  WeaponSide = -1
)

// WeaponConfig is one weapon slot's tuning.
type WeaponConfig struct {
	Range    float64    `mapstructure:"range"`
	ArcDot   float64    `mapstructure:"arc_dot"` // min forward·toTarget to fire
	Side     WeaponSide `mapstructure:"side"`
	FireRate float64    `mapstructure:"fire_rate"` // seconds between shots
	Damage   float64    `mapstructure:"damage"`
	Muzzle   Vec3       `mapstructure:"muzzle"` // body-space muzzle offset
}

// AITuning is the per-class AI parameter set.
type AITuning struct {
	MaxSpeed        float64 `mapstructure:"max_speed"` // world units/s
	TurnRate        float64 `mapstructure:"turn_rate"` // turns/s
	DetectionRange  float64 `mapstructure:"detection_range"`
	AttackRange     float64 `mapstructure:"attack_range"`
	MinSafeDistance float64 `mapstructure:"min_safe_distance"`
	ObstacleRange   float64 `mapstructure:"obstacle_range"`

	RetreatHealthFrac float64 `mapstructure:"retreat_health_frac"`

	PlanIntervalMin    float64 `mapstructure:"plan_interval_min"`
	PlanIntervalMax    float64 `mapstructure:"plan_interval_max"`
	ForcedPlanInterval float64 `mapstructure:"forced_plan_interval"`

	SpeedEase         float64 `mapstructure:"speed_ease"` // exponential easing rate, 1/s
	RepositionTurnMul float64 `mapstructure:"reposition_turn_mul"`
	RepositionExitDot float64 `mapstructure:"reposition_exit_dot"`
	BlindSpotDot      float64 `mapstructure:"blind_spot_dot"` // bearing dot below which REPOSITION arms

	Weapons []WeaponConfig `mapstructure:"weapons"`
}

// Config carries every tunable the combat core consumes.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	Archetypes map[string]ArchetypeConfig `mapstructure:"archetypes"`
	Grabon     AITuning                   `mapstructure:"grabon"`

	PlayerWeapons   []WeaponConfig `mapstructure:"player_weapons"`
	PlayerLockRange float64        `mapstructure:"player_lock_range"`

	PlayerMaxHealth    float64 `mapstructure:"player_max_health"`
	GrabonMaxHealth    float64 `mapstructure:"grabon_max_health"`
	SatelliteMaxHealth float64 `mapstructure:"satellite_max_health"`

	CollisionDamagePerTick float64 `mapstructure:"collision_damage_per_tick"`
	PlanetCrashDamage      float64 `mapstructure:"planet_crash_damage"`
	LifeSupportDrainPerSec float64 `mapstructure:"life_support_drain_per_sec"`
	ShieldAbsorbChance     float64 `mapstructure:"shield_absorb_chance"`
}

// DefaultConfig returns the canonical tuning used when no config file is
// present. All distances are world units, all times seconds.
func DefaultConfig() *Config {
	fighterSubsystems := map[string]SubsystemTemplate{
		"weapons":      {MaxHealth: 30, Offset: Vec3{0, 0, 2.4}, HalfSize: Vec3{1.2, 0.6, 0.9}},
		"engines":      {MaxHealth: 40, Offset: Vec3{0, 0, -2.4}, HalfSize: Vec3{1.5, 0.9, 1.0}},
		"shields":      {MaxHealth: 50, Offset: Vec3{0, 1.4, 0}, HalfSize: Vec3{1.8, 0.5, 1.8}},
		"sensors":      {MaxHealth: 20, Offset: Vec3{1.6, 0, 0.8}, HalfSize: Vec3{0.5, 0.5, 0.5}},
		"life_support": {MaxHealth: 25, Offset: Vec3{0, 0, 0}, HalfSize: Vec3{0.9, 0.7, 0.9}},
	}

	return &Config{
		LogLevel: "info",
		Archetypes: map[string]ArchetypeConfig{
			"grabon": {Subsystems: fighterSubsystems},
			"player": {Subsystems: fighterSubsystems},
			"satellite": {Subsystems: map[string]SubsystemTemplate{
				"sensors":      {MaxHealth: 15, Offset: Vec3{0, 1.2, 0}, HalfSize: Vec3{0.6, 0.6, 0.6}},
				"life_support": {MaxHealth: 20, Offset: Vec3{0, 0, 0}, HalfSize: Vec3{1.0, 1.0, 1.0}},
			}},
		},
		Grabon: AITuning{
			MaxSpeed:           22.0,
			TurnRate:           0.25,
			DetectionRange:     250.0,
			AttackRange:        80.0,
			MinSafeDistance:    15.0,
			ObstacleRange:      20.0,
			RetreatHealthFrac:  0.20,
			PlanIntervalMin:    3.0,
			PlanIntervalMax:    5.0,
			ForcedPlanInterval: 0.3,
			SpeedEase:          2.5,
			RepositionTurnMul:  1.5,
			RepositionExitDot:  0.9,
			BlindSpotDot:       0.3,
			Weapons: []WeaponConfig{
				{Range: 90, ArcDot: 0.7, Side: SideAny, FireRate: 1.2, Damage: 6, Muzzle: Vec3{0, 0, 3.0}},
				{Range: 60, ArcDot: 0.3, Side: SideLeft, FireRate: 2.0, Damage: 4, Muzzle: Vec3{-1.6, 0, 1.0}},
				{Range: 60, ArcDot: 0.3, Side: SideRight, FireRate: 2.0, Damage: 4, Muzzle: Vec3{1.6, 0, 1.0}},
			},
		},
		PlayerWeapons: []WeaponConfig{
			{Range: 120, ArcDot: 0.5, Side: SideAny, FireRate: 0.8, Damage: 8, Muzzle: Vec3{0, 0, 3.2}},
		},
		PlayerLockRange:        300.0,
		PlayerMaxHealth:        100.0,
		GrabonMaxHealth:        60.0,
		SatelliteMaxHealth:     40.0,
		CollisionDamagePerTick: 2.0,
		PlanetCrashDamage:      10.0,
		LifeSupportDrainPerSec: 1.5,
		ShieldAbsorbChance:     0.6,
	}
}

// LoadConfig returns DefaultConfig merged with an optional YAML file. A
// missing file is not an error; a malformed one is.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		// Optional file: absent means defaults.
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}
	return cfg, nil
}
