package sim

// EntityID identifies an entity for the lifetime of a mission.
type EntityID int

// NoEntity marks an empty entity reference (e.g. no target lock).
const NoEntity EntityID = -1

// EntityClass distinguishes the fixed set of entity kinds the core handles.
type EntityClass int

const (
	ClassPlayer EntityClass = iota
	ClassGrabon
	ClassSatellite
	ClassPlanet
)

func (c EntityClass) String() string {
	switch c {
	case ClassPlayer:
		return "player"
	case ClassGrabon:
		return "grabon"
	case ClassSatellite:
		return "satellite"
	case ClassPlanet:
		return "planet"
	default:
		return "unknown"
	}
}

// ColliderKind selects the collision shape variant.
type ColliderKind int

const (
	ColliderBox ColliderKind = iota
	ColliderSphere
)

// Collider is an entity's collision shape in local space.
// Boxes use HalfSize; spheres use Radius.
type Collider struct {
	Kind     ColliderKind
	HalfSize Vec3
	Radius   float64
}

// Entity is one simulated object. Fields past the collider are only
// meaningful for some classes: the disablement flags apply to anything
// with a subsystem registry, TargetLock to the player only.
type Entity struct {
	ID           EntityID
	Class        EntityClass
	Pos          Vec3
	HeadingTurns float64 // 0 faces +Z, 1.0 turn = 360°
	Health       float64
	MaxHealth    float64
	Armor        float64 // incoming hull damage multiplier
	Speed        float64 // current speed, world units/s
	Destroyed    bool
	Collider     *Collider

	// Subsystem effect flags, recomputed each tick by ApplyEffects.
	WeaponsDisabled     bool
	EnginesDisabled     bool
	ShieldsDisabled     bool
	SensorsDisabled     bool
	LifeSupportDisabled bool

	// Player only: current target lock, NoEntity when none.
	TargetLock EntityID
}

// Forward returns the entity's unit facing vector.
func (e *Entity) Forward() Vec3 {
	return ForwardFromTurns(e.HeadingTurns)
}

// HealthFrac returns current health as a fraction of max, 0 when max is unset.
func (e *Entity) HealthFrac() float64 {
	if e.MaxHealth <= 0 {
		return 0
	}
	return e.Health / e.MaxHealth
}

// DamageHull applies armor-scaled damage to the hull, clamping at zero and
// marking the entity destroyed when it reaches zero.
func (e *Entity) DamageHull(amount float64) {
	if e.Destroyed || amount <= 0 {
		return
	}
	mul := e.Armor
	if mul <= 0 {
		mul = 1.0
	}
	e.Health -= amount * mul
	if e.Health <= 0 {
		e.Health = 0
		e.Destroyed = true
	}
}

// NewPlayer creates the player ship at pos facing +Z.
func NewPlayer(id EntityID, pos Vec3, maxHealth float64) *Entity {
	return &Entity{
		ID:         id,
		Class:      ClassPlayer,
		Pos:        pos,
		Health:     maxHealth,
		MaxHealth:  maxHealth,
		Armor:      1.0,
		Collider:   &Collider{Kind: ColliderBox, HalfSize: Vec3{2.0, 1.2, 3.0}},
		TargetLock: NoEntity,
	}
}

// NewGrabon creates an enemy fighter at pos with the given heading.
func NewGrabon(id EntityID, pos Vec3, headingTurns, maxHealth float64) *Entity {
	return &Entity{
		ID:           id,
		Class:        ClassGrabon,
		Pos:          pos,
		HeadingTurns: wrapHeading(headingTurns),
		Health:       maxHealth,
		MaxHealth:    maxHealth,
		Armor:        1.0,
		Collider:     &Collider{Kind: ColliderBox, HalfSize: Vec3{2.0, 1.2, 3.0}},
		TargetLock:   NoEntity,
	}
}

// NewSatellite creates a stationary object that participates in obstacle
// scans and collisions but takes no decisions.
func NewSatellite(id EntityID, pos Vec3, maxHealth float64) *Entity {
	return &Entity{
		ID:         id,
		Class:      ClassSatellite,
		Pos:        pos,
		Health:     maxHealth,
		MaxHealth:  maxHealth,
		Armor:      1.0,
		Collider:   &Collider{Kind: ColliderBox, HalfSize: Vec3{1.5, 1.5, 1.5}},
		TargetLock: NoEntity,
	}
}

// NewPlanet creates an indestructible spherical obstacle.
func NewPlanet(id EntityID, pos Vec3, radius float64) *Entity {
	return &Entity{
		ID:         id,
		Class:      ClassPlanet,
		Pos:        pos,
		Health:     1,
		MaxHealth:  1,
		Armor:      0,
		Collider:   &Collider{Kind: ColliderSphere, Radius: radius},
		TargetLock: NoEntity,
	}
}
