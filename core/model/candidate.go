package model

// Role classifies a candidate in the dispatch pool.
type Role int

const (
	RoleSubcontractor Role = iota
	RoleEmployee
)

func (r Role) String() string {
	switch r {
	case RoleSubcontractor:
		return "subcontractor"
	case RoleEmployee:
		return "employee"
	default:
		return "unknown"
	}
}

// LocationMode selects how a candidate position is resolved during a
// broadcast.
type LocationMode int

const (
	// LocationGPSRealtime uses the latest live-tracked coordinate when it
	// is fresh enough, falling back to the fixed profile coordinate.
	LocationGPSRealtime LocationMode = iota
	// LocationFixedAddress always uses the fixed profile coordinate.
	LocationFixedAddress
)

// DefaultRadiusKM applies when a candidate has no eligibility radius set.
const DefaultRadiusKM = 25.0

// Candidate is a transient eligibility snapshot of one pool member. It is
// computed per broadcast and never persisted by the engine.
type Candidate struct {
	ID           string
	Role         Role
	Available    bool
	LocationMode LocationMode

	// Home is the fixed profile coordinate, nil when never geocoded.
	Home *Coordinate

	// RadiusKM is the eligibility radius; zero means DefaultRadiusKM.
	RadiusKM float64
}

// EffectiveRadiusKM returns the candidate radius with the default applied.
func (c Candidate) EffectiveRadiusKM() float64 {
	if c.RadiusKM <= 0 {
		return DefaultRadiusKM
	}
	return c.RadiusKM
}
