package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jbleroy/fieldops/core/model"
)

var fleetRng = rand.New(rand.NewSource(time.Now().UnixNano()))

// FleetConfig holds parameters for bulk candidate generation.
type FleetConfig struct {
	Size        int
	Center      model.Coordinate
	SpreadKM    float64
	RadiusKM    float64
	EmployeePct float64
	// UnavailablePct is the share of candidates generated off duty.
	UnavailablePct float64
}

// GenerateFleet creates Size candidates with IDs tech0001..techNNNN,
// scattered around the center within SpreadKM.
func GenerateFleet(cfg FleetConfig) []SimulatedCandidate {
	if cfg.Size <= 0 {
		return nil
	}
	deg := cfg.SpreadKM / 111.0
	cs := make([]SimulatedCandidate, cfg.Size)
	for i := 0; i < cfg.Size; i++ {
		role := "subcontractor"
		if cfg.EmployeePct > 0 && fleetRng.Float64() < cfg.EmployeePct {
			role = "employee"
		}
		cs[i] = SimulatedCandidate{
			ID:        fmt.Sprintf("tech%04d", i+1),
			Role:      role,
			RadiusKM:  cfg.RadiusKM,
			Available: fleetRng.Float64() >= cfg.UnavailablePct,
			Position: model.Coordinate{
				Lat: cfg.Center.Lat + (fleetRng.Float64()*2-1)*deg,
				Lng: cfg.Center.Lng + (fleetRng.Float64()*2-1)*deg,
			},
			DriftKM: 0.5,
		}
	}
	return cs
}
