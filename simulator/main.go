// Command simulator runs a fleet of simulated field technicians against an
// MQTT broker: every candidate answers directory roll calls and reports a
// slowly drifting GPS position.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jbleroy/fieldops/core/model"
)

func main() {
	var (
		broker      = flag.String("broker", "tcp://localhost:1883", "MQTT broker URL")
		size        = flag.Int("size", 10, "number of simulated candidates")
		lat         = flag.Float64("lat", 48.8566, "fleet center latitude")
		lng         = flag.Float64("lng", 2.3522, "fleet center longitude")
		spreadKM    = flag.Float64("spread-km", 20, "scatter radius around the center")
		radiusKM    = flag.Float64("radius-km", 25, "per-candidate eligibility radius")
		employeePct = flag.Float64("employee-pct", 0.2, "share of employees in the fleet")
		interval    = flag.Duration("interval", 30*time.Second, "position report interval")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fleet := GenerateFleet(FleetConfig{
		Size:        *size,
		Center:      model.Coordinate{Lat: *lat, Lng: *lng},
		SpreadKM:    *spreadKM,
		RadiusKM:    *radiusKM,
		EmployeePct: *employeePct,
	})

	var wg sync.WaitGroup
	for i := range fleet {
		wg.Add(1)
		go func(c *SimulatedCandidate) {
			defer wg.Done()
			if err := c.Run(ctx, *broker, *interval); err != nil {
				log.Printf("%s: %v", c.ID, err)
			}
		}(&fleet[i])
	}
	log.Printf("simulating %d candidates against %s", len(fleet), *broker)
	wg.Wait()
}
