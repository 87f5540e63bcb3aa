package main

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/jbleroy/fieldops/core/model"
)

// SimulatedCandidate connects to MQTT, answers directory roll calls and
// streams a drifting position.
type SimulatedCandidate struct {
	ID        string
	Role      string
	RadiusKM  float64
	Available bool
	Position  model.Coordinate

	// DriftKM bounds the random walk applied on each position report.
	DriftKM float64

	client paho.Client
	rng    *rand.Rand
}

// Run connects to the broker and simulates the candidate until ctx is done.
func (c *SimulatedCandidate) Run(ctx context.Context, broker string, interval time.Duration) error {
	cli, err := newMQTTClient(broker, "sim-"+c.ID)
	if err != nil {
		return err
	}
	c.client = cli
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	if token := cli.Subscribe("fieldops/directory/request", 0, c.onRollCall); token.Wait() && token.Error() != nil {
		cli.Disconnect(250)
		return token.Error()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	c.reportPosition()
	for {
		select {
		case <-ctx.Done():
			cli.Disconnect(250)
			return nil
		case <-ticker.C:
			c.drift()
			c.reportPosition()
		}
	}
}

func (c *SimulatedCandidate) onRollCall(_ paho.Client, _ paho.Message) {
	snapshot, err := json.Marshal(map[string]any{
		"id":            c.ID,
		"role":          c.Role,
		"available":     c.Available,
		"location_mode": "gps_realtime",
		"radius_km":     c.RadiusKM,
	})
	if err != nil {
		log.Printf("%s: encode snapshot: %v", c.ID, err)
		return
	}
	c.client.Publish("fieldops/directory/reply", 0, false, snapshot)
}

// drift moves the candidate by at most DriftKM in a random direction.
// One degree of latitude is ~111 km.
func (c *SimulatedCandidate) drift() {
	if c.DriftKM <= 0 {
		return
	}
	deg := c.DriftKM / 111.0
	c.Position.Lat += (c.rng.Float64()*2 - 1) * deg
	c.Position.Lng += (c.rng.Float64()*2 - 1) * deg
}

func (c *SimulatedCandidate) reportPosition() {
	payload, err := json.Marshal(map[string]any{
		"lat": c.Position.Lat,
		"lng": c.Position.Lng,
	})
	if err != nil {
		log.Printf("%s: encode position: %v", c.ID, err)
		return
	}
	c.client.Publish("fieldops/candidates/"+c.ID+"/position", 0, false, payload)
}
