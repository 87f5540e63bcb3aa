package test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jbleroy/fieldops/core/dispatch"
	"github.com/jbleroy/fieldops/core/model"
	"github.com/jbleroy/fieldops/core/presence"
	"github.com/jbleroy/fieldops/core/store"
	"github.com/jbleroy/fieldops/infra/logger"
	infmqtt "github.com/jbleroy/fieldops/infra/mqtt"
	"github.com/jbleroy/fieldops/internal/eventbus"
)

func waitForMQTTReady(broker string, timeout time.Duration) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		lastErr = token.Error()
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for broker")
	}
	return lastErr
}

func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
log_type notice
`
	dir := t.TempDir()
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}
	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())
	if err := waitForMQTTReady(broker, 5*time.Second); err != nil {
		t.Logf("mosquitto not ready: %v", err)
		t.Skip("Mosquitto not ready after retries")
	}
	return cont, broker
}

// connectCandidateSim connects a paho client that plays one candidate: it
// answers directory roll calls and reports a live position near Paris.
func connectCandidateSim(broker string, t *testing.T) paho.Client {
	t.Helper()
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("candidate-sim")
	cli := paho.NewClient(opts)
	var connErr error
	for i := 0; i < 5; i++ {
		token := cli.Connect()
		token.Wait()
		connErr = token.Error()
		if connErr == nil {
			break
		}
		time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
	}
	if connErr != nil {
		t.Logf("sim connect failed: %v", connErr)
		t.Skip("Mosquitto not ready after retries")
	}
	if token := cli.Subscribe("fieldops/directory/request", 0, func(c paho.Client, _ paho.Message) {
		snapshot, _ := json.Marshal(map[string]any{
			"id":            "sim1",
			"role":          "subcontractor",
			"available":     true,
			"location_mode": "gps_realtime",
			"radius_km":     25,
		})
		c.Publish("fieldops/directory/reply", 0, false, snapshot)
	}); token.Wait() && token.Error() != nil {
		t.Fatalf("subscribe roll call: %v", token.Error())
	}
	position, _ := json.Marshal(map[string]any{"lat": 48.86, "lng": 2.35})
	if token := cli.Publish("fieldops/candidates/sim1/position", 0, false, position); token.Wait() && token.Error() != nil {
		t.Fatalf("publish position: %v", token.Error())
	}
	return cli
}

func TestMissionDispatchWithMQTTContainer(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()

	cont, broker := startMosquitto(ctx, t)
	defer func() { _ = cont.Terminate(ctx) }()

	sim := connectCandidateSim(broker, t)
	defer sim.Disconnect(100)

	client, err := infmqtt.NewClient(infmqtt.Config{Broker: broker, ClientID: "fieldops-e2e"})
	if err != nil {
		t.Fatalf("mqtt client: %v", err)
	}
	defer client.Disconnect()

	// Collect every mission event published by the notifier.
	events := make(chan string, 16)
	if err := client.Subscribe("fieldops/missions/#", 0, func(_ paho.Client, m paho.Message) {
		select {
		case events <- m.Topic():
		default:
		}
	}); err != nil {
		t.Fatalf("subscribe events: %v", err)
	}

	pres := presence.NewMemoryStore()
	feed := infmqtt.NewPositionFeed(client, "fieldops/candidates", pres)
	if err := feed.Start(); err != nil {
		t.Fatalf("position feed: %v", err)
	}
	defer feed.Stop()

	// The sim's retained-free position report must land before broadcasting.
	position, _ := json.Marshal(map[string]any{"lat": 48.86, "lng": 2.35})
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := pres.Get("sim1"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("position never reached the presence store")
		}
		sim.Publish("fieldops/candidates/sim1/position", 0, false, position)
		time.Sleep(100 * time.Millisecond)
	}

	bus := eventbus.New()
	notifier := infmqtt.NewNotifier(client, "fieldops/missions", bus)
	notifier.Start()

	directory := infmqtt.NewDirectory(client, infmqtt.DirectoryConfig{WindowMS: 1000})
	mgr, err := dispatch.NewManager(store.NewMemoryStore(), directory, pres, bus, logger.NopLogger{}, nil, dispatch.Config{})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	mission, err := mgr.CreateMission(ctx, model.Mission{
		Title:    "inspection ascenseur",
		Location: &model.Coordinate{Lat: 48.8566, Lng: 2.3522},
	})
	if err != nil {
		t.Fatalf("create mission: %v", err)
	}
	offers, err := mgr.Publish(ctx, mission.ID, time.Minute, false)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(offers) != 1 || offers[0].CandidateID != "sim1" {
		t.Fatalf("offers: %#v", offers)
	}

	waitForTopic(t, events, "fieldops/missions/offers_created")

	outcome, err := mgr.Accept(ctx, mission.ID, "sim1")
	if err != nil || outcome != dispatch.AcceptOK {
		t.Fatalf("accept: %v %v", outcome, err)
	}
	waitForTopic(t, events, "fieldops/missions/mission_accepted")

	got, err := mgr.GetMission(ctx, mission.ID)
	if err != nil {
		t.Fatalf("get mission: %v", err)
	}
	if got.AssignedUserID != "sim1" {
		t.Fatalf("mission after accept: %#v", got)
	}

	bus.Close()
	notifier.Wait()
}

func waitForTopic(t *testing.T, events <-chan string, topic string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-events:
			if got == topic {
				return
			}
		case <-deadline:
			t.Fatalf("event %s never arrived", topic)
		}
	}
}
