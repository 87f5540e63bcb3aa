package mqtt

import (
	"context"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/jbleroy/fieldops/core/model"
	"github.com/jbleroy/fieldops/core/presence"
	"github.com/jbleroy/fieldops/infra/logger"
	"github.com/jbleroy/fieldops/internal/eventbus"
)

type mockToken struct{ err error }

func (t *mockToken) Wait() bool                     { return true }
func (t *mockToken) WaitTimeout(time.Duration) bool { return true }
func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *mockToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type mockClient struct {
	published  []published
	handlers   map[string]paho.MessageHandler
	publishErr error
}

func newMockClient() *mockClient {
	return &mockClient{handlers: map[string]paho.MessageHandler{}}
}

func (m *mockClient) IsConnected() bool       { return true }
func (m *mockClient) Connect() paho.Token     { return &mockToken{} }
func (m *mockClient) Disconnect(quiesce uint) {}
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	m.published = append(m.published, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return &mockToken{err: m.publishErr}
}
func (m *mockClient) Subscribe(topic string, qos byte, cb paho.MessageHandler) paho.Token {
	m.handlers[topic] = cb
	return &mockToken{}
}
func (m *mockClient) Unsubscribe(topics ...string) paho.Token {
	for _, t := range topics {
		delete(m.handlers, t)
	}
	return &mockToken{}
}

type mockMessage struct {
	topic   string
	payload []byte
}

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return m.topic }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.payload }
func (m mockMessage) Ack()              {}

func newTestClient(mc *mockClient) *Client {
	return &Client{
		cli:        mc,
		qos:        map[string]byte{"events": 1},
		logger:     logger.NopLogger{},
		maxRetries: 1,
		backoff:    time.Millisecond,
	}
}

func TestNotifierForwardsEvents(t *testing.T) {
	mc := newMockClient()
	bus := eventbus.New()
	n := NewNotifier(newTestClient(mc), "fieldops/missions", bus)
	n.Start()

	bus.Publish(eventbus.Notification{Kind: "mission_accepted", Payload: map[string]string{"mission_id": "m1"}})
	bus.Close()
	n.Wait()

	if len(mc.published) != 1 {
		t.Fatalf("published = %d, want 1", len(mc.published))
	}
	got := mc.published[0]
	if got.topic != "fieldops/missions/mission_accepted" {
		t.Fatalf("topic = %s", got.topic)
	}
	if got.qos != 1 {
		t.Fatalf("qos = %d, want 1", got.qos)
	}
	if string(got.payload) != `{"mission_id":"m1"}` {
		t.Fatalf("payload = %s", got.payload)
	}
}

func TestPositionFeedUpdatesPresence(t *testing.T) {
	mc := newMockClient()
	store := presence.NewMemoryStore()
	feed := NewPositionFeed(newTestClient(mc), "fieldops/candidates", store)
	fixed := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	feed.now = func() time.Time { return fixed }
	if err := feed.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	cb := mc.handlers["fieldops/candidates/+/position"]
	if cb == nil {
		t.Fatal("position handler not registered")
	}
	cb(nil, mockMessage{
		topic:   "fieldops/candidates/tech-7/position",
		payload: []byte(`{"lat":48.85,"lng":2.35}`),
	})

	pos, ok := store.Get("tech-7")
	if !ok {
		t.Fatal("position not stored")
	}
	if pos.Coordinate != (model.Coordinate{Lat: 48.85, Lng: 2.35}) {
		t.Fatalf("coordinate = %#v", pos.Coordinate)
	}
	if !pos.ObservedAt.Equal(fixed) {
		t.Fatalf("observed at = %v", pos.ObservedAt)
	}

	// Explicit timestamp wins over the clock.
	cb(nil, mockMessage{
		topic:   "fieldops/candidates/tech-7/position",
		payload: []byte(`{"lat":48.90,"lng":2.40,"ts":1700000000}`),
	})
	pos, _ = store.Get("tech-7")
	if pos.ObservedAt.Unix() != 1700000000 {
		t.Fatalf("observed at = %v", pos.ObservedAt)
	}

	// Garbage payload leaves the store untouched.
	cb(nil, mockMessage{topic: "fieldops/candidates/tech-8/position", payload: []byte("not json")})
	if _, ok := store.Get("tech-8"); ok {
		t.Fatal("garbage payload stored")
	}
}

func TestCandidateFromTopic(t *testing.T) {
	cases := map[string]string{
		"fieldops/candidates/tech-7/position": "tech-7",
		"tech-7/position":                     "tech-7",
		"position":                            "",
		"fieldops/candidates/tech-7/status":   "",
	}
	for topic, want := range cases {
		if got := candidateFromTopic(topic); got != want {
			t.Errorf("candidateFromTopic(%q) = %q, want %q", topic, got, want)
		}
	}
}

func TestDirectoryRollCall(t *testing.T) {
	mc := newMockClient()
	d := NewDirectory(newTestClient(mc), DirectoryConfig{WindowMS: 50})

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Wait for the reply subscription, then answer the roll call twice
		// for the same candidate and once for a second one.
		for i := 0; i < 100; i++ {
			if cb, ok := mc.handlers["fieldops/directory/reply"]; ok {
				cb(nil, mockMessage{payload: []byte(`{"id":"c1","available":true,"lat":48.85,"lng":2.35,"radius_km":30}`)})
				cb(nil, mockMessage{payload: []byte(`{"id":"c1","available":true}`)})
				cb(nil, mockMessage{payload: []byte(`{"id":"c2","role":"employee","location_mode":"fixed_address"}`)})
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	pool, err := d.Candidates(context.Background())
	<-done
	if err != nil {
		t.Fatalf("roll call: %v", err)
	}
	if len(pool) != 2 {
		t.Fatalf("pool = %#v", pool)
	}
	c1 := pool[0]
	if c1.ID != "c1" || !c1.Available || c1.RadiusKM != 30 || c1.Home == nil || c1.Home.Lat != 48.85 {
		t.Fatalf("c1 = %#v", c1)
	}
	if pool[1].Role != model.RoleEmployee || pool[1].LocationMode != model.LocationFixedAddress {
		t.Fatalf("c2 = %#v", pool[1])
	}

	// Second call inside the cache TTL answers without another broadcast.
	requests := len(mc.published)
	again, err := d.Candidates(context.Background())
	if err != nil || len(again) != 2 {
		t.Fatalf("cached call: %v %#v", err, again)
	}
	if len(mc.published) != requests {
		t.Fatal("cached call hit the broker")
	}
}
