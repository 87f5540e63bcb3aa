package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/jbleroy/fieldops/core/model"
	"github.com/jbleroy/fieldops/infra/logger"
)

// Directory resolves the candidate pool over MQTT roll call. It publishes a
// magic word on a request topic and collects candidate snapshots from a
// response topic for a short window. Results are cached so back-to-back
// dispatch operations do not flood the broker.
type Directory struct {
	cli          *Client
	requestTopic string
	replyTopic   string
	magicWord    string
	window       time.Duration
	cacheTTL     time.Duration
	log          logger.Logger

	mu       sync.Mutex
	cached   []model.Candidate
	cachedAt time.Time
	now      func() time.Time
}

// DirectoryConfig tunes the roll-call directory.
type DirectoryConfig struct {
	RequestTopic string `json:"request_topic"`
	ReplyTopic   string `json:"reply_topic"`
	MagicWord    string `json:"magic_word"`
	WindowMS     int    `json:"window_ms"`
	CacheTTLSec  int    `json:"cache_ttl_seconds"`
}

func (c *DirectoryConfig) SetDefaults() {
	if c.RequestTopic == "" {
		c.RequestTopic = "fieldops/directory/request"
	}
	if c.ReplyTopic == "" {
		c.ReplyTopic = "fieldops/directory/reply"
	}
	if c.MagicWord == "" {
		c.MagicWord = "rollcall"
	}
	if c.WindowMS <= 0 {
		c.WindowMS = 500
	}
	if c.CacheTTLSec <= 0 {
		c.CacheTTLSec = 15
	}
}

// NewDirectory builds a roll-call directory on an established client.
func NewDirectory(cli *Client, cfg DirectoryConfig) *Directory {
	cfg.SetDefaults()
	return &Directory{
		cli:          cli,
		requestTopic: cfg.RequestTopic,
		replyTopic:   cfg.ReplyTopic,
		magicWord:    cfg.MagicWord,
		window:       time.Duration(cfg.WindowMS) * time.Millisecond,
		cacheTTL:     time.Duration(cfg.CacheTTLSec) * time.Second,
		log:          logger.New("candidate_directory"),
		now:          time.Now,
	}
}

type candidateSnapshot struct {
	ID           string   `json:"id"`
	Role         string   `json:"role"`
	Available    bool     `json:"available"`
	LocationMode string   `json:"location_mode"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	RadiusKM     float64  `json:"radius_km"`
}

func (s candidateSnapshot) toModel() model.Candidate {
	c := model.Candidate{
		ID:        s.ID,
		Available: s.Available,
		RadiusKM:  s.RadiusKM,
	}
	if s.Role == "employee" {
		c.Role = model.RoleEmployee
	}
	if s.LocationMode == "fixed_address" {
		c.LocationMode = model.LocationFixedAddress
	}
	if s.Lat != nil && s.Lng != nil {
		c.Home = &model.Coordinate{Lat: *s.Lat, Lng: *s.Lng}
	}
	return c
}

// Candidates performs the roll call, honoring the cache.
func (d *Directory) Candidates(ctx context.Context) ([]model.Candidate, error) {
	d.mu.Lock()
	if d.cached != nil && d.now().Sub(d.cachedAt) < d.cacheTTL {
		pool := d.cached
		d.mu.Unlock()
		return pool, nil
	}
	d.mu.Unlock()

	pool, err := d.rollCall(ctx)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.cached = pool
	d.cachedAt = d.now()
	d.mu.Unlock()
	return pool, nil
}

func (d *Directory) rollCall(ctx context.Context) ([]model.Candidate, error) {
	replies := make(chan candidateSnapshot, 64)
	handler := func(_ paho.Client, m paho.Message) {
		var snap candidateSnapshot
		if err := json.Unmarshal(m.Payload(), &snap); err != nil {
			d.log.Errorf("invalid roll-call reply: %v", err)
			return
		}
		select {
		case replies <- snap:
		default:
		}
	}
	if err := d.cli.Subscribe(d.replyTopic, d.cli.qosFor("directory"), handler); err != nil {
		return nil, err
	}
	defer func() {
		if err := d.cli.Unsubscribe(d.replyTopic); err != nil {
			d.log.Errorf("unsubscribe roll call: %v", err)
		}
	}()

	if err := d.cli.Publish(d.requestTopic, d.cli.qosFor("directory"), []byte(d.magicWord)); err != nil {
		return nil, err
	}

	var pool []model.Candidate
	seen := make(map[string]bool)
	timer := time.NewTimer(d.window)
	defer timer.Stop()
	for {
		select {
		case snap := <-replies:
			if snap.ID == "" || seen[snap.ID] {
				continue
			}
			seen[snap.ID] = true
			pool = append(pool, snap.toModel())
		case <-ctx.Done():
			return pool, ctx.Err()
		case <-timer.C:
			d.log.Debugf("roll call collected %d candidates", len(pool))
			return pool, nil
		}
	}
}
