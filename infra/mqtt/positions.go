package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/jbleroy/fieldops/core/model"
	"github.com/jbleroy/fieldops/core/presence"
	"github.com/jbleroy/fieldops/infra/logger"
)

// PositionFeed subscribes to candidate position reports and keeps the
// presence store current. Topic layout: <prefix>/<candidate_id>/position,
// payload {"lat":..,"lng":..,"ts":<unix seconds>}. A missing ts means "now".
type PositionFeed struct {
	cli    *Client
	prefix string
	store  presence.Store
	log    logger.Logger
	now    func() time.Time
}

// NewPositionFeed prepares a feed; Start subscribes it.
func NewPositionFeed(cli *Client, prefix string, store presence.Store) *PositionFeed {
	if prefix == "" {
		prefix = "fieldops/candidates"
	}
	return &PositionFeed{
		cli:    cli,
		prefix: strings.TrimSuffix(prefix, "/"),
		store:  store,
		log:    logger.New("position_feed"),
		now:    time.Now,
	}
}

// Start subscribes to the position topic filter.
func (f *PositionFeed) Start() error {
	topic := f.prefix + "/+/position"
	return f.cli.Subscribe(topic, f.cli.qosFor("positions"), f.onPosition)
}

// Stop removes the subscription.
func (f *PositionFeed) Stop() {
	if err := f.cli.Unsubscribe(f.prefix + "/+/position"); err != nil {
		f.log.Errorf("unsubscribe: %v", err)
	}
}

func (f *PositionFeed) onPosition(_ paho.Client, msg paho.Message) {
	var report struct {
		CandidateID string  `json:"candidate_id"`
		Lat         float64 `json:"lat"`
		Lng         float64 `json:"lng"`
		TS          *int64  `json:"ts"`
	}
	if err := json.Unmarshal(msg.Payload(), &report); err != nil {
		f.log.Errorf("invalid position payload: %v", err)
		return
	}
	if report.CandidateID == "" {
		report.CandidateID = candidateFromTopic(msg.Topic())
	}
	if report.CandidateID == "" {
		f.log.Errorf("position report without candidate id on %s", msg.Topic())
		return
	}
	observed := f.now()
	if report.TS != nil {
		observed = time.Unix(*report.TS, 0)
	}
	f.store.Set(report.CandidateID, presence.Position{
		Coordinate: model.Coordinate{Lat: report.Lat, Lng: report.Lng},
		ObservedAt: observed,
	})
	f.log.Debugw("position updated", map[string]any{
		"candidate_id": report.CandidateID,
		"lat":          report.Lat,
		"lng":          report.Lng,
	})
}

// candidateFromTopic extracts the id from <prefix>/<id>/position.
func candidateFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 || parts[len(parts)-1] != "position" {
		return ""
	}
	return parts[len(parts)-2]
}
