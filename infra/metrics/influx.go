package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/jbleroy/fieldops/core/metrics"
	"github.com/jbleroy/fieldops/infra/logger"
)

// InfluxSink writes dispatch events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordBroadcast writes a broadcast cycle as a point.
func (s *InfluxSink) RecordBroadcast(ev coremetrics.BroadcastEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("mission_broadcast").
		AddTag("mission_id", ev.MissionID).
		AddTag("component", "dispatch_manager").
		AddField("pool", ev.Pool).
		AddField("eligible", ev.Eligible).
		AddField("offers_created", ev.Created).
		AddField("ttl_seconds", ev.TTL.Seconds()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAcceptance writes an acceptance attempt as a point.
func (s *InfluxSink) RecordAcceptance(ev coremetrics.AcceptanceEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("mission_acceptance").
		AddTag("mission_id", ev.MissionID).
		AddTag("candidate_id", ev.CandidateID).
		AddTag("outcome", ev.Outcome).
		AddTag("component", "dispatch_manager").
		AddField("latency_ms", ev.Latency.Seconds()*1000).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTransition writes a lifecycle transition as a point.
func (s *InfluxSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("mission_transition").
		AddTag("mission_id", ev.MissionID).
		AddTag("op", ev.Op).
		AddTag("from", ev.From).
		AddTag("to", ev.To).
		AddTag("component", "dispatch_manager").
		AddField("count", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
