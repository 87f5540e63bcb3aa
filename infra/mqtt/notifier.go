package mqtt

import (
	"encoding/json"

	"github.com/jbleroy/fieldops/infra/logger"
	"github.com/jbleroy/fieldops/internal/eventbus"
)

// Notifier drains the event bus and republishes every notification as JSON
// on <prefix>/<kind>. Delivery is best effort: a failed publish is logged
// and dropped, never retried across events.
type Notifier struct {
	cli    *Client
	prefix string
	bus    eventbus.EventBus
	log    logger.Logger
	done   chan struct{}
}

// NewNotifier subscribes to the bus; Start must be called to begin forwarding.
func NewNotifier(cli *Client, prefix string, bus eventbus.EventBus) *Notifier {
	return &Notifier{
		cli:    cli,
		prefix: prefix,
		bus:    bus,
		log:    logger.New("mqtt_notifier"),
		done:   make(chan struct{}),
	}
}

// Start forwards bus notifications until the bus closes.
func (n *Notifier) Start() {
	sub := n.bus.Subscribe()
	go func() {
		defer close(n.done)
		for ev := range sub {
			n.forward(ev)
		}
	}()
}

func (n *Notifier) forward(ev eventbus.Notification) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		n.log.Errorf("marshal %s event: %v", ev.Kind, err)
		return
	}
	topic := n.prefix + "/" + ev.Kind
	if err := n.cli.Publish(topic, n.cli.qosFor("events"), payload); err != nil {
		n.log.Errorf("publish %s: %v", topic, err)
		return
	}
	n.log.Debugf("forwarded %s", topic)
}

// Wait blocks until the forwarding goroutine has drained and exited.
func (n *Notifier) Wait() {
	<-n.done
}
