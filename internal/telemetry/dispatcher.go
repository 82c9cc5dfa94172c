// Package telemetry subscribes to the backend's topic streams over a
// reconnecting websocket and fans frames out to local subscribers.
// Leaf views consume topics directly; the blueprint tree is never on
// this path.
package telemetry

import (
	"context"
	"sync"

	"pkt.systems/pslog"

	"github.com/robodeck/robodeck/schema"
)

const defaultDepth = 256

// Dispatcher fans telemetry frames out to per-topic subscribers.
// Slow subscribers drop frames rather than block the read loop.
type Dispatcher struct {
	mu    sync.Mutex
	subs  map[schema.Topic]map[chan schema.TelemetryFrame]struct{}
	log   pslog.Logger
	depth int
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(logger pslog.Logger) *Dispatcher {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Dispatcher{
		subs:  make(map[schema.Topic]map[chan schema.TelemetryFrame]struct{}),
		log:   logger,
		depth: defaultDepth,
	}
}

// Subscribe registers a subscriber for the topic and returns a channel
// plus a cancel func. Cancel closes the channel.
func (d *Dispatcher) Subscribe(topic schema.Topic) (<-chan schema.TelemetryFrame, func()) {
	if d == nil {
		return nil, func() {}
	}
	ch := make(chan schema.TelemetryFrame, d.depth)
	d.mu.Lock()
	topicSubs := d.subs[topic]
	if topicSubs == nil {
		topicSubs = make(map[chan schema.TelemetryFrame]struct{})
		d.subs[topic] = topicSubs
	}
	topicSubs[ch] = struct{}{}
	count := len(topicSubs)
	d.mu.Unlock()
	if d.log != nil {
		d.log.With("topic", topic).Debug("telemetry subscribe", "subs", count)
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.mu.Lock()
			if subs := d.subs[topic]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(d.subs, topic)
				}
			}
			d.mu.Unlock()
			close(ch)
			if d.log != nil {
				d.log.With("topic", topic).Debug("telemetry unsubscribe")
			}
		})
	}
}

// Publish delivers a frame to the topic's subscribers.
func (d *Dispatcher) Publish(frame schema.TelemetryFrame) {
	if d == nil {
		return
	}
	d.mu.Lock()
	topicSubs := d.subs[frame.Topic]
	subs := make([]chan schema.TelemetryFrame, 0, len(topicSubs))
	for sub := range topicSubs {
		subs = append(subs, sub)
	}
	d.mu.Unlock()
	if len(subs) == 0 {
		return
	}
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- frame:
		default:
			dropped++
		}
	}
	if dropped > 0 && d.log != nil {
		d.log.With("topic", frame.Topic).Trace("telemetry dropped", "count", dropped)
	}
}

// Topics lists topics with at least one subscriber.
func (d *Dispatcher) Topics() []schema.Topic {
	d.mu.Lock()
	defer d.mu.Unlock()
	topics := make([]schema.Topic, 0, len(d.subs))
	for topic := range d.subs {
		topics = append(topics, topic)
	}
	return topics
}
