package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/robodeck/robodeck/schema"
)

func frame(topic schema.Topic, payload string) schema.TelemetryFrame {
	return schema.TelemetryFrame{
		Topic:     topic,
		Data:      json.RawMessage(payload),
		Timestamp: time.Now(),
	}
}

func TestDispatcherRoutesByTopic(t *testing.T) {
	disp := NewDispatcher(nil)
	cam, cancelCam := disp.Subscribe("camera/front")
	defer cancelCam()
	joints, cancelJoints := disp.Subscribe("robot/joint_state")
	defer cancelJoints()

	disp.Publish(frame("camera/front", `{"seq":1}`))

	select {
	case got := <-cam:
		if got.Topic != "camera/front" {
			t.Fatalf("unexpected topic %q", got.Topic)
		}
	default:
		t.Fatalf("expected camera frame delivered")
	}
	select {
	case got := <-joints:
		t.Fatalf("joint subscriber received foreign frame: %#v", got)
	default:
	}
}

func TestDispatcherFanoutToMultipleSubscribers(t *testing.T) {
	disp := NewDispatcher(nil)
	a, cancelA := disp.Subscribe("camera/front")
	defer cancelA()
	b, cancelB := disp.Subscribe("camera/front")
	defer cancelB()

	disp.Publish(frame("camera/front", `{}`))

	for name, ch := range map[string]<-chan schema.TelemetryFrame{"a": a, "b": b} {
		select {
		case <-ch:
		default:
			t.Fatalf("subscriber %s missed frame", name)
		}
	}
}

func TestDispatcherDropsWhenSubscriberFull(t *testing.T) {
	disp := NewDispatcher(nil)
	ch, cancel := disp.Subscribe("camera/front")
	defer cancel()

	for i := 0; i < defaultDepth+10; i++ {
		disp.Publish(frame("camera/front", `{}`))
	}
	if len(ch) != defaultDepth {
		t.Fatalf("expected buffer capped at %d, got %d", defaultDepth, len(ch))
	}
}

func TestDispatcherUnsubscribeClosesChannel(t *testing.T) {
	disp := NewDispatcher(nil)
	ch, cancel := disp.Subscribe("camera/front")
	cancel()
	cancel() // idempotent

	if _, open := <-ch; open {
		t.Fatalf("expected channel closed after cancel")
	}
	// Publishing after unsubscribe must not panic.
	disp.Publish(frame("camera/front", `{}`))
	if topics := disp.Topics(); len(topics) != 0 {
		t.Fatalf("expected no active topics, got %v", topics)
	}
}
