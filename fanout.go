package robodeck

import (
	"github.com/robodeck/robodeck/core"
	"github.com/robodeck/robodeck/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnBindingEvent(event schema.BindingEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnBindingEvent(event)
	}
}
