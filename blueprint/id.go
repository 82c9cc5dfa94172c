package blueprint

import (
	"github.com/google/uuid"

	"github.com/robodeck/robodeck/schema"
)

func newNodeID() schema.NodeID {
	return schema.NodeID(uuid.NewString())
}

func newTabID() schema.TabID {
	return schema.TabID(uuid.NewString())
}
