package sink

import (
	"context"
	"encoding/json"
)

// ObjectSink is the downstream system that durably creates one object per
// item. An error means this item was rejected; it says nothing about any
// other item.
type ObjectSink interface {
	Create(ctx context.Context, item json.RawMessage) error
}
