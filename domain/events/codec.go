package events

import (
	"encoding/json"
	"fmt"
)

// Envelope is the storage form of a tree event
type Envelope struct {
	Type    string          `json:"type"`
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Encode wraps a tree event in an envelope
func Encode(e TreeEvent) (Envelope, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s: %w", e.GetEventType(), err)
	}
	return Envelope{Type: e.GetEventType(), Version: e.GetVersion(), Data: data}, nil
}

// Decode restores a tree event from its envelope
func Decode(env Envelope) (TreeEvent, error) {
	var (
		event TreeEvent
		err   error
	)
	switch env.Type {
	case TypeNodeAdded:
		var e NodeAdded
		err = json.Unmarshal(env.Data, &e)
		event = e
	case TypeNodeUpdated:
		var e NodeUpdated
		err = json.Unmarshal(env.Data, &e)
		event = e
	case TypeNodeRemoved:
		var e NodeRemoved
		err = json.Unmarshal(env.Data, &e)
		event = e
	case TypeParentEdgeAdded:
		var e ParentEdgeAdded
		err = json.Unmarshal(env.Data, &e)
		event = e
	case TypeTreesMerged:
		var e TreesMerged
		err = json.Unmarshal(env.Data, &e)
		event = e
	default:
		return nil, fmt.Errorf("unknown tree event type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", env.Type, err)
	}
	return event, nil
}
