package graph

import "github.com/BaSui01/coordflow/types"

// EventType defines the type of turn stream event.
type EventType string

const (
	// EventNodeStart is emitted before a node begins execution.
	EventNodeStart EventType = "node_start"
	// EventNodeComplete is emitted after a node finishes successfully.
	EventNodeComplete EventType = "node_complete"
	// EventNodeError is emitted when a node or a session operation fails;
	// it is always the last event of a failed turn.
	EventNodeError EventType = "node_error"
	// EventDone closes a successful turn and carries the final state.
	EventDone EventType = "done"
)

// StreamEvent carries information about one step of a streamed turn.
// 事件通道一次性消费，不可重放。
type StreamEvent struct {
	Type     EventType                `json:"type"`
	Node     NodeName                 `json:"node,omitempty"`
	ThreadID string                   `json:"thread_id"`
	TurnID   string                   `json:"turn_id"`
	State    *types.CoordinationState `json:"state,omitempty"`
	Error    error                    `json:"-"`
}
