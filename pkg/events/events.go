// Package events defines event types and structures for flow lifecycle
// notifications emitted by the builder backend.
package events

import (
	"time"
)

type EventType string

// Kafka topic carrying all builder events.
const Topic = "flowdeck.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Flow lifecycle events.
	FlowCreatedEvent     EventType = "flow.created"
	FlowUpdatedEvent     EventType = "flow.updated"
	FlowDeletedEvent     EventType = "flow.deleted"
	FlowPublishedEvent   EventType = "flow.published"
	FlowUnpublishedEvent EventType = "flow.unpublished"

	// Node events.
	NodeTestCompletedEvent EventType = "node.test.completed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	FlowID    string         `json:"flow_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type FlowCreated struct {
	BaseEvent

	Name  string `json:"name"`
	Owner string `json:"owner,omitempty"`
}

func (e FlowCreated) GetType() EventType {
	return FlowCreatedEvent
}

type FlowUpdated struct {
	BaseEvent

	Version   int `json:"version"`
	NodeCount int `json:"node_count"`
	EdgeCount int `json:"edge_count"`
}

func (e FlowUpdated) GetType() EventType {
	return FlowUpdatedEvent
}

type FlowDeleted struct {
	BaseEvent
}

func (e FlowDeleted) GetType() EventType {
	return FlowDeletedEvent
}

type FlowPublished struct {
	BaseEvent

	Version     int       `json:"version"`
	PublishedAt time.Time `json:"published_at"`
}

func (e FlowPublished) GetType() EventType {
	return FlowPublishedEvent
}

type FlowUnpublished struct {
	BaseEvent
}

func (e FlowUnpublished) GetType() EventType {
	return FlowUnpublishedEvent
}

// NodeTestCompleted reports the outcome of a node connectivity test, keyed to
// the app or provider that was probed.
type NodeTestCompleted struct {
	BaseEvent

	Provider   string `json:"provider"`
	Action     string `json:"action,omitempty"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

func (e NodeTestCompleted) GetType() EventType {
	return NodeTestCompletedEvent
}
