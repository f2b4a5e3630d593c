package models

import (
	"strings"
	"time"
)

// FlowStatus represents the lifecycle state of a flow.
type FlowStatus string

const (
	FlowStatusDraft       FlowStatus = "draft"       // Editable, not executable
	FlowStatusPublished   FlowStatus = "published"   // Current active version
	FlowStatusUnpublished FlowStatus = "unpublished" // Historical version
)

// Viewport captures the canvas camera so the builder reopens where the user
// left off.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// Edge connects two node handles. Handle references use the
// "{node_id}:{handle_name}" form.
type Edge struct {
	ID           string `json:"id"`
	SourceHandle string `json:"source_handle" validate:"required"`
	TargetHandle string `json:"target_handle" validate:"required"`
}

// ParseHandle splits a "{node_id}:{handle_name}" reference into components.
func ParseHandle(handle string) (string, string, bool) {
	if i := strings.IndexByte(handle, ':'); i >= 0 {
		return handle[:i], handle[i+1:], true
	}

	return "", "", false
}

// MakeHandle builds a handle reference from a node ID and handle name.
func MakeHandle(nodeID, name string) string {
	return nodeID + ":" + name
}

// Flow is the persisted canvas document: nodes, edges between node handles,
// the viewport and free-text notes. Its JSON shape is the cross-session
// contract with the builder UI.
type Flow struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"    validate:"required,min=3"`
	Version     int        `json:"version"`
	Status      FlowStatus `json:"status"  validate:"required"`
	Nodes       []*Node    `json:"nodes"`
	Edges       []*Edge    `json:"edges"`
	Viewport    Viewport   `json:"viewport"`
	Notes       string     `json:"notes,omitempty"`
	Owner       string     `json:"owner"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Normalize rewrites legacy node shapes and guarantees non-nil collections.
// It is invoked once whenever a flow is loaded from storage.
func (f *Flow) Normalize() {
	if f.Nodes == nil {
		f.Nodes = []*Node{}
	}

	if f.Edges == nil {
		f.Edges = []*Edge{}
	}

	for _, node := range f.Nodes {
		node.Normalize()
	}
}

// NodeByID returns the node with the given ID, or nil.
func (f *Flow) NodeByID(id string) *Node {
	for _, node := range f.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}

// RemoveNode deletes a node and every edge attached to one of its handles.
// It reports whether the node existed.
func (f *Flow) RemoveNode(id string) bool {
	index := -1

	for i, node := range f.Nodes {
		if node.ID == id {
			index = i

			break
		}
	}

	if index < 0 {
		return false
	}

	f.Nodes = append(f.Nodes[:index], f.Nodes[index+1:]...)

	kept := f.Edges[:0]

	for _, edge := range f.Edges {
		sourceNode, _, _ := ParseHandle(edge.SourceHandle)
		targetNode, _, _ := ParseHandle(edge.TargetHandle)

		if sourceNode != id && targetNode != id {
			kept = append(kept, edge)
		}
	}

	f.Edges = kept

	return true
}
