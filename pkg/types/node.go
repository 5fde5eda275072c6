// Package types holds the serializable domain model shared across the
// tree, extractors, chunkers, persistence, and query packages.
package types

import "time"

// NodeType is a closed tag set describing a ContextNode's role in the tree.
// Ordering defines typical depth: Root=0, Domain=1, Category=2, Project=3,
// Module/Document/FileReference continue from there.
type NodeType string

const (
	NodeTypeRoot          NodeType = "Root"
	NodeTypeDomain        NodeType = "Domain"
	NodeTypeCategory      NodeType = "Category"
	NodeTypeProject       NodeType = "Project"
	NodeTypeModule        NodeType = "Module"
	NodeTypeDocument      NodeType = "Document"
	NodeTypeFileReference NodeType = "FileReference"
)

// CrossLinkType is a closed tag set for related-node edges.
type CrossLinkType string

const (
	CrossLinkSameTechnology CrossLinkType = "SameTechnology"
)

// RelatedNode is an entry in a ContextNode's related_nodes set.
type RelatedNode struct {
	NodeID   string        `json:"node_id"`
	LinkType CrossLinkType `json:"link_type"`
	Strength float64       `json:"strength"`
	Reason   string        `json:"reason,omitempty"`
}

// ContextNode is the universal tree element.
type ContextNode struct {
	ID           string        `json:"id"`
	Type         NodeType      `json:"type"`
	Name         string        `json:"name"`
	Summary      string        `json:"summary"`
	Keywords     []string      `json:"keywords,omitempty"`
	Path         string        `json:"path,omitempty"`
	Depth        int           `json:"depth"`
	ParentID     string        `json:"parent_id,omitempty"`
	Children     []string      `json:"children,omitempty"`
	Entities     []Entity      `json:"entities,omitempty"`
	RelatedNodes []RelatedNode `json:"related_nodes,omitempty"`
	Confidence   float64       `json:"confidence"`
	LastUpdated  time.Time     `json:"last_updated"`
	AccessCount  uint64        `json:"access_count"`
}

// HasPath reports whether this node type carries a filesystem path.
func (t NodeType) HasPath() bool {
	switch t {
	case NodeTypeProject, NodeTypeModule, NodeTypeDocument, NodeTypeFileReference:
		return true
	default:
		return false
	}
}
