package models

// Node is a single entity in the knowledge graph. Domain nodes anchor one
// cluster per input site; entity nodes share the cluster's color.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Color string `json:"color"`
	Size  int    `json:"size"`
}

// Edge connects two nodes. The label carries the relationship kind
// (entity category, "offers", "powers").
type Edge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Label    string `json:"label"`
	Inferred bool   `json:"inferred"`
}

// KnowledgeGraph is the first analysis artifact: one cluster of extracted
// entities per successfully scraped domain.
type KnowledgeGraph struct {
	Nodes []Node `json:"nodes"`
	Links []Edge `json:"links"`
}
