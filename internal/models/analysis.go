package models

import (
	"time"
)

// Status enumerates the lifecycle states of an analysis.
const (
	StatusPending  = "pending"
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(status string) bool {
	return status == StatusComplete || status == StatusFailed
}

// Pipeline stages, in execution order.
const (
	StageScraping       = "scraping"
	StageKnowledgeGraph = "knowledge_graph"
	StageTopicalMaps    = "topical_maps"
	StageComparison     = "comparison"
	StageFinalizing     = "finalizing"
)

// Stages is the fixed stage sequence every analysis walks through.
var Stages = []string{
	StageScraping,
	StageKnowledgeGraph,
	StageTopicalMaps,
	StageComparison,
	StageFinalizing,
}

// TotalStages is the denominator for progress percentages.
var TotalStages = len(Stages)

// Analysis is the durable record for one submitted multi-URL job.
type Analysis struct {
	ID             string          `json:"analysis_id"`
	Owner          string          `json:"owner"`
	URLs           []string        `json:"urls"`
	Status         string          `json:"status"`
	Pages          []Page          `json:"pages,omitempty"`
	KnowledgeGraph *KnowledgeGraph `json:"knowledge_graph,omitempty"`
	TopicalMaps    []TopicalMap    `json:"topical_maps,omitempty"`
	Comparison     *Comparison     `json:"comparison,omitempty"`
	Error          *string         `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Summary is the status-fetch view of an analysis, without artifact bodies.
type Summary struct {
	ID        string    `json:"analysis_id"`
	URLs      []string  `json:"urls"`
	Status    string    `json:"status"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
