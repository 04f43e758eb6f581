package models

// Comparison is the cross-site artifact, produced only when two or more URLs
// were analyzed. All maps are keyed by input URL.
type Comparison struct {
	BusinessModels     map[string]string             `json:"business_models"`
	ServiceOverlap     []string                      `json:"service_overlap"`
	UniqueServices     map[string][]string           `json:"unique_services"`
	AudienceComparison map[string][]string           `json:"audience_comparison"`
	TechnologyStack    map[string][]string           `json:"technology_stack"`
	GeographicCoverage map[string][]string           `json:"geographic_coverage"`
	SimilarityMatrix   map[string]map[string]float64 `json:"similarity_matrix"`
}
