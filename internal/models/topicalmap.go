package models

// TopicalMap is the per-URL business and semantic analysis artifact.
type TopicalMap struct {
	URL                 string   `json:"url"`
	BusinessDescription string   `json:"business_description"`
	CentralEntity       string   `json:"central_entity"`
	BusinessModel       string   `json:"business_model"`
	SearchIntent        []string `json:"search_intent"`
	TargetAudiences     []string `json:"target_audiences"`
	ConversionMethods   []string `json:"conversion_methods"`
	KeyTopics           []string `json:"key_topics"`

	SemanticRelationships *SemanticRelationships `json:"semantic_relationships,omitempty"`
	ContentStrategy       *ContentStrategy       `json:"content_strategy,omitempty"`
	QueryTemplates        *QueryTemplates        `json:"query_templates,omitempty"`
	CompetitiveAdvantages []string               `json:"competitive_advantages,omitempty"`
	TechnologyStack       []string               `json:"technology_stack,omitempty"`
}

// SemanticRelationships documents the relationship types around the
// site's central entity.
type SemanticRelationships struct {
	CoreEntities    []string `json:"core_entities,omitempty"`
	DerivedEntities []string `json:"derived_entities,omitempty"`
	Attributes      []string `json:"attributes,omitempty"`
	ContextTerms    []string `json:"context_terms,omitempty"`
	Synonyms        []string `json:"synonyms,omitempty"`
	Antonyms        []string `json:"antonyms,omitempty"`
	Hypernyms       []string `json:"hypernyms,omitempty"`
	Hyponyms        []string `json:"hyponyms,omitempty"`
	Holonyms        []string `json:"holonyms,omitempty"`
	Meronyms        []string `json:"meronyms,omitempty"`
	RelatedConcepts []string `json:"related_concepts,omitempty"`
	Acronyms        []string `json:"acronyms,omitempty"`
}

// ContentStrategy splits topics into revenue-focused core and
// authority-building outer groups.
type ContentStrategy struct {
	CoreTopics    []string `json:"core_topics,omitempty"`
	OuterTopics   []string `json:"outer_topics,omitempty"`
	ContentGaps   []string `json:"content_gaps,omitempty"`
	PriorityAreas []string `json:"priority_areas,omitempty"`
}

// QueryTemplates groups example search queries by intent category.
type QueryTemplates struct {
	RawQueries       []string `json:"raw_queries,omitempty"`
	Informational    []string `json:"informational,omitempty"`
	Transactional    []string `json:"transactional,omitempty"`
	Commercial       []string `json:"commercial,omitempty"`
	Navigational     []string `json:"navigational,omitempty"`
	Contextual       []string `json:"contextual,omitempty"`
	AudienceSpecific []string `json:"audience_specific,omitempty"`
}
