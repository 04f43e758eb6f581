package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"web-analysis-platform/internal/llm"
	"web-analysis-platform/internal/models"
)

// TopicalMapGenerator builds the per-URL business analysis artifact.
type TopicalMapGenerator struct {
	llm llm.Client
}

// NewTopicalMapGenerator wires the generator to an LLM client.
func NewTopicalMapGenerator(client llm.Client) *TopicalMapGenerator {
	return &TopicalMapGenerator{llm: client}
}

const topicalSystemPrompt = `You are an expert SEO strategist and business analyst specializing in semantic website analysis and content strategy.
Analyze the provided website data and create a comprehensive topical map.
Return ONLY valid JSON without markdown formatting.`

// GenerateAll produces one topical map per successfully scraped page.
func (t *TopicalMapGenerator) GenerateAll(ctx context.Context, pages []models.Page) ([]models.TopicalMap, error) {
	maps := make([]models.TopicalMap, 0, len(pages))
	for _, page := range pages {
		if page.Status != models.PageOK {
			continue
		}
		tm, err := t.generate(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("topical map for %s: %w", page.URL, err)
		}
		maps = append(maps, tm)
	}
	return maps, nil
}

type topicalPromptData struct {
	URL         string        `json:"url"`
	Domain      string        `json:"domain"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	H1          []string      `json:"h1_headings"`
	H2          []string      `json:"h2_headings"`
	H3          []string      `json:"h3_headings"`
	TextPreview string        `json:"text_preview"`
	SampleLinks []models.Link `json:"sample_links"`
}

func (t *TopicalMapGenerator) generate(ctx context.Context, page models.Page) (models.TopicalMap, error) {
	data := topicalPromptData{
		URL:         page.URL,
		Domain:      DomainOf(page.URL),
		Title:       page.Title,
		Description: page.Description,
		H1:          page.Headings.H1,
		H2:          head(page.Headings.H2, 15),
		H3:          head(page.Headings.H3, 15),
		TextPreview: truncate(page.Text, 5000),
	}
	if len(page.Links) > 30 {
		data.SampleLinks = page.Links[:30]
	} else {
		data.SampleLinks = page.Links
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return models.TopicalMap{}, fmt.Errorf("encode prompt data: %w", err)
	}

	prompt := fmt.Sprintf(`Perform a comprehensive semantic analysis of this website.

Website Data:
%s

Analyze the business, its audiences, and its content strategy, then return JSON with this EXACT structure:

{
  "business_description": "Detailed 300-400 word description covering what they do, business model, value props, target markets, competitive positioning",
  "central_entity": "Main business/brand name",
  "business_model": "Specific model (e.g. 'B2B SaaS Platform', 'E-commerce Marketplace', 'Professional Services')",
  "search_intent": ["Primary Intent 1", "Intent 2", "Intent 3"],
  "target_audiences": ["Audience 1 (Level)", "Audience 2 (Level)", "Audience 3"],
  "conversion_methods": ["Method 1", "Method 2", "Method 3"],
  "key_topics": ["Topic 1", "Topic 2", "Topic 3"],
  "semantic_relationships": {
    "core_entities": ["..."], "derived_entities": ["..."], "attributes": ["..."],
    "context_terms": ["..."], "synonyms": ["..."], "antonyms": ["..."],
    "hypernyms": ["..."], "hyponyms": ["..."], "holonyms": ["..."],
    "meronyms": ["..."], "related_concepts": ["..."], "acronyms": ["..."]
  },
  "content_strategy": {
    "core_topics": ["6-10 direct revenue topics"],
    "outer_topics": ["8-12 authority/traffic topics"],
    "content_gaps": ["4-6 opportunities competitors missed"],
    "priority_areas": ["4-6 top strategic focuses"]
  },
  "query_templates": {
    "raw_queries": ["..."], "informational": ["..."], "transactional": ["..."],
    "commercial": ["..."], "navigational": ["..."], "contextual": ["..."],
    "audience_specific": ["..."]
  },
  "competitive_advantages": ["5-8 key differentiators"],
  "technology_stack": ["6-10 technologies/tools/platforms used"]
}

Provide accurate, data-driven insights based on the actual content.`, encoded)

	raw, err := t.llm.ExtractJSON(ctx, topicalSystemPrompt, prompt)
	if err != nil {
		return models.TopicalMap{}, err
	}

	var tm models.TopicalMap
	if err := json.Unmarshal(raw, &tm); err != nil {
		return models.TopicalMap{}, fmt.Errorf("decode topical map: %w", err)
	}
	tm.URL = page.URL
	return tm, nil
}
