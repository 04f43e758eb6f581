package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"web-analysis-platform/internal/llm"
	"web-analysis-platform/internal/models"
)

// ErrNotEnoughSites is returned when fewer than two pages scraped
// successfully; the comparison stage is skipped in that case.
var ErrNotEnoughSites = errors.New("comparison requires at least two scraped sites")

// Comparator builds the cross-site comparison artifact.
type Comparator struct {
	llm llm.Client
}

// NewComparator wires the comparator to an LLM client.
func NewComparator(client llm.Client) *Comparator {
	return &Comparator{llm: client}
}

const compareSystemPrompt = `You are an expert business analyst specializing in competitive analysis.
Analyze multiple websites and provide detailed comparison insights.
Return ONLY valid JSON without markdown formatting or explanation.`

type compareSiteData struct {
	URL               string   `json:"url"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	BusinessModel     string   `json:"business_model"`
	TargetAudiences   []string `json:"target_audiences"`
	KeyTopics         []string `json:"key_topics"`
	ConversionMethods []string `json:"conversion_methods"`
	H2Headings        []string `json:"h2_headings"`
	TextPreview       string   `json:"text_preview"`
}

// Compare pairs each successful page with its topical map and asks the model
// for the comparison artifact.
func (c *Comparator) Compare(ctx context.Context, pages []models.Page, maps []models.TopicalMap) (*models.Comparison, error) {
	byURL := make(map[string]models.TopicalMap, len(maps))
	for _, tm := range maps {
		byURL[tm.URL] = tm
	}

	sites := make([]compareSiteData, 0, len(pages))
	for _, page := range pages {
		if page.Status != models.PageOK {
			continue
		}
		tm := byURL[page.URL]
		preview := page.Markdown
		if preview == "" {
			preview = page.Text
		}
		sites = append(sites, compareSiteData{
			URL:               page.URL,
			Title:             page.Title,
			Description:       page.Description,
			BusinessModel:     tm.BusinessModel,
			TargetAudiences:   tm.TargetAudiences,
			KeyTopics:         tm.KeyTopics,
			ConversionMethods: tm.ConversionMethods,
			H2Headings:        head(page.Headings.H2, 10),
			TextPreview:       truncate(preview, 1500),
		})
	}
	if len(sites) < 2 {
		return nil, ErrNotEnoughSites
	}

	encoded, err := json.MarshalIndent(sites, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode site data: %w", err)
	}

	prompt := fmt.Sprintf(`Compare these %d websites and provide a comprehensive analysis.

Websites Data:
%s

Return a JSON object with these exact fields:

1. business_models (object): Map of URL to business model string
2. service_overlap (array): 5-10 services/features that appear across multiple sites
3. unique_services (object): Map of URL to array of unique services (3-5 per site)
4. audience_comparison (object): Map of URL to target audiences array
5. technology_stack (object): Map of URL to technologies array (5-8 items)
6. geographic_coverage (object): Map of URL to locations array
7. similarity_matrix (object): Nested object of similarity scores (0.0-1.0) between each pair of URLs, 1.0 on the diagonal

Provide accurate, data-driven insights based on the actual content.`, len(sites), encoded)

	raw, err := c.llm.ExtractJSON(ctx, compareSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var cmp models.Comparison
	if err := json.Unmarshal(raw, &cmp); err != nil {
		return nil, fmt.Errorf("decode comparison: %w", err)
	}
	if len(cmp.ServiceOverlap) > 15 {
		cmp.ServiceOverlap = cmp.ServiceOverlap[:15]
	}
	return &cmp, nil
}
