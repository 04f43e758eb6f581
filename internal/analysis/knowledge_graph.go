// Package analysis turns scraped page records into the three analysis
// artifacts. Each generator prepares a prompt, calls the LLM client for
// structured JSON, and assembles the artifact from the response.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"web-analysis-platform/internal/llm"
	"web-analysis-platform/internal/models"
)

// Cluster colors assigned to domains in input order.
var domainColors = []string{
	"#3b82f6", // blue
	"#ef4444", // red
	"#10b981", // green
	"#f59e0b", // amber
	"#8b5cf6", // purple
	"#ec4899", // pink
	"#06b6d4", // cyan
	"#f97316", // orange
	"#14b8a6", // teal
	"#a855f7", // violet
}

const (
	domainNodeSize = 80
	entityNodeSize = 35
	maxEntityChars = 40
	maxPerCategory = 10
)

// GraphGenerator builds the knowledge-graph artifact: one colored cluster of
// AI-extracted entities per successfully scraped domain.
type GraphGenerator struct {
	llm llm.Client
}

// NewGraphGenerator wires the generator to an LLM client.
func NewGraphGenerator(client llm.Client) *GraphGenerator {
	return &GraphGenerator{llm: client}
}

// entitySet is the JSON shape the extraction prompt asks for.
type entitySet struct {
	Services     []string `json:"services"`
	Products     []string `json:"products"`
	Technologies []string `json:"technologies"`
	Audiences    []string `json:"audiences"`
	Topics       []string `json:"topics"`
}

func (e *entitySet) categories() []struct {
	name  string
	items []string
} {
	return []struct {
		name  string
		items []string
	}{
		{"services", e.Services},
		{"products", e.Products},
		{"technologies", e.Technologies},
		{"audiences", e.Audiences},
		{"topics", e.Topics},
	}
}

const entitySystemPrompt = `You are an expert at analyzing websites and extracting key entities.
Extract the most important entities from the website content.
Return ONLY valid JSON without markdown formatting.`

// Generate builds the graph from the scraped pages, skipping error records.
func (g *GraphGenerator) Generate(ctx context.Context, pages []models.Page) (*models.KnowledgeGraph, error) {
	graph := &models.KnowledgeGraph{Nodes: []models.Node{}, Links: []models.Edge{}}
	seen := make(map[string]bool)

	for idx, page := range pages {
		if page.Status != models.PageOK {
			continue
		}
		domain := DomainOf(page.URL)
		color := domainColors[idx%len(domainColors)]

		entities, err := g.extractEntities(ctx, domain, page)
		if err != nil {
			return nil, fmt.Errorf("extract entities for %s: %w", domain, err)
		}

		domainID := "domain_" + domain
		graph.Nodes = append(graph.Nodes, models.Node{
			ID:    domainID,
			Label: domain,
			Type:  "domain",
			Color: color,
			Size:  domainNodeSize,
		})
		seen[domainID] = true

		for _, cat := range entities.categories() {
			for _, entity := range cat.items {
				if entity == "" {
					continue
				}
				nodeID := fmt.Sprintf("%s_%s_%s", domain, cat.name, entity)
				if seen[nodeID] {
					continue
				}
				graph.Nodes = append(graph.Nodes, models.Node{
					ID:    nodeID,
					Label: entity,
					Type:  cat.name,
					Color: color,
					Size:  entityNodeSize,
				})
				seen[nodeID] = true
				graph.Links = append(graph.Links, models.Edge{
					Source: domainID,
					Target: nodeID,
					Label:  cat.name,
				})
			}
		}

		// Intra-cluster links: services offer products, technologies power services.
		for _, service := range head(entities.Services, 3) {
			serviceID := fmt.Sprintf("%s_services_%s", domain, service)
			for _, product := range head(entities.Products, 2) {
				productID := fmt.Sprintf("%s_products_%s", domain, product)
				if seen[serviceID] && seen[productID] {
					graph.Links = append(graph.Links, models.Edge{Source: serviceID, Target: productID, Label: "offers"})
				}
			}
		}
		for _, tech := range head(entities.Technologies, 3) {
			techID := fmt.Sprintf("%s_technologies_%s", domain, tech)
			for _, service := range head(entities.Services, 2) {
				serviceID := fmt.Sprintf("%s_services_%s", domain, service)
				if seen[techID] && seen[serviceID] {
					graph.Links = append(graph.Links, models.Edge{Source: techID, Target: serviceID, Label: "powers"})
				}
			}
		}
	}

	return graph, nil
}

func (g *GraphGenerator) extractEntities(ctx context.Context, domain string, page models.Page) (*entitySet, error) {
	prompt := fmt.Sprintf(`Analyze this website and extract key entities:

Domain: %s
Title: %s
Description: %s
Content Preview: %s

Extract entities in these categories:
- services: Main services or offerings (max 8)
- products: Specific products (max 8)
- technologies: Technologies used or mentioned (max 6)
- audiences: Target audiences (max 5)
- topics: Main topics or themes (max 6)

Return JSON format:
{
  "services": ["Service 1", "Service 2"],
  "products": ["Product 1", "Product 2"],
  "technologies": ["Tech 1", "Tech 2"],
  "audiences": ["Audience 1", "Audience 2"],
  "topics": ["Topic 1", "Topic 2"]
}

Keep names concise (under 40 characters).`, domain, page.Title, page.Description, truncate(page.Text, 2000))

	raw, err := g.llm.ExtractJSON(ctx, entitySystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	var entities entitySet
	if err := json.Unmarshal(raw, &entities); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}

	entities.Services = clean(entities.Services)
	entities.Products = clean(entities.Products)
	entities.Technologies = clean(entities.Technologies)
	entities.Audiences = clean(entities.Audiences)
	entities.Topics = clean(entities.Topics)
	return &entities, nil
}

// DomainOf extracts the bare domain for cluster labels.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func clean(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		item = truncate(item, maxEntityChars)
		out = append(out, item)
		if len(out) == maxPerCategory {
			break
		}
	}
	return out
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// truncate caps s at n runes so multi-byte characters are never split.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
