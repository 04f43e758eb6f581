package analysis

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web-analysis-platform/internal/models"
)

// fakeLLM returns canned JSON per call, capturing the prompts it saw.
type fakeLLM struct {
	responses []string
	calls     int
	prompts   []string
	err       error
}

func (f *fakeLLM) ExtractJSON(_ context.Context, _, prompt string) (json.RawMessage, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	resp := f.responses[f.calls%len(f.responses)]
	f.calls++
	return json.RawMessage(resp), nil
}

func okPage(url, title string) models.Page {
	return models.Page{
		URL:    url,
		Title:  title,
		Text:   "Some content about " + title,
		Status: models.PageOK,
	}
}

func TestGraphGeneratorBuildsClusters(t *testing.T) {
	fake := &fakeLLM{responses: []string{`{
		"services": ["Consulting", "Support"],
		"products": ["Widget Pro"],
		"technologies": ["Go", "PostgreSQL"],
		"audiences": ["Startups"],
		"topics": ["Automation"]
	}`}}
	gen := NewGraphGenerator(fake)

	pages := []models.Page{
		okPage("https://www.acme.example/", "Acme"),
		{URL: "https://down.example/", Status: models.PageError, Error: "HTTP 500"},
	}
	graph, err := gen.Generate(context.Background(), pages)
	require.NoError(t, err)

	// One LLM call per successful page; error pages are skipped.
	assert.Equal(t, 1, fake.calls)

	var domains, entities int
	for _, node := range graph.Nodes {
		switch node.Type {
		case "domain":
			domains++
			assert.Equal(t, "acme.example", node.Label)
			assert.Equal(t, 80, node.Size)
		default:
			entities++
			assert.Equal(t, 35, node.Size)
		}
	}
	assert.Equal(t, 1, domains)
	assert.Equal(t, 7, entities)

	var offers, powers, hub int
	for _, link := range graph.Links {
		switch link.Label {
		case "offers":
			offers++
		case "powers":
			powers++
		default:
			hub++
		}
	}
	assert.Equal(t, 7, hub, "every entity links to its domain hub")
	assert.Equal(t, 2, offers, "2 services x 1 product")
	assert.Equal(t, 4, powers, "2 technologies x 2 services")
}

func TestGraphGeneratorTruncatesEntities(t *testing.T) {
	long := strings.Repeat("x", 80)
	fake := &fakeLLM{responses: []string{`{"services": ["` + long + `"], "products": [], "technologies": [], "audiences": [], "topics": [""]}`}}
	gen := NewGraphGenerator(fake)

	graph, err := gen.Generate(context.Background(), []models.Page{okPage("https://a.example", "A")})
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 2) // domain + one service, empty topic dropped
	assert.Len(t, graph.Nodes[1].Label, 40)
}

func TestGraphGeneratorTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("日", 50)
	fake := &fakeLLM{responses: []string{`{"services": ["` + long + `"], "products": [], "technologies": [], "audiences": [], "topics": []}`}}
	gen := NewGraphGenerator(fake)

	graph, err := gen.Generate(context.Background(), []models.Page{okPage("https://a.example", "A")})
	require.NoError(t, err)
	require.Len(t, graph.Nodes, 2)

	label := graph.Nodes[1].Label
	assert.True(t, utf8.ValidString(label), "truncation must not split a rune")
	assert.Equal(t, 40, utf8.RuneCountInString(label))
}

func TestTopicalMapGenerator(t *testing.T) {
	fake := &fakeLLM{responses: []string{`{
		"business_description": "Acme sells widgets.",
		"central_entity": "Acme",
		"business_model": "E-commerce",
		"search_intent": ["Transactional"],
		"target_audiences": ["Makers"],
		"conversion_methods": ["Checkout"],
		"key_topics": ["Widgets"],
		"content_strategy": {"core_topics": ["Widgets"]}
	}`}}
	gen := NewTopicalMapGenerator(fake)

	pages := []models.Page{
		okPage("https://a.example", "A"),
		{URL: "https://down.example", Status: models.PageError},
		okPage("https://b.example", "B"),
	}
	maps, err := gen.GenerateAll(context.Background(), pages)
	require.NoError(t, err)
	require.Len(t, maps, 2, "one map per successful page")

	assert.Equal(t, "https://a.example", maps[0].URL)
	assert.Equal(t, "https://b.example", maps[1].URL)
	assert.Equal(t, "E-commerce", maps[0].BusinessModel)
	require.NotNil(t, maps[0].ContentStrategy)
	assert.Equal(t, []string{"Widgets"}, maps[0].ContentStrategy.CoreTopics)
}

func TestComparatorRequiresTwoSites(t *testing.T) {
	cmp := NewComparator(&fakeLLM{responses: []string{`{}`}})

	_, err := cmp.Compare(context.Background(), []models.Page{okPage("https://a.example", "A")}, nil)
	require.ErrorIs(t, err, ErrNotEnoughSites)

	// A failed page does not count toward the minimum.
	_, err = cmp.Compare(context.Background(), []models.Page{
		okPage("https://a.example", "A"),
		{URL: "https://b.example", Status: models.PageError},
	}, nil)
	require.ErrorIs(t, err, ErrNotEnoughSites)
}

func TestComparatorBuildsArtifact(t *testing.T) {
	fake := &fakeLLM{responses: []string{`{
		"business_models": {"https://a.example": "SaaS", "https://b.example": "E-commerce"},
		"service_overlap": ["Support"],
		"unique_services": {"https://a.example": ["API"]},
		"audience_comparison": {"https://a.example": ["Devs"]},
		"technology_stack": {"https://a.example": ["Go"]},
		"geographic_coverage": {"https://a.example": ["Global"]},
		"similarity_matrix": {
			"https://a.example": {"https://a.example": 1.0, "https://b.example": 0.4},
			"https://b.example": {"https://a.example": 0.4, "https://b.example": 1.0}
		}
	}`}}
	cmp := NewComparator(fake)

	pages := []models.Page{okPage("https://a.example", "A"), okPage("https://b.example", "B")}
	maps := []models.TopicalMap{
		{URL: "https://a.example", BusinessModel: "SaaS", KeyTopics: []string{"APIs"}},
		{URL: "https://b.example", BusinessModel: "E-commerce", KeyTopics: []string{"Widgets"}},
	}
	got, err := cmp.Compare(context.Background(), pages, maps)
	require.NoError(t, err)

	assert.Equal(t, "SaaS", got.BusinessModels["https://a.example"])
	assert.InDelta(t, 0.4, got.SimilarityMatrix["https://a.example"]["https://b.example"], 0.001)

	// The prompt carries the topical-map context for each site.
	require.Len(t, fake.prompts, 1)
	assert.Contains(t, fake.prompts[0], "APIs")
	assert.Contains(t, fake.prompts[0], "Widgets")
}
