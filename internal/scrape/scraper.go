package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"web-analysis-platform/internal/models"
	"web-analysis-platform/internal/telemetry"
)

const (
	maxBodyBytes = 5 << 20
	maxTextChars = 10000
	maxLinks     = 50
	maxImages    = 20
	maxHeadings  = 15
)

// Scraper fetches input URLs and extracts the page record the analysis
// stages consume.
type Scraper struct {
	httpClient *http.Client
	userAgent  string
	converter  *md.Converter
}

// New constructs a scraper with a bounded per-request timeout.
func New(timeout time.Duration, userAgent string) *Scraper {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Scraper{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		converter:  md.NewConverter("", true, nil),
	}
}

// ScrapeAll fetches each URL in order. A URL that fails keeps its slot with
// an error record so the job can proceed on the remainder.
func (s *Scraper) ScrapeAll(ctx context.Context, urls []string) []models.Page {
	pages := make([]models.Page, 0, len(urls))
	for _, u := range urls {
		page, err := s.Scrape(ctx, u)
		if err != nil {
			telemetry.ScrapeFailures.Inc()
			pages = append(pages, models.Page{URL: u, Status: models.PageError, Error: err.Error()})
			continue
		}
		pages = append(pages, page)
	}
	return pages
}

// Scrape fetches one URL and extracts title, metadata, headings, text,
// links, images, and a markdown rendering.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (models.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return models.Page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return models.Page{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Page{}, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.Page{}, fmt.Errorf("read body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return models.Page{}, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	base, err := url.Parse(pageURL)
	if err != nil {
		return models.Page{}, fmt.Errorf("parse url: %w", err)
	}

	page := models.Page{
		URL:         pageURL,
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", "")),
		Headings: models.Headings{
			H1: headingTexts(doc, "h1"),
			H2: headingTexts(doc, "h2"),
			H3: headingTexts(doc, "h3"),
		},
		Status: models.PageOK,
	}

	// Prefer the semantic content element, falling back to the whole body.
	content := doc.Find("main").First()
	if content.Length() == 0 {
		content = doc.Find("article").First()
	}
	if content.Length() == 0 {
		content = doc.Find("body").First()
	}
	page.Text = truncate(collapseWhitespace(content.Text()), maxTextChars)

	if markdown, err := s.converter.ConvertString(string(body)); err == nil {
		page.Markdown = truncate(markdown, maxTextChars)
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href := sel.AttrOr("href", "")
		abs := resolveURL(base, href)
		if abs == "" {
			return true
		}
		page.Links = append(page.Links, models.Link{URL: abs, Text: strings.TrimSpace(sel.Text())})
		return len(page.Links) < maxLinks
	})

	doc.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src := resolveURL(base, sel.AttrOr("src", ""))
		if src == "" {
			return true
		}
		page.Images = append(page.Images, models.Image{Src: src, Alt: strings.TrimSpace(sel.AttrOr("alt", ""))})
		return len(page.Images) < maxImages
	})

	return page, nil
}

func headingTexts(doc *goquery.Document, tag string) []string {
	var out []string
	doc.Find(tag).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			out = append(out, text)
		}
		return len(out) < maxHeadings
	})
	return out
}

func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
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
