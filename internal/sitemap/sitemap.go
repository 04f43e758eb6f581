// Package sitemap discovers a site's sitemap by probing the common
// locations and returns the page URLs it lists.
package sitemap

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"web-analysis-platform/internal/models"
)

// ErrNotFound is returned when none of the probed locations serves a sitemap.
var ErrNotFound = errors.New("no sitemap found")

// Locations probed in order, relative to the site root.
var probePaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap1.xml",
	"/sitemap-index.xml",
	"/post-sitemap.xml",
	"/page-sitemap.xml",
}

const maxBodyBytes = 10 << 20

// Discoverer fetches and parses sitemaps.
type Discoverer struct {
	httpClient *http.Client
	userAgent  string
	maxURLs    int
}

// New builds a discoverer with the given fetch timeout and URL cap.
func New(timeout time.Duration, userAgent string, maxURLs int) *Discoverer {
	return &Discoverer{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		maxURLs:    maxURLs,
	}
}

// Result is the outcome of a discovery run.
type Result struct {
	SitemapURL string   `json:"sitemap_url"`
	URLs       []string `json:"urls"`
	Total      int      `json:"total"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// Discover probes the common sitemap locations for siteURL and returns the
// listed page URLs. Index sitemaps are followed one level deep.
func (d *Discoverer) Discover(ctx context.Context, siteURL string) (*Result, error) {
	base, err := url.Parse(siteURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid site url %q", models.ErrInvalidInput, siteURL)
	}
	root := base.Scheme + "://" + base.Host

	for _, path := range probePaths {
		candidate := root + path
		body, err := d.fetch(ctx, candidate)
		if err != nil {
			continue
		}
		urls, err := d.parse(ctx, body)
		if err != nil || len(urls) == 0 {
			continue
		}
		return &Result{SitemapURL: candidate, URLs: urls, Total: len(urls)}, nil
	}
	return nil, fmt.Errorf("%w for %s", ErrNotFound, root)
}

func (d *Discoverer) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

// parse accepts either a urlset or a sitemapindex document. For an index it
// fetches the child sitemaps until the URL cap is reached.
func (d *Discoverer) parse(ctx context.Context, body []byte) ([]string, error) {
	var set urlSet
	if err := xml.Unmarshal(body, &set); err == nil && len(set.URLs) > 0 {
		return d.collect(set), nil
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var urls []string
	for _, child := range index.Sitemaps {
		loc := strings.TrimSpace(child.Loc)
		if loc == "" {
			continue
		}
		childBody, err := d.fetch(ctx, loc)
		if err != nil {
			continue
		}
		var childSet urlSet
		if err := xml.Unmarshal(childBody, &childSet); err != nil {
			continue
		}
		for _, u := range d.collect(childSet) {
			if seen[u] {
				continue
			}
			seen[u] = true
			urls = append(urls, u)
			if len(urls) == d.maxURLs {
				return urls, nil
			}
		}
	}
	return urls, nil
}

func (d *Discoverer) collect(set urlSet) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, entry := range set.URLs {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" || seen[loc] {
			continue
		}
		seen[loc] = true
		urls = append(urls, loc)
		if len(urls) == d.maxURLs {
			break
		}
	}
	return urls
}
