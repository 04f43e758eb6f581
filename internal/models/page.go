package models

// Page statuses recorded by the scraper.
const (
	PageOK    = "success"
	PageError = "error"
)

// Page is the scraped record for one input URL. A URL that failed to fetch
// keeps its slot with Status == PageError so downstream stages can skip it.
type Page struct {
	URL         string   `json:"url"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Headings    Headings `json:"headings,omitempty"`
	Text        string   `json:"text_content,omitempty"`
	Markdown    string   `json:"markdown,omitempty"`
	Links       []Link   `json:"links,omitempty"`
	Images      []Image  `json:"images,omitempty"`
	Status      string   `json:"status"`
	Error       string   `json:"error,omitempty"`
}

// Headings groups the page's h1/h2/h3 text content.
type Headings struct {
	H1 []string `json:"h1,omitempty"`
	H2 []string `json:"h2,omitempty"`
	H3 []string `json:"h3,omitempty"`
}

// Link is an anchor found on a scraped page, resolved to an absolute URL.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Image is an image reference found on a scraped page.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}
