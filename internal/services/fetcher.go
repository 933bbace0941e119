package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/querysprout/fanout-analyzer/internal/models"
)

const (
	// defaultUserAgent mirrors a desktop browser; some sites block the
	// default Go client UA outright.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// maxFetchBytes caps how much of a page body is read.
	maxFetchBytes = 5 << 20 // 5 MB

	// minContentLength rejects pages with no usable text.
	minContentLength = 100

	// maxContentWords truncates extracted text before it reaches prompts.
	maxContentWords = 10000
)

// ContentFetcher retrieves a URL and extracts its visible text, title,
// meta description and heading structure. Best effort: no JavaScript
// execution, no pagination. Every failure is an ErrFetch.
type ContentFetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewContentFetcher constructor creates a fetcher with a bounded timeout.
func NewContentFetcher(timeout time.Duration) *ContentFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: defaultUserAgent,
	}
}

// Fetch downloads and extracts one page.
func (cf *ContentFetcher) Fetch(ctx context.Context, pageURL string) (*models.PageContent, error) {
	parsed, err := url.ParseRequestURI(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("%w: invalid URL %q", models.ErrFetch, pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFetch, err)
	}
	req.Header.Set("User-Agent", cf.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := cf.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d for %s", models.ErrFetch, resp.StatusCode, pageURL)
	}
	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "html") {
		return nil, fmt.Errorf("%w: non-HTML content type %q", models.ErrFetch, ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", models.ErrFetch, err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: extracting content: %v", models.ErrFetch, err)
	}

	text := collapseWhitespace(article.TextContent)
	if len(text) < minContentLength {
		return nil, fmt.Errorf("%w: page has too little readable text", models.ErrFetch)
	}
	if fields := strings.Fields(text); len(fields) > maxContentWords {
		text = strings.Join(fields[:maxContentWords], " ")
	}

	title, meta, headings := parsePageMetadata(body)
	if title == "" {
		title = article.Title
	}

	return &models.PageContent{
		URL:             pageURL,
		Title:           title,
		MetaDescription: meta,
		Headings:        headings,
		Text:            text,
		WordCount:       len(strings.Fields(text)),
		FetchedAt:       time.Now(),
	}, nil
}

// parsePageMetadata walks the raw HTML for the title, meta description
// and h1-h6 headings. Readability drops these while extracting the body.
func parsePageMetadata(body []byte) (title, meta string, headings []models.Heading) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", "", nil
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" {
					title = strings.TrimSpace(nodeText(n))
				}
			case "meta":
				if attrValue(n, "name") == "description" && meta == "" {
					meta = strings.TrimSpace(attrValue(n, "content"))
				}
			case "h1", "h2", "h3", "h4", "h5", "h6":
				if text := strings.TrimSpace(nodeText(n)); text != "" {
					headings = append(headings, models.Heading{Level: n.Data, Text: text})
				}
			case "script", "style":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title, meta, headings
}

// nodeText concatenates all text nodes under n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// attrValue returns the value of the named attribute, or "".
func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// collapseWhitespace squeezes runs of whitespace into single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
