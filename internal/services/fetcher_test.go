package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querysprout/fanout-analyzer/internal/models"
)

const testArticle = `<!DOCTYPE html>
<html>
<head>
<title>The Complete Pour Over Guide</title>
<meta name="description" content="Everything about pour over brewing.">
</head>
<body>
<article>
<h1>The Complete Pour Over Guide</h1>
<p>Pour over brewing rewards precision and patience. Start with freshly roasted
beans, a gooseneck kettle and a scale. Grind just before brewing and rinse the
paper filter with hot water to remove any papery taste before you begin.</p>
<h2>Choosing a grinder</h2>
<p>A burr grinder gives the even particle size that pour over demands. Blade
grinders produce fines that clog the filter bed and lead to bitter, muddy cups
no matter how careful the pour.</p>
<h2>Water temperature</h2>
<p>Aim for water between 91 and 96 degrees Celsius. Water straight off the boil
scorches light roasts while cooler water underextracts and tastes sour.</p>
</article>
</body>
</html>`

func TestFetchExtractsPage(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, testArticle)
	}))
	defer srv.Close()

	cf := NewContentFetcher(5 * time.Second)
	page, err := cf.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, srv.URL, page.URL)
	assert.Equal(t, "The Complete Pour Over Guide", page.Title)
	assert.Equal(t, "Everything about pour over brewing.", page.MetaDescription)
	assert.Contains(t, page.Text, "burr grinder")
	assert.Greater(t, page.WordCount, 50)
	assert.False(t, page.FetchedAt.IsZero())

	// Browser-like UA, some sites reject the Go default.
	assert.Contains(t, gotUA, "Mozilla")

	require.NotEmpty(t, page.Headings)
	assert.Equal(t, "h1", page.Headings[0].Level)
	assert.Equal(t, "The Complete Pour Over Guide", page.Headings[0].Text)

	var h2s []string
	for _, h := range page.Headings {
		if h.Level == "h2" {
			h2s = append(h2s, h.Text)
		}
	}
	assert.Equal(t, []string{"Choosing a grinder", "Water temperature"}, h2s)
}

func TestFetchRejectsBadInput(t *testing.T) {
	cf := NewContentFetcher(time.Second)

	for _, u := range []string{"", "not a url", "ftp://example.com/file", "javascript:alert(1)"} {
		_, err := cf.Fetch(context.Background(), u)
		assert.ErrorIs(t, err, models.ErrFetch, "url %q", u)
	}
}

func TestFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cf := NewContentFetcher(time.Second)
	_, err := cf.Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, models.ErrFetch)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	cf := NewContentFetcher(time.Second)
	_, err := cf.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, models.ErrFetch)
}

func TestFetchTooLittleText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><p>hi</p></body></html>")
	}))
	defer srv.Close()

	cf := NewContentFetcher(time.Second)
	_, err := cf.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, models.ErrFetch)
}

func TestFetchUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	cf := NewContentFetcher(time.Second)
	_, err := cf.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, models.ErrFetch)
}

func TestFetchTruncatesVeryLongPages(t *testing.T) {
	var body strings.Builder
	body.WriteString("<html><head><title>Long</title></head><body><article><p>")
	for i := 0; i < maxContentWords+500; i++ {
		fmt.Fprintf(&body, "w%d ", i)
	}
	body.WriteString("</p></article></body></html>")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body.String())
	}))
	defer srv.Close()

	cf := NewContentFetcher(10 * time.Second)
	page, err := cf.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, maxContentWords, page.WordCount)
}
