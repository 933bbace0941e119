package views

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querysprout/fanout-analyzer/internal/models"
	"github.com/querysprout/fanout-analyzer/templates"
)

func TestParseFSRendersPages(t *testing.T) {
	TemplateFS = templates.FS

	for _, page := range []string{"pages/home.gohtml", "pages/analyze.gohtml"} {
		tmpl, err := ParseFS(page)
		require.NoError(t, err, page)

		var buf bytes.Buffer
		err = tmpl.Execute(&buf, &TemplateData{Title: "Test"})
		require.NoError(t, err, page)
		assert.Contains(t, buf.String(), "QuerySprout")
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "this is...", truncate("this is a long string", 10))
}

func TestTimeAgo(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "just now", timeAgo(now.Add(-10*time.Second)))
	assert.Equal(t, "1 minute ago", timeAgo(now.Add(-70*time.Second)))
	assert.Equal(t, "2 hours ago", timeAgo(now.Add(-2*time.Hour)))
}

func TestNl2brEscapes(t *testing.T) {
	got := string(nl2br("a<b\nc"))
	assert.Equal(t, "a&lt;b<br>c", got)
}

func TestDomainLabels(t *testing.T) {
	assert.Equal(t, "New Content", modeLabel(models.ModeNewContent))
	assert.Equal(t, "Optimize Existing", modeLabel(models.ModeOptimizeExisting))
	assert.Equal(t, models.VariantFollowUp.Label(), variantLabel(models.VariantFollowUp))
}
