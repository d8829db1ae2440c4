package onpage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const cleanPage = `<!doctype html>
<html>
<head>
  <title>Handmade leather boots</title>
  <meta name="description" content="  Boots made by hand.  ">
  <link rel="canonical" href="https://example.com/boots">
  <script type="application/ld+json">{"@type":"Product"}</script>
  <style>body { color: red }</style>
</head>
<body>
  <h1>Leather boots</h1>
  <!-- hidden note -->
  <p>Made in <b>Spain</b> since 1950.</p>
  <img src="a.jpg" alt="A boot">
  <script>var tracking = "do not count";</script>
</body>
</html>`

func TestEvaluateCleanPage(t *testing.T) {
	t.Parallel()

	got, err := Evaluate([]byte(cleanPage))
	require.NoError(t, err)
	require.Equal(t, 100, got.Score)
	require.Equal(t, []string{IssueNone}, got.Issues)
	require.Equal(t, "Handmade leather boots", got.Title)
	require.Equal(t, "Boots made by hand.", got.MetaDescription)
	require.Equal(t, "https://example.com/boots", got.Canonical)
	require.True(t, got.HasSchemaMarkup)
	require.Equal(t, "Handmade leather boots Leather boots Made in Spain since 1950.", got.Text)
	require.Equal(t, 10, got.WordCount)
	require.NotContains(t, got.Text, "tracking")
	require.NotContains(t, got.Text, "hidden")
}

func TestEvaluatePenalties(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		html   string
		score  int
		issues []string
	}{
		{
			name:   "empty document",
			html:   `<html><body></body></html>`,
			score:  50,
			issues: []string{IssueNoDescription, IssueTitle, IssueNoH1},
		},
		{
			name:   "short title and multiple h1",
			html:   `<title>Boots</title><meta name="description" content="x"><h1>a</h1><h1>b</h1>`,
			score:  75,
			issues: []string{IssueTitle, IssueMultipleH1},
		},
		{
			name:   "images without alt",
			html:   `<title>A long enough title</title><meta name="description"><h1>a</h1><img src="1"><img src="2" alt="  "><img src="3" alt="ok">`,
			score:  90,
			issues: []string{IssueImagesNoAlt},
		},
		{
			name:   "everything wrong",
			html:   `<img src="1">`,
			score:  40,
			issues: []string{IssueNoDescription, IssueTitle, IssueNoH1, IssueImagesNoAlt},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Evaluate([]byte(tc.html))
			require.NoError(t, err)
			require.Equal(t, tc.score, got.Score)
			require.Equal(t, tc.issues, got.Issues)
		})
	}
}

func TestEvaluateDefaults(t *testing.T) {
	t.Parallel()

	got, err := Evaluate([]byte(`<p>just text</p>`))
	require.NoError(t, err)
	require.Equal(t, notAvailable, got.Title)
	require.Equal(t, notAvailable, got.MetaDescription)
	require.Equal(t, notAvailable, got.Canonical)
	require.False(t, got.HasSchemaMarkup)
	require.Equal(t, 2, got.WordCount)
}

func TestEvaluateTitleLengthCountsCharacters(t *testing.T) {
	t.Parallel()

	// Nine runes but more than ten bytes.
	got, err := Evaluate([]byte(`<title>Zapato ñú</title>`))
	require.NoError(t, err)
	require.Contains(t, got.Issues, IssueTitle)

	got, err = Evaluate([]byte(`<title>` + strings.Repeat("ñ", 10) + `</title>`))
	require.NoError(t, err)
	require.NotContains(t, got.Issues, IssueTitle)
}
