package onpage

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Checklist penalties, deducted from a perfect score of 100.
const (
	maxScore             = 100
	penaltyNoDescription = 15
	penaltyTitle         = 15
	penaltyNoH1          = 20
	penaltyMultipleH1    = 10
	penaltyImagesNoAlt   = 10
)

const (
	minTitleLength = 10
	notAvailable   = "N/A"
	schemaSelector = `script[type="application/ld+json"]`
)

// Checklist issues.
const (
	IssueNoDescription = "Missing meta description"
	IssueTitle         = "Title missing or too short"
	IssueNoH1          = "Missing H1 tag"
	IssueMultipleH1    = "Multiple H1 tags"
	IssueImagesNoAlt   = "Images missing ALT attribute"
	IssueNone          = "OK"
)

// Result is the on-page section of an audit report.
type Result struct {
	Score               int      `json:"score"`
	WordCount           int      `json:"word_count"`
	Issues              []string `json:"issues"`
	Title               string   `json:"current_title"`
	MetaDescription     string   `json:"current_meta_description"`
	Canonical           string   `json:"canonical_url"`
	HasSchemaMarkup     bool     `json:"has_schema_markup"`
	ResponseTimeSeconds float64  `json:"response_time_seconds"`
	ContentSHA256       string   `json:"content_sha256,omitempty"`
	Rendered            bool     `json:"rendered"`
	RenderTimeSeconds   float64  `json:"render_time_seconds,omitempty"`
	// FinalURL is where the page was served from after redirects.
	FinalURL string `json:"final_url,omitempty"`
	// Text is the visible page text, kept for suggestion prompts only.
	Text string `json:"-"`
}

// Evaluate parses body and runs the checklist.
func Evaluate(body []byte) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}
	return evaluateDocument(doc), nil
}

func evaluateDocument(doc *goquery.Document) Result {
	score := maxScore
	var issues []string

	description := doc.Find(`meta[name="description"]`).First()
	if description.Length() == 0 {
		issues = append(issues, IssueNoDescription)
		score -= penaltyNoDescription
	}

	titleTag := doc.Find("title").First()
	title := strings.TrimSpace(titleTag.Text())
	if titleTag.Length() == 0 || utf8.RuneCountInString(title) < minTitleLength {
		issues = append(issues, IssueTitle)
		score -= penaltyTitle
	}

	switch h1 := doc.Find("h1").Length(); {
	case h1 == 0:
		issues = append(issues, IssueNoH1)
		score -= penaltyNoH1
	case h1 > 1:
		issues = append(issues, IssueMultipleH1)
		score -= penaltyMultipleH1
	}

	missingAlt := doc.Find("img").FilterFunction(func(_ int, s *goquery.Selection) bool {
		alt, ok := s.Attr("alt")
		return !ok || strings.TrimSpace(alt) == ""
	})
	if missingAlt.Length() > 0 {
		issues = append(issues, IssueImagesNoAlt)
		score -= penaltyImagesNoAlt
	}

	if len(issues) == 0 {
		issues = []string{IssueNone}
	}

	text := visibleText(doc.Selection)
	out := Result{
		Score:           max(0, score),
		WordCount:       len(strings.Fields(text)),
		Issues:          issues,
		Title:           notAvailable,
		MetaDescription: notAvailable,
		Canonical:       notAvailable,
		HasSchemaMarkup: doc.Find(schemaSelector).Length() > 0,
		Text:            text,
	}
	if titleTag.Length() > 0 {
		out.Title = title
	}
	if description.Length() > 0 {
		content, _ := description.Attr("content")
		out.MetaDescription = strings.TrimSpace(content)
	}
	if canonical := doc.Find(`link[rel="canonical"]`).First(); canonical.Length() > 0 {
		if href, ok := canonical.Attr("href"); ok {
			out.Canonical = href
		}
	}
	return out
}

// VisibleWords counts the words a reader sees inside sel.
func VisibleWords(sel *goquery.Selection) int {
	return len(strings.Fields(visibleText(sel)))
}

// visibleText joins the document's trimmed text nodes with single spaces,
// skipping script, style and template contents.
func visibleText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, child *goquery.Selection) {
			switch goquery.NodeName(child) {
			case "#text":
				if t := strings.TrimSpace(child.Text()); t != "" {
					parts = append(parts, t)
				}
			case "#comment", "script", "style", "template":
			default:
				walk(child)
			}
		})
	}
	walk(sel)
	return strings.Join(parts, " ")
}
