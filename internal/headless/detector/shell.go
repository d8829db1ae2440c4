// Package detector decides when a plain fetch of the audited page is a
// client-rendered shell that has to be rendered before it is scored.
package detector

import (
	"bytes"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/seo-audit/internal/onpage"
	"github.com/JakeFAU/seo-audit/internal/seo"
)

// DefaultMinWords is the visible word count below which a scripted page
// without an H1 is treated as unrendered.
const DefaultMinWords = 50

// mountPoints are the root elements client-side frameworks render into.
const mountPoints = "#root, #app, #__next, #__nuxt, [data-reactroot], [ng-version], app-root"

// Shell flags pages whose checklist inputs only appear once scripts run.
type Shell struct {
	MinWords int
}

// NewShell creates a detector. minWords <= 0 selects DefaultMinWords.
func NewShell(minWords int) *Shell {
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	return &Shell{MinWords: minWords}
}

// ShouldPromote reports whether resp needs a browser render. Only successful
// plain fetches qualify.
func (s *Shell) ShouldPromote(resp seo.FetchResponse) bool {
	if resp.UsedHeadless || resp.StatusCode != http.StatusOK {
		return false
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return false
	}
	if hasEmptyMount(doc) {
		return true
	}
	if doc.Find("script").Length() == 0 {
		return false
	}
	return doc.Find("h1").Length() == 0 && onpage.VisibleWords(doc.Selection) < s.MinWords
}

// hasEmptyMount reports a framework root with nothing rendered into it.
// Server-rendered apps fill theirs and are scored as served.
func hasEmptyMount(doc *goquery.Document) bool {
	empty := false
	doc.Find(mountPoints).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		empty = onpage.VisibleWords(sel) == 0
		return !empty
	})
	return empty
}
