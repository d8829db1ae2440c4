package audit

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultMaxKeywords caps keywords per audit.
const DefaultMaxKeywords = 3

// ValidationError reports an unusable audit request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Request is a validated audit request.
type Request struct {
	URL      string
	Keywords []string
}

// ParseRequest validates the raw query parameters. Keywords are split on
// commas and trimmed; blanks are dropped and repeats kept. Between 1 and
// maxKeywords must remain.
func ParseRequest(rawURL, rawKeywords string, maxKeywords int) (Request, error) {
	if maxKeywords <= 0 {
		maxKeywords = DefaultMaxKeywords
	}
	target := strings.TrimSpace(rawURL)
	if target == "" {
		return Request{}, &ValidationError{Field: "url", Message: "parameter is required"}
	}
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Request{}, &ValidationError{Field: "url", Message: "must be an absolute http or https URL"}
	}

	keywords := SplitKeywords(rawKeywords)
	if len(keywords) == 0 {
		return Request{}, &ValidationError{Field: "keywords", Message: "parameter is required"}
	}
	if len(keywords) > maxKeywords {
		return Request{}, &ValidationError{
			Field:   "keywords",
			Message: fmt.Sprintf("provide between 1 and %d keywords", maxKeywords),
		}
	}
	return Request{URL: target, Keywords: keywords}, nil
}

// SplitKeywords splits a comma separated list, dropping blank entries.
func SplitKeywords(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if kw := strings.TrimSpace(part); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
