package seo

import (
	"context"
	"net/http"
	"time"
)

// FetchRequest asks a Fetcher for one page.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the raw page as served or rendered.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Fetcher retrieves the audited page.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (FetchResponse, error)
}

// HeadlessDetector decides whether a plain fetch needs a browser render.
type HeadlessDetector interface {
	ShouldPromote(resp FetchResponse) bool
}

// Hasher digests page content.
type Hasher interface {
	Hash(data []byte) (string, error)
}
