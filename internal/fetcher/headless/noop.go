package headless

import (
	"context"
	"errors"

	"github.com/JakeFAU/seo-audit/internal/seo"
)

// ErrDisabled is returned by Noop.
var ErrDisabled = errors.New("headless rendering disabled")

// Noop stands in for the browser when headless rendering is turned off.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch always fails with ErrDisabled.
func (Noop) Fetch(_ context.Context, _ seo.FetchRequest) (seo.FetchResponse, error) {
	return seo.FetchResponse{}, ErrDisabled
}
