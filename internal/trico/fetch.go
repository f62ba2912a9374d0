package trico

import (
	"bytes"
	"context"
	"errors"

	"github.com/PuerkitoBio/goquery"

	"trico-scraper/internal/httpx"
)

// fetchDocument GETs base with params appended and parses the body as HTML.
// Every failure before parsing is reported as a *FetchError.
func (s *Scraper) fetchDocument(ctx context.Context, base string, params QueryParameters) (*goquery.Document, error) {
	target := params.URL(base)

	body, err := httpx.Get(ctx, s.http, target, s.retry)
	if err != nil {
		fe := &FetchError{URL: target, Err: err}
		var se *httpx.StatusError
		if errors.As(err, &se) {
			fe.Status = se.StatusCode
		}
		return nil, fe
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URL: target, Err: err}
	}
	return doc, nil
}
