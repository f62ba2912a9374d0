package trico

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// noResults matches the notices the search page shows instead of a hit count.
var noResults = regexp.MustCompile(`(?i)\b(no|zero|0)\s+(courses?|classes|sections|matches|results|records|hits)\b|\bnothing\s+(found|matched)\b`)

// ProbeCount runs the search once and returns the total number of hits.
func (s *Scraper) ProbeCount(ctx context.Context, params QueryParameters) (int, error) {
	doc, err := s.fetchDocument(ctx, s.endpoints.SearchURL, params)
	if err != nil {
		return 0, err
	}

	n, err := ParseCount(doc, params.URL(s.endpoints.SearchURL))
	if err != nil {
		return 0, err
	}

	zerolog.Ctx(ctx).Debug().Int("count", n).Msg("probed result count")
	return n, nil
}

// ParseCount reads the hit count from a result page. The count is the last word of
// the first <b> inside the first <font>, e.g. "Courses found: 130".
//
// A page without that element is read as zero hits when it carries a
// "no courses found"-style notice, and as a layout change otherwise.
func ParseCount(doc *goquery.Document, pageURL string) (int, error) {
	bold := doc.Find("font").First().Find("b").First()
	if bold.Length() == 0 {
		if noResults.MatchString(doc.Text()) {
			return 0, nil
		}
		return 0, &PageShapeError{URL: pageURL, Want: "<b> inside the first <font>"}
	}

	text := strings.TrimSpace(bold.Text())
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, &ParseError{URL: pageURL, Text: text, Err: fmt.Errorf("empty count")}
	}

	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		if noResults.MatchString(text) {
			return 0, nil
		}
		return 0, &ParseError{URL: pageURL, Text: text, Err: err}
	}
	if n < 0 {
		return 0, &ParseError{URL: pageURL, Text: text, Err: fmt.Errorf("negative count")}
	}
	return n, nil
}
