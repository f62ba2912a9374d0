package trico

import (
	"context"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"trico-scraper/internal/concurrency"
)

// DefaultPageSize is how many rows the search endpoint returns per page.
const DefaultPageSize = 50

const resultTableSelector = `table[width="100%"][border="2"]`

// PageOffsets lists the run_tot offsets needed to cover total hits:
// 0, pageSize, 2*pageSize, ... while offset < total. Zero hits need no pages.
func PageOffsets(total, pageSize int) []int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	var offsets []int
	for off := 0; off < total; off += pageSize {
		offsets = append(offsets, off)
	}
	return offsets
}

// FetchAllLinks requests every result page in parallel and returns the detail links
// in page order, then row order. Under fail-fast one bad page fails the call; under
// collect-partial the links of good pages are returned along with one Failure per bad page.
func (s *Scraper) FetchAllLinks(ctx context.Context, params QueryParameters, total, pageSize int) ([]string, []Failure, error) {
	offsets := PageOffsets(total, pageSize)
	zerolog.Ctx(ctx).Debug().Int("total", total).Int("pages", len(offsets)).Msg("fetching result pages")

	pages := make([]QueryParameters, len(offsets))
	for i, off := range offsets {
		pages[i] = params.With("run_tot", strconv.Itoa(off))
	}

	perPage, itemErrs, err := concurrency.Map(ctx, s.pool, pages, func(ctx context.Context, _ int, page QueryParameters) ([]string, error) {
		return s.fetchPageLinks(ctx, page)
	})
	if err != nil {
		return nil, nil, unwrapItem(err)
	}

	var links []string
	for _, l := range perPage {
		links = append(links, l...)
	}

	failures := make([]Failure, 0, len(itemErrs))
	for _, ie := range itemErrs {
		failures = append(failures, Failure{URL: pages[ie.Index].URL(s.endpoints.SearchURL), Err: ie.Err})
	}
	return links, failures, nil
}

func (s *Scraper) fetchPageLinks(ctx context.Context, page QueryParameters) ([]string, error) {
	doc, err := s.fetchDocument(ctx, s.endpoints.SearchURL, page)
	if err != nil {
		return nil, err
	}
	return ParseLinks(doc, page.URL(s.endpoints.SearchURL), s.endpoints.LinkPrefix)
}

// ParseLinks returns prefix+href for every anchor in the result table.
func ParseLinks(doc *goquery.Document, pageURL, prefix string) ([]string, error) {
	table := doc.Find(resultTableSelector).First()
	if table.Length() == 0 {
		return nil, &PageShapeError{URL: pageURL, Want: resultTableSelector}
	}

	anchors := table.Find("a")
	links := make([]string, 0, anchors.Length())
	var shapeErr error
	anchors.EachWithBreak(func(i int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok {
			shapeErr = &PageShapeError{URL: pageURL, Want: "href on result anchor " + strconv.Itoa(i)}
			return false
		}
		links = append(links, prefix+href)
		return true
	})
	if shapeErr != nil {
		return nil, shapeErr
	}
	return links, nil
}
