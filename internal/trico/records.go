package trico

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"trico-scraper/internal/concurrency"
	"trico-scraper/internal/domain"
)

// FetchRecord downloads one detail page and reads its field table.
func (s *Scraper) FetchRecord(ctx context.Context, link string) (domain.CourseRecord, error) {
	doc, err := s.fetchDocument(ctx, link, nil)
	if err != nil {
		return domain.CourseRecord{}, err
	}
	return ParseRecord(doc, link)
}

// FetchAllRecords fetches every link in parallel and returns the records in link order.
func (s *Scraper) FetchAllRecords(ctx context.Context, links []string) ([]domain.CourseRecord, []Failure, error) {
	records, itemErrs, err := concurrency.Map(ctx, s.pool, links, func(ctx context.Context, _ int, link string) (domain.CourseRecord, error) {
		return s.FetchRecord(ctx, link)
	})
	if err != nil {
		return nil, nil, unwrapItem(err)
	}

	failures := make([]Failure, 0, len(itemErrs))
	for _, ie := range itemErrs {
		failures = append(failures, Failure{URL: links[ie.Index], Err: ie.Err})
	}
	zerolog.Ctx(ctx).Debug().Int("records", len(records)).Int("failed", len(failures)).Msg("fetched detail pages")
	return records, failures, nil
}

// ParseRecord reads the first table of a detail page. Every row must hold exactly
// two cells, label then value. <br> inside a row becomes "\n" so multi-line values
// keep their line structure; labels and values are trimmed.
func ParseRecord(doc *goquery.Document, pageURL string) (domain.CourseRecord, error) {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return domain.CourseRecord{}, &PageShapeError{URL: pageURL, Want: "<table>"}
	}

	record := domain.NewCourseRecord()
	var shapeErr error
	table.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		replaceLineBreaks(row)

		cells := row.Find("td")
		if cells.Length() != 2 {
			shapeErr = &PageShapeError{
				URL:  pageURL,
				Want: fmt.Sprintf("2 cells in row %d, found %d", i, cells.Length()),
			}
			return false
		}
		key := strings.TrimSpace(cells.Eq(0).Text())
		value := strings.TrimSpace(cells.Eq(1).Text())
		record.Set(key, value)
		return true
	})
	if shapeErr != nil {
		return domain.CourseRecord{}, shapeErr
	}
	return record, nil
}

// replaceLineBreaks swaps every <br> under sel for a "\n" text node.
func replaceLineBreaks(sel *goquery.Selection) {
	for _, br := range sel.Find("br").Nodes {
		parent := br.Parent
		if parent == nil {
			continue
		}
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: "\n"}, br)
		parent.RemoveChild(br)
	}
}
