package trico

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// SiteMetadata is the filter vocabulary offered by the search form when it was fetched.
type SiteMetadata struct {
	Semesters   []string `json:"semesters"`
	Campuses    []string `json:"campuses"`
	Departments []string `json:"departments"`
	MeetDays    []string `json:"meetdays"`
	MeetTimes   []string `json:"meettimes"`
}

// FetchSiteMetadata reads the current filter values off the search form.
// One GET, no retries beyond what the scraper's retry config allows.
func (s *Scraper) FetchSiteMetadata(ctx context.Context) (SiteMetadata, error) {
	doc, err := s.fetchDocument(ctx, s.endpoints.InfoURL, nil)
	if err != nil {
		return SiteMetadata{}, err
	}

	md, err := ParseSiteMetadata(doc, s.endpoints.InfoURL)
	if err != nil {
		return SiteMetadata{}, err
	}

	zerolog.Ctx(ctx).Debug().
		Int("semesters", len(md.Semesters)).
		Int("campuses", len(md.Campuses)).
		Int("departments", len(md.Departments)).
		Int("meetdays", len(md.MeetDays)).
		Int("meettimes", len(md.MeetTimes)).
		Msg("fetched site metadata")
	return md, nil
}

// ParseSiteMetadata extracts the form vocabulary from the landing page.
// pageURL is only used in error messages.
func ParseSiteMetadata(doc *goquery.Document, pageURL string) (SiteMetadata, error) {
	var (
		md  SiteMetadata
		err error
	)
	if md.Semesters, err = inputValues(doc, pageURL, "smstr"); err != nil {
		return SiteMetadata{}, err
	}
	if md.Campuses, err = inputValues(doc, pageURL, "campus"); err != nil {
		return SiteMetadata{}, err
	}
	if md.Departments, err = optionValues(doc, pageURL, "dept"); err != nil {
		return SiteMetadata{}, err
	}
	if md.MeetDays, err = optionValues(doc, pageURL, "meetday"); err != nil {
		return SiteMetadata{}, err
	}
	if md.MeetTimes, err = optionValues(doc, pageURL, "meettime"); err != nil {
		return SiteMetadata{}, err
	}
	return md, nil
}

// inputValues collects the value attribute of every <input name=...> (checkbox groups).
func inputValues(doc *goquery.Document, pageURL, name string) ([]string, error) {
	selector := `input[name="` + name + `"]`
	inputs := doc.Find(selector)
	if inputs.Length() == 0 {
		return nil, &PageShapeError{URL: pageURL, Want: selector}
	}

	values := make([]string, 0, inputs.Length())
	var shapeErr error
	inputs.EachWithBreak(func(i int, sel *goquery.Selection) bool {
		v, ok := sel.Attr("value")
		if !ok {
			shapeErr = &PageShapeError{URL: pageURL, Want: selector + " with a value attribute"}
			return false
		}
		values = append(values, v)
		return true
	})
	if shapeErr != nil {
		return nil, shapeErr
	}
	return values, nil
}

// optionValues collects the options of the first <select name=...>. An option
// without a value attribute submits its text, so that is used instead. A select
// with no options is a shape error, not an empty vocabulary.
func optionValues(doc *goquery.Document, pageURL, name string) ([]string, error) {
	selector := `select[name="` + name + `"]`
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, &PageShapeError{URL: pageURL, Want: selector}
	}

	options := sel.Find("option")
	if options.Length() == 0 {
		return nil, &PageShapeError{URL: pageURL, Want: selector + " with options"}
	}
	values := make([]string, 0, options.Length())
	options.Each(func(_ int, opt *goquery.Selection) {
		values = append(values, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
	})
	return values, nil
}
