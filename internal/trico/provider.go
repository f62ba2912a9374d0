package trico

import (
	"context"
	"errors"

	"trico-scraper/internal/domain"
)

// Provider adapts a Scraper and a fixed set of filters into providers.CourseProvider.
type Provider struct {
	S       *Scraper
	Filters SearchFilters
	// Metadata is reused for every listing when set.
	Metadata *SiteMetadata
}

func (p Provider) Name() string { return "trico" }

// ListCourses runs one search. Under collect-partial the records that could be read
// are returned together with the joined per-page failures.
func (p Provider) ListCourses(ctx context.Context) ([]domain.CourseRecord, error) {
	var (
		res SearchResult
		err error
	)
	if p.Metadata != nil {
		res, err = p.S.SearchWithMetadata(ctx, p.Filters, p.Metadata)
	} else {
		res, err = p.S.Search(ctx, p.Filters)
	}
	if err != nil {
		return nil, err
	}

	if len(res.Failures) > 0 {
		errs := make([]error, 0, len(res.Failures))
		for _, f := range res.Failures {
			errs = append(errs, f)
		}
		return res.Records, errors.Join(errs...)
	}
	return res.Records, nil
}
