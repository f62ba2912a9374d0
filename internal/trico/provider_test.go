package trico

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"trico-scraper/internal/concurrency"
)

func TestProviderListCourses(t *testing.T) {
	site := newFixtureSite(t)
	site.total = 2
	site.details["0"] = [][]string{{"Title", "Intro to X"}}
	site.details["1"] = [][]string{{"Title", "Intro to Y"}}
	s := site.scraper(2, concurrency.FailFast)

	p := Provider{S: s, Filters: SearchFilters{Semester: []string{"Fall_2018"}}, Metadata: &testMetadata}
	records, err := p.ListCourses(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Empty(t, site.requestsTo("/form"))
}

func TestProviderListCoursesPartial(t *testing.T) {
	site := newFixtureSite(t)
	site.total = 2
	site.details["0"] = [][]string{{"Title", "Intro to X"}}
	s := site.scraper(2, concurrency.CollectPartial)

	p := Provider{S: s, Filters: SearchFilters{Semester: []string{"Fall_2018"}}}
	records, err := p.ListCourses(context.Background())
	require.Len(t, records, 1)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr), "expected the missing detail page as a FetchError, got %v", err)
	require.Len(t, site.requestsTo("/form"), 1)
}
