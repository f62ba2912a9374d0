package trico

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"trico-scraper/internal/concurrency"
	"trico-scraper/internal/domain"
	"trico-scraper/internal/httpx"
)

const (
	DefaultSearchURL  = "https://trico.haverford.edu/cgi-bin/courseguide/cgi-bin/search.cgi"
	DefaultLinkPrefix = "https://trico.haverford.edu/cgi-bin/courseguide/cgi-bin/"
)

// Endpoints are the remote URLs the scraper talks to.
type Endpoints struct {
	// SearchURL receives the query and answers with result pages.
	SearchURL string
	// LinkPrefix is prepended to the relative hrefs of the result table.
	LinkPrefix string
	// InfoURL serves the search form. Empty means SearchURL.
	InfoURL string
}

// DefaultEndpoints points at the live Tri-Co course guide.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		SearchURL:  DefaultSearchURL,
		LinkPrefix: DefaultLinkPrefix,
		InfoURL:    DefaultSearchURL,
	}
}

type Options struct {
	Endpoints Endpoints

	// HTTPClient is used as-is when set; otherwise one is built from HTTP.
	HTTPClient *http.Client
	HTTP       httpx.ClientOptions
	// Retry defaults to a single attempt per GET.
	Retry *httpx.RetryConfig

	Workers  int
	Policy   concurrency.FailurePolicy
	PageSize int
}

// Scraper owns one HTTP client and one worker pool, both reused by every call.
// It is safe for concurrent use; Close releases the pool.
type Scraper struct {
	endpoints Endpoints
	http      *http.Client
	retry     httpx.RetryConfig
	pool      *concurrency.Pool
	pageSize  int
}

func New(opts Options) (*Scraper, error) {
	ep := opts.Endpoints
	if ep.SearchURL == "" {
		ep.SearchURL = DefaultSearchURL
	}
	if ep.LinkPrefix == "" {
		ep.LinkPrefix = DefaultLinkPrefix
	}
	if ep.InfoURL == "" {
		ep.InfoURL = ep.SearchURL
	}

	client := opts.HTTPClient
	if client == nil {
		var err error
		client, err = httpx.NewClient(opts.HTTP)
		if err != nil {
			return nil, fmt.Errorf("trico: http client: %w", err)
		}
	}

	retry := httpx.SingleAttempt()
	if opts.Retry != nil {
		retry = *opts.Retry
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Scraper{
		endpoints: ep,
		http:      client,
		retry:     retry,
		pool:      concurrency.NewPool(concurrency.ParallelOptions{MaxWorkers: opts.Workers, Policy: opts.Policy}),
		pageSize:  pageSize,
	}, nil
}

func (s *Scraper) Close() { s.pool.Close() }

func (s *Scraper) Endpoints() Endpoints { return s.endpoints }

func (s *Scraper) Workers() int { return s.pool.Size() }

// Failure is one page or link that could not be turned into output under collect-partial.
type Failure struct {
	URL string
	Err error
}

func (f Failure) Error() string { return fmt.Sprintf("%s: %v", f.URL, f.Err) }

func (f Failure) Unwrap() error { return f.Err }

// SearchResult holds the records in link order. Failures is only populated when
// the scraper runs with collect-partial.
type SearchResult struct {
	TotalCount int
	Records    []domain.CourseRecord
	Failures   []Failure
}

// BuildQuery is the package-level BuildQuery, fetching metadata first when filters
// leave a required dimension open.
func (s *Scraper) BuildQuery(ctx context.Context, filters SearchFilters) (QueryParameters, error) {
	if !filters.NeedsMetadata() {
		return BuildQuery(filters, nil)
	}

	md, err := s.FetchSiteMetadata(ctx)
	if err != nil {
		return nil, &MissingMetadataError{Dimension: missingDimension(filters), Err: err}
	}
	return BuildQuery(filters, &md)
}

// Search runs the whole pipeline: metadata (if needed), count, result pages, detail pages.
func (s *Scraper) Search(ctx context.Context, filters SearchFilters) (SearchResult, error) {
	params, err := s.BuildQuery(ctx, filters)
	if err != nil {
		return SearchResult{}, err
	}
	return s.run(ctx, params)
}

// SearchWithMetadata is Search with caller-supplied metadata, so repeated searches
// do not refetch the form. md may be nil when filters are fully specified.
func (s *Scraper) SearchWithMetadata(ctx context.Context, filters SearchFilters, md *SiteMetadata) (SearchResult, error) {
	params, err := BuildQuery(filters, md)
	if err != nil {
		return SearchResult{}, err
	}
	return s.run(ctx, params)
}

func (s *Scraper) run(ctx context.Context, params QueryParameters) (SearchResult, error) {
	log := zerolog.Ctx(ctx)

	total, err := s.ProbeCount(ctx, params)
	if err != nil {
		return SearchResult{}, err
	}

	links, linkFailures, err := s.FetchAllLinks(ctx, params, total, s.pageSize)
	if err != nil {
		return SearchResult{}, err
	}
	log.Debug().Int("links", len(links)).Msg("collected detail links")

	records, recordFailures, err := s.FetchAllRecords(ctx, links)
	if err != nil {
		return SearchResult{}, err
	}

	failures := append(linkFailures, recordFailures...)
	for _, f := range failures {
		log.Warn().Err(f.Err).Str("url", f.URL).Msg("skipped page")
	}

	return SearchResult{
		TotalCount: total,
		Records:    records,
		Failures:   failures,
	}, nil
}

func missingDimension(f SearchFilters) string {
	switch {
	case len(f.Semester) == 0:
		return "semester"
	case len(f.Campus) == 0:
		return "campus"
	default:
		return "department"
	}
}

// unwrapItem strips the pool's index wrapper so callers see the page-level error.
func unwrapItem(err error) error {
	var ie concurrency.ItemError
	if errors.As(err, &ie) {
		return ie.Err
	}
	return err
}
