package trico

import (
	"errors"
	"reflect"
	"testing"
)

var testMetadata = SiteMetadata{
	Semesters:   []string{"Fall_2018", "Spring_2019"},
	Campuses:    []string{"Bryn Mawr", "Haverford", "Swarthmore"},
	Departments: []string{"CMSC", "MATH"},
	MeetDays:    []string{".", "MWF", "TTh"},
	MeetTimes:   []string{"morning", "afternoon"},
}

func TestBuildQueryExplicitFilters(t *testing.T) {
	params, err := BuildQuery(SearchFilters{
		Semester:   []string{"Fall_2018"},
		Campus:     []string{"Swarthmore", "Haverford"},
		Department: []string{"CMSC"},
		Instructor: "Smith",
	}, nil)
	if err != nil {
		t.Fatalf("Expected no error without metadata, got %v", err)
	}

	expected := QueryParameters{
		{".cgifields", "campus,dept,smstr,meettime"},
		{"Search", "Search"},
		{"crsnum", "."},
		{"instr", "Smith"},
		{"meetday", "."},
		{"srch_frz", "."},
		{"smstr", "Fall_2018"},
		{"campus", "Swarthmore"},
		{"campus", "Haverford"},
		{"dept", "CMSC"},
	}
	if !reflect.DeepEqual(params, expected) {
		t.Errorf("Expected %v, got %v", expected, params)
	}
	if got := params.Values("meettime"); got != nil {
		t.Errorf("Expected no meettime pairs, got %v", got)
	}
}

func TestBuildQueryDefaultsFromMetadata(t *testing.T) {
	testCases := []struct {
		name      string
		filters   SearchFilters
		param     string
		expected  []string
		untouched map[string][]string
	}{
		{
			name:     "semester",
			filters:  SearchFilters{Campus: []string{"Haverford"}, Department: []string{"MATH"}},
			param:    "smstr",
			expected: testMetadata.Semesters,
		},
		{
			name:     "campus",
			filters:  SearchFilters{Semester: []string{"Fall_2018"}, Department: []string{"MATH"}},
			param:    "campus",
			expected: testMetadata.Campuses,
		},
		{
			name:     "department",
			filters:  SearchFilters{Semester: []string{"Fall_2018"}, Campus: []string{"Haverford"}},
			param:    "dept",
			expected: testMetadata.Departments,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			md := testMetadata
			params, err := BuildQuery(tc.filters, &md)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got := params.Values(tc.param); !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("Expected %s values %v, got %v", tc.param, tc.expected, got)
			}
		})
	}
}

func TestBuildQueryMeetTime(t *testing.T) {
	params, err := BuildQuery(SearchFilters{
		Semester:   []string{"Fall_2018"},
		Campus:     []string{"Haverford"},
		Department: []string{"CMSC"},
		MeetTime:   []string{"morning", "afternoon"},
	}, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	last := params[len(params)-2:]
	expected := QueryParameters{{"meettime", "morning"}, {"meettime", "afternoon"}}
	if !reflect.DeepEqual(last, expected) {
		t.Errorf("Expected meettime pairs at the end, got %v", last)
	}
}

func TestBuildQueryMissingMetadata(t *testing.T) {
	_, err := BuildQuery(SearchFilters{Semester: []string{"Fall_2018"}}, nil)

	var mdErr *MissingMetadataError
	if !errors.As(err, &mdErr) {
		t.Fatalf("Expected MissingMetadataError, got %v", err)
	}
	if mdErr.Dimension != "campus" {
		t.Errorf("Expected missing dimension %q, got %q", "campus", mdErr.Dimension)
	}
}

func TestBuildQueryEmptyMetadataDimension(t *testing.T) {
	md := &SiteMetadata{Semesters: []string{"Fall_2018"}, Campuses: []string{"Haverford"}}
	_, err := BuildQuery(SearchFilters{}, md)

	var mdErr *MissingMetadataError
	if !errors.As(err, &mdErr) {
		t.Fatalf("Expected MissingMetadataError, got %v", err)
	}
	if mdErr.Dimension != "department" {
		t.Errorf("Expected missing dimension %q, got %q", "department", mdErr.Dimension)
	}
}

func TestSearchFiltersNeedsMetadata(t *testing.T) {
	full := SearchFilters{Semester: []string{"a"}, Campus: []string{"b"}, Department: []string{"c"}}
	if full.NeedsMetadata() {
		t.Error("Expected fully specified filters not to need metadata")
	}
	if !(SearchFilters{}).NeedsMetadata() {
		t.Error("Expected empty filters to need metadata")
	}
}

func TestQueryParametersWith(t *testing.T) {
	base := make(QueryParameters, 0, 8)
	base = append(base, Param{"a", "1"})

	first := base.With("run_tot", "0")
	second := base.With("run_tot", "50")

	if len(base) != 1 {
		t.Errorf("Expected base to keep 1 pair, got %d", len(base))
	}
	if first[1].Value != "0" || second[1].Value != "50" {
		t.Errorf("Expected independent copies, got %v and %v", first, second)
	}
}

func TestQueryParametersURL(t *testing.T) {
	q := QueryParameters{{".cgifields", "campus,dept"}, {"campus", "Bryn Mawr"}, {"campus", "Haverford"}}

	testCases := []struct {
		base     string
		expected string
	}{
		{"http://x/search.cgi", "http://x/search.cgi?.cgifields=campus%2Cdept&campus=Bryn+Mawr&campus=Haverford"},
		{"http://x/search.cgi?lang=en", "http://x/search.cgi?lang=en&.cgifields=campus%2Cdept&campus=Bryn+Mawr&campus=Haverford"},
	}
	for _, tc := range testCases {
		if got := q.URL(tc.base); got != tc.expected {
			t.Errorf("URL(%q) = %q, want %q", tc.base, got, tc.expected)
		}
	}

	if got := QueryParameters(nil).URL("http://x/detail.cgi?id=1"); got != "http://x/detail.cgi?id=1" {
		t.Errorf("Expected empty parameters to leave the URL alone, got %q", got)
	}
}
