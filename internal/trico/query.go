package trico

import (
	"net/url"
	"strings"
)

// Wildcard is the value the search form treats as "match anything".
const Wildcard = "."

// cgiFields names the multi-valued controls on the search form.
const cgiFields = "campus,dept,smstr,meettime"

// SearchFilters narrows a search. Empty Semester, Campus or Department slices mean
// "every value the site offers" and are expanded from SiteMetadata, because the
// server wants each value spelled out. Empty string patterns become Wildcard.
// MeetTime is only sent when non-empty.
type SearchFilters struct {
	Semester     []string
	Campus       []string
	Department   []string
	CourseNumber string
	Instructor   string
	MeetDay      string
	MeetTime     []string
	// SearchFreeze is passed through as-is.
	SearchFreeze string
}

// NeedsMetadata reports whether building a query for f requires SiteMetadata.
func (f SearchFilters) NeedsMetadata() bool {
	return len(f.Semester) == 0 || len(f.Campus) == 0 || len(f.Department) == 0
}

// Param is one name=value pair of a query string.
type Param struct {
	Name  string
	Value string
}

// QueryParameters is an ordered query string; names repeat for multi-valued filters.
type QueryParameters []Param

// With returns a copy of q with one more pair at the end. q is not modified.
func (q QueryParameters) With(name, value string) QueryParameters {
	out := make(QueryParameters, len(q), len(q)+1)
	copy(out, q)
	return append(out, Param{Name: name, Value: value})
}

// Values returns every value sent under name, in order.
func (q QueryParameters) Values(name string) []string {
	var out []string
	for _, p := range q {
		if p.Name == name {
			out = append(out, p.Value)
		}
	}
	return out
}

// Encode renders q as a query string, keeping pair order.
func (q QueryParameters) Encode() string {
	var b strings.Builder
	for i, p := range q {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// URL appends q to base, which may already carry a query string.
func (q QueryParameters) URL(base string) string {
	if len(q) == 0 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

// BuildQuery turns filters into the parameter list the search endpoint expects:
// the fixed control fields first, then one pair per semester, campus, department
// and meeting time. md may be nil when filters.NeedsMetadata() is false; a
// defaulted dimension whose metadata list is empty fails rather than searching
// for nothing.
func BuildQuery(filters SearchFilters, md *SiteMetadata) (QueryParameters, error) {
	semesters, campuses, depts := filters.Semester, filters.Campus, filters.Department
	if len(semesters) == 0 {
		if md == nil || len(md.Semesters) == 0 {
			return nil, &MissingMetadataError{Dimension: "semester"}
		}
		semesters = md.Semesters
	}
	if len(campuses) == 0 {
		if md == nil || len(md.Campuses) == 0 {
			return nil, &MissingMetadataError{Dimension: "campus"}
		}
		campuses = md.Campuses
	}
	if len(depts) == 0 {
		if md == nil || len(md.Departments) == 0 {
			return nil, &MissingMetadataError{Dimension: "department"}
		}
		depts = md.Departments
	}

	params := QueryParameters{
		{".cgifields", cgiFields},
		{"Search", "Search"},
		{"crsnum", orWildcard(filters.CourseNumber)},
		{"instr", orWildcard(filters.Instructor)},
		{"meetday", orWildcard(filters.MeetDay)},
		{"srch_frz", orWildcard(filters.SearchFreeze)},
	}
	for _, s := range semesters {
		params = append(params, Param{"smstr", s})
	}
	for _, c := range campuses {
		params = append(params, Param{"campus", c})
	}
	for _, d := range depts {
		params = append(params, Param{"dept", d})
	}
	for _, m := range filters.MeetTime {
		params = append(params, Param{"meettime", m})
	}
	return params, nil
}

func orWildcard(s string) string {
	if s == "" {
		return Wildcard
	}
	return s
}
