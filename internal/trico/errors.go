package trico

import "fmt"

// FetchError means a page could not be retrieved: transport, TLS or a non-2xx status.
// Status is the HTTP status when the server answered outside 2xx, 0 otherwise.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("trico: fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("trico: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PageShapeError means the page came back but an element the scraper relies on
// (form control, result table, row/cell layout) was not there.
type PageShapeError struct {
	URL  string
	Want string
}

func (e *PageShapeError) Error() string {
	return fmt.Sprintf("trico: unexpected page layout at %s: want %s", e.URL, e.Want)
}

// ParseError means the expected element was found but its text had the wrong format.
type ParseError struct {
	URL  string
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("trico: cannot parse %q at %s: %v", e.Text, e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingMetadataError means a filter had to default to the full enumeration but
// no site metadata was available.
type MissingMetadataError struct {
	Dimension string
	Err       error
}

func (e *MissingMetadataError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("trico: no site metadata to default %s", e.Dimension)
	}
	return fmt.Sprintf("trico: no site metadata to default %s: %v", e.Dimension, e.Err)
}

func (e *MissingMetadataError) Unwrap() error { return e.Err }
