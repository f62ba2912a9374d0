package providers

import (
	"context"

	"trico-scraper/internal/domain"
)

// CourseProvider is a source of course records. A provider may return records
// together with a non-nil error when only part of the catalog could be read.
type CourseProvider interface {
	Name() string
	ListCourses(ctx context.Context) ([]domain.CourseRecord, error)
}
