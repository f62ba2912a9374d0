package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"trico-scraper/internal/domain"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatXML:
		return f, nil
	case "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("export: unknown format %q (want json, csv or xml)", s)
}

// FormatFromPath picks the format from the file extension, falling back to def.
func FormatFromPath(path string, def Format) Format {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return def
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return def
	}
	return f
}

// Write encodes records to w in format f.
func Write(w io.Writer, f Format, records []domain.CourseRecord) error {
	switch f {
	case FormatCSV:
		return WriteRecordsCSV(w, records)
	case FormatXML:
		return WriteRecordsXML(w, records)
	case FormatJSON, "":
		return WriteRecordsJSON(w, records)
	}
	return fmt.Errorf("export: unknown format %q", f)
}

// WriteFile writes records to outPath, creating its directory first.
func WriteFile(outPath string, f Format, records []domain.CourseRecord) error {
	if dir := filepath.Dir(outPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export: mkdir %s: %w", dir, err)
		}
	}

	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", outPath, err)
	}
	if err := Write(file, f, records); err != nil {
		file.Close()
		return fmt.Errorf("export: write %s: %w", outPath, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("export: close %s: %w", outPath, err)
	}
	return nil
}
